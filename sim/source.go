package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// TrafficSource is one perpetual Poisson arrival process. Each arrival draws an
// exponential interarrival time from the source's private stream, offers a
// request to the server and reschedules itself. It ignores server state:
// sources keep generating under overload.
type TrafficSource struct {
	ID               string
	Class            TrafficClass
	MeanInterarrival float64 // seconds

	interarrival distuv.Exponential
	server       *Server
	generated    int64
	stopped      bool
}

// NewTrafficSource creates a source with mean interarrival time meanInterarrival
// (virtual seconds) drawing from src.
func NewTrafficSource(id string, class TrafficClass, meanInterarrival float64, src rand.Source, server *Server) (*TrafficSource, error) {
	if math.IsNaN(meanInterarrival) || math.IsInf(meanInterarrival, 0) || meanInterarrival <= 0 {
		return nil, invalidConfig(string(class)+".mean_interarrival", "must be a finite positive number, got %f", meanInterarrival)
	}
	if src == nil || server == nil {
		panic("NewTrafficSource: src and server must not be nil")
	}
	return &TrafficSource{
		ID:               id,
		Class:            class,
		MeanInterarrival: meanInterarrival,
		interarrival:     distuv.Exponential{Rate: 1.0 / meanInterarrival, Src: src},
		server:           server,
	}, nil
}

// NextInterarrival draws the next interarrival time in ticks.
// Always in [1, MaxTicks].
func (ts *TrafficSource) NextInterarrival() int64 {
	d := math.Round(ts.interarrival.Rand() * TicksPerSecond)
	if d >= MaxTicks {
		return MaxTicks
	}
	if d < 1 {
		return 1
	}
	return int64(d)
}

// Start schedules the first arrival one interarrival time after the current clock.
func (ts *TrafficSource) Start(sched Scheduler) error {
	at := sched.Now() + ts.NextInterarrival()
	if err := sched.ScheduleAt(at, &ArrivalEvent{time: at, Source: ts}); err != nil {
		return fmt.Errorf("starting source %s: %w", ts.ID, err)
	}
	return nil
}

// Stop cancels future arrivals. Requests already admitted still complete.
func (ts *TrafficSource) Stop() {
	ts.stopped = true
}

// Stopped reports whether Stop has been called.
func (ts *TrafficSource) Stopped() bool { return ts.stopped }

// Generated returns the number of requests this source has offered.
func (ts *TrafficSource) Generated() int64 { return ts.generated }

func (ts *TrafficSource) arrive(sim *Simulator, now int64) {
	if ts.stopped {
		logrus.Tracef("[tick %07d] source %s stopped, arrival discarded", now, ts.ID)
		return
	}
	ts.generated++
	req := Request{
		ID:          fmt.Sprintf("%s-%d", ts.ID, ts.generated),
		Class:       ts.Class,
		SourceID:    ts.ID,
		ArrivalTime: now,
	}
	logrus.Tracef("<< Arrival: %s at %d ticks", req.ID, now)
	ts.server.Admit(req)

	next := now + ts.NextInterarrival()
	sim.mustSchedule(&ArrivalEvent{time: next, Source: ts})
}
