package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Scheduler is the part of the simulator the server and traffic sources need:
// the current virtual time and the ability to register future events.
type Scheduler interface {
	Now() int64
	ScheduleAt(t int64, ev Event) error
}

// ClassCounts tallies admission outcomes for one traffic class.
type ClassCounts struct {
	Admitted int64 `json:"admitted" yaml:"admitted"`
	Dropped  int64 `json:"dropped" yaml:"dropped"`
}

// Server is the single admission-controlled resource. It processes at most
// capacity requests at once; an arrival that finds it full is dropped instantly.
//
// Invariant: 0 <= inFlight <= capacity, and load == inFlight/capacity after
// every transition. State is mutated only from event dispatch.
type Server struct {
	capacity       int
	processingTime int64 // ticks each admitted request holds one unit of capacity
	sched          Scheduler

	inFlight  int
	dropped   int64
	completed int64
	load      float64
	byClass   map[TrafficClass]*ClassCounts

	observers []OutcomeObserver
}

// NewServer creates a server with fixed capacity and processing duration.
func NewServer(capacity int, processingTime int64, sched Scheduler) (*Server, error) {
	if capacity <= 0 {
		return nil, invalidConfig("server.capacity", "must be positive, got %d", capacity)
	}
	if processingTime <= 0 {
		return nil, invalidConfig("server.processing_time", "must be positive, got %d ticks", processingTime)
	}
	if sched == nil {
		panic("NewServer: sched must not be nil")
	}
	return &Server{
		capacity:       capacity,
		processingTime: processingTime,
		sched:          sched,
		byClass:        make(map[TrafficClass]*ClassCounts),
	}, nil
}

// Observe registers an observer for admission outcomes.
func (s *Server) Observe(o OutcomeObserver) {
	s.observers = append(s.observers, o)
}

// Admit decides on req at the current virtual time. The test and the slot
// reservation happen together: the request is admitted only if inFlight < capacity.
// A drop is a normal outcome, never an error.
func (s *Server) Admit(req Request) Outcome {
	now := s.sched.Now()
	counts := s.classCounts(req.Class)

	if s.inFlight >= s.capacity {
		s.dropped++
		counts.Dropped++
		s.recomputeLoad()
		logrus.Tracef("[tick %07d] dropped %s (in flight %d/%d)", now, req.ID, s.inFlight, s.capacity)
		s.notify(now, req, OutcomeDropped)
		return OutcomeDropped
	}

	s.inFlight++
	counts.Admitted++
	s.recomputeLoad()
	if err := s.sched.ScheduleAt(now+s.processingTime, &CompletionEvent{
		time:    now + s.processingTime,
		Server:  s,
		Request: req,
	}); err != nil {
		panic(fmt.Sprintf("scheduling completion of %s: %v", req.ID, err))
	}
	logrus.Tracef("[tick %07d] admitted %s (in flight %d/%d)", now, req.ID, s.inFlight, s.capacity)
	s.notify(now, req, OutcomeAdmitted)
	return OutcomeAdmitted
}

func (s *Server) complete(req Request) {
	if s.inFlight == 0 {
		panic(fmt.Sprintf("completion of %s with nothing in flight", req.ID))
	}
	s.inFlight--
	s.completed++
	s.recomputeLoad()
}

func (s *Server) recomputeLoad() {
	s.load = float64(s.inFlight) / float64(s.capacity)
}

func (s *Server) notify(now int64, req Request, outcome Outcome) {
	for _, o := range s.observers {
		o.OnOutcome(now, req, outcome)
	}
}

func (s *Server) classCounts(class TrafficClass) *ClassCounts {
	c, ok := s.byClass[class]
	if !ok {
		c = &ClassCounts{}
		s.byClass[class] = c
	}
	return c
}

// Capacity returns the fixed number of concurrent requests.
func (s *Server) Capacity() int { return s.capacity }

// ProcessingTime returns the ticks an admitted request holds capacity.
func (s *Server) ProcessingTime() int64 { return s.processingTime }

// InFlight returns the number of admitted, not yet completed requests.
func (s *Server) InFlight() int { return s.inFlight }

// DroppedCount returns the number of requests dropped so far.
func (s *Server) DroppedCount() int64 { return s.dropped }

// CompletedCount returns the number of admitted requests that finished processing.
func (s *Server) CompletedCount() int64 { return s.completed }

// Load returns inFlight/capacity, in [0, 1].
func (s *Server) Load() float64 { return s.load }

// CountsByClass returns a copy of the per-class admission tallies.
func (s *Server) CountsByClass() map[TrafficClass]ClassCounts {
	out := make(map[TrafficClass]ClassCounts, len(s.byClass))
	for class, c := range s.byClass {
		out[class] = *c
	}
	return out
}
