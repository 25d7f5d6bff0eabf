package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in ticks) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() int64
	Execute(*Simulator)
}

// ArrivalEvent is the next arrival of a traffic source.
type ArrivalEvent struct {
	time   int64
	Source *TrafficSource
}

func (e *ArrivalEvent) Timestamp() int64 {
	return e.time
}

// Execute offers a request to the server and reschedules the source,
// unless the source has been stopped in the meantime.
func (e *ArrivalEvent) Execute(sim *Simulator) {
	e.Source.arrive(sim, e.time)
}

// CompletionEvent releases the capacity held by an admitted request.
type CompletionEvent struct {
	time    int64
	Server  *Server
	Request Request
}

func (e *CompletionEvent) Timestamp() int64 {
	return e.time
}

func (e *CompletionEvent) Execute(_ *Simulator) {
	logrus.Tracef("<< Completion: %s at %d ticks", e.Request.ID, e.time)
	e.Server.complete(e.Request)
}

// SampleEvent records one point of each metric series and re-arms itself.
type SampleEvent struct {
	time    int64
	Metrics *MetricsCollector
}

func (e *SampleEvent) Timestamp() int64 {
	return e.time
}

func (e *SampleEvent) Execute(sim *Simulator) {
	e.Metrics.Sample(e.time)
	next := e.time + e.Metrics.Interval()
	if next <= sim.Horizon {
		sim.mustSchedule(&SampleEvent{time: next, Metrics: e.Metrics})
	}
}

// AttackStartEvent fires a one-shot attack scheduler.
type AttackStartEvent struct {
	time   int64
	Attack *AttackScheduler
}

func (e *AttackStartEvent) Timestamp() int64 {
	return e.time
}

func (e *AttackStartEvent) Execute(sim *Simulator) {
	logrus.Infof("<< Attack wave %d starting at %d ticks", e.Attack.Wave, e.time)
	e.Attack.Fire(sim)
}

// AttackStopEvent ends an attack wave by stopping the sources it spawned.
type AttackStopEvent struct {
	time   int64
	Attack *AttackScheduler
}

func (e *AttackStopEvent) Timestamp() int64 {
	return e.time
}

func (e *AttackStopEvent) Execute(_ *Simulator) {
	logrus.Infof("<< Attack wave %d stopping at %d ticks", e.Attack.Wave, e.time)
	e.Attack.Stop()
}

// FuncEvent runs an arbitrary continuation at a given time.
type FuncEvent struct {
	time int64
	Fn   func(*Simulator)
}

// NewFuncEvent wraps fn as an event firing at time t.
func NewFuncEvent(t int64, fn func(*Simulator)) *FuncEvent {
	return &FuncEvent{time: t, Fn: fn}
}

func (e *FuncEvent) Timestamp() int64 {
	return e.time
}

func (e *FuncEvent) Execute(sim *Simulator) {
	e.Fn(sim)
}
