// sim/simulator.go
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Simulator is the core object that holds simulation time, the shared server,
// the traffic sources and the event loop.
type Simulator struct {
	Clock   int64
	Horizon int64
	// queue has all pending events: arrivals, completions, samples and attack triggers
	queue   *EventQueue
	Server  *Server
	Metrics *MetricsCollector
	Sources []*TrafficSource
	Attacks []*AttackScheduler
	RNG     *PartitionedRNG

	config   Config
	finished bool
}

// NewSimulator validates cfg and builds a ready-to-run simulation: the metrics
// sampler is armed at t=0, the normal sources are started and every attack
// wave is registered as a one-shot timer. Construction order is fixed, so the
// same cfg always yields the same event sequence.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	horizon := SecondsToTicks(cfg.Horizon)
	triggers, err := cfg.Attack.TriggerTimes(horizon)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		Clock:   0,
		Horizon: horizon,
		queue:   NewEventQueue(),
		RNG:     NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		config:  cfg,
	}
	s.Server, err = NewServer(cfg.Server.Capacity, SecondsToTicks(cfg.Server.ProcessingTime), s)
	if err != nil {
		return nil, err
	}
	s.Metrics = NewMetricsCollector(s.Server, SecondsToTicks(cfg.SampleInterval))
	s.mustSchedule(&SampleEvent{time: 0, Metrics: s.Metrics})

	for i := 0; i < cfg.Normal.Clients; i++ {
		if _, err := s.AddSource(SubsystemSource(ClassNormal, 0, i), ClassNormal, cfg.Normal.MeanInterarrival); err != nil {
			return nil, err
		}
	}

	for wave, at := range triggers {
		attack := &AttackScheduler{
			Wave:             wave,
			At:               at,
			Sources:          cfg.Attack.Sources,
			MeanInterarrival: cfg.Attack.MeanInterarrival,
			Duration:         SecondsToTicks(cfg.Attack.Duration),
		}
		s.Attacks = append(s.Attacks, attack)
		s.mustSchedule(&AttackStartEvent{time: at, Attack: attack})
	}

	logrus.Infof("Simulation ready: capacity=%d, processing=%dticks, horizon=%dticks, %d normal sources, %d attack waves",
		cfg.Server.Capacity, s.Server.ProcessingTime(), s.Horizon, cfg.Normal.Clients, len(s.Attacks))
	return s, nil
}

// Config returns the configuration the simulator was built with.
func (sim *Simulator) Config() Config { return sim.config }

// Now returns the current virtual time in ticks.
func (sim *Simulator) Now() int64 { return sim.Clock }

// Pending returns the number of events waiting in the queue.
func (sim *Simulator) Pending() int { return sim.queue.Len() }

// ScheduleAt registers ev to fire at time t. Scheduling into the past fails
// with *InvalidScheduleError; scheduling at the current time is allowed.
func (sim *Simulator) ScheduleAt(t int64, ev Event) error {
	if t < sim.Clock {
		return &InvalidScheduleError{At: t, Now: sim.Clock}
	}
	if ev.Timestamp() != t {
		return fmt.Errorf("event timestamp %d does not match schedule time %d", ev.Timestamp(), t)
	}
	sim.queue.Schedule(ev)
	return nil
}

// mustSchedule is used by event continuations, for which scheduling into the
// past is a programming error.
func (sim *Simulator) mustSchedule(ev Event) {
	if err := sim.ScheduleAt(ev.Timestamp(), ev); err != nil {
		panic(err)
	}
}

// AddSource creates a traffic source with its own random stream and starts it
// at the current clock.
func (sim *Simulator) AddSource(id string, class TrafficClass, meanInterarrival float64) (*TrafficSource, error) {
	src, err := NewTrafficSource(id, class, meanInterarrival, sim.RNG.ForSubsystem(id), sim.Server)
	if err != nil {
		return nil, err
	}
	if err := src.Start(sim); err != nil {
		return nil, err
	}
	sim.Sources = append(sim.Sources, src)
	return src, nil
}

// RunUntil dispatches, in (timestamp, scheduling order), every pending event
// with timestamp <= target, then leaves the clock at target. Later events stay
// pending for the next call. Continuations may schedule further events,
// including at the current time.
func (sim *Simulator) RunUntil(target int64) error {
	if target < sim.Clock {
		return &InvalidScheduleError{At: target, Now: sim.Clock}
	}
	for sim.queue.Len() > 0 && sim.queue.Peek().Timestamp() <= target {
		// get the next event to be simulated
		ev := sim.queue.PopNext()
		// advance the clock
		sim.Clock = ev.Timestamp()
		logrus.Tracef("[tick %07d] Executing %T", sim.Clock, ev)
		// process the event
		ev.Execute(sim)
	}
	sim.Clock = target
	return nil
}

// Advance runs the simulation for d more ticks, never past the horizon.
// It is the per-frame entry point of a polling reporting layer.
func (sim *Simulator) Advance(d int64) error {
	if d < 0 {
		return fmt.Errorf("advance by negative duration %d", d)
	}
	return sim.RunUntil(min(sim.Clock+d, sim.Horizon))
}

// Run simulates up to and including the horizon, then tears down.
func (sim *Simulator) Run() error {
	if err := sim.RunUntil(sim.Horizon); err != nil {
		return err
	}
	sim.Finish()
	return nil
}

// Finish stops every traffic source and attack wave. Pending completions are left untouched.
func (sim *Simulator) Finish() {
	if sim.finished {
		return
	}
	for _, a := range sim.Attacks {
		a.Stop()
	}
	for _, src := range sim.Sources {
		src.Stop()
	}
	sim.finished = true
	logrus.Infof("[tick %07d] Simulation ended", sim.Clock)
}

// Finished reports whether the run has been torn down.
func (sim *Simulator) Finished() bool { return sim.finished }

// AttackActive reports whether any attack wave is currently generating traffic.
func (sim *Simulator) AttackActive() bool {
	for _, a := range sim.Attacks {
		if a.Active() {
			return true
		}
	}
	return false
}
