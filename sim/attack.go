package sim

import (
	"github.com/sirupsen/logrus"
)

// AttackScheduler is a one-shot timer: when its start event fires it spawns
// Sources attacker traffic sources, each generating arrivals from that point on.
// It fires at most once and is never re-armed.
type AttackScheduler struct {
	Wave             int
	At               int64   // trigger time (ticks)
	Sources          int     // attacker sources spawned on fire
	MeanInterarrival float64 // seconds, per attacker source
	Duration         int64   // ticks the wave lasts; 0 = until the end of the run

	fired   bool
	stopped bool
	spawned []*TrafficSource
}

// Fire spawns the wave's sources. Calls after the first are no-ops.
func (a *AttackScheduler) Fire(sim *Simulator) {
	if a.fired {
		return
	}
	a.fired = true

	for i := 0; i < a.Sources; i++ {
		name := SubsystemSource(ClassAttack, a.Wave, i)
		src, err := sim.AddSource(name, ClassAttack, a.MeanInterarrival)
		if err != nil {
			// configuration was validated at construction
			panic(err)
		}
		a.spawned = append(a.spawned, src)
	}
	logrus.Infof("[tick %07d] attack wave %d spawned %d sources", sim.Clock, a.Wave, len(a.spawned))

	if a.Duration > 0 {
		stopAt := sim.Clock + a.Duration
		sim.mustSchedule(&AttackStopEvent{time: stopAt, Attack: a})
	}
}

// Stop cancels every source spawned by this wave.
func (a *AttackScheduler) Stop() {
	a.stopped = true
	for _, src := range a.spawned {
		src.Stop()
	}
}

// Fired reports whether the wave has started.
func (a *AttackScheduler) Fired() bool { return a.fired }

// Active reports whether the wave has started and not yet been stopped.
func (a *AttackScheduler) Active() bool { return a.fired && !a.stopped }

// Spawned returns the sources started by this wave.
func (a *AttackScheduler) Spawned() []*TrafficSource {
	out := make([]*TrafficSource, len(a.spawned))
	copy(out, a.spawned)
	return out
}
