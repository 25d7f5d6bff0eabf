// Package live drives a simulation in wall-clock time, one virtual step per
// frame, and exposes the polled state over HTTP and NATS.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/floodsim/sim"
)

// Snapshot is the state a reporting layer polls once per frame.
type Snapshot struct {
	Clock        int64   `json:"clock_us"`
	TimeSec      float64 `json:"time_s"`
	Load         float64 `json:"load"`
	InFlight     int     `json:"in_flight"`
	Capacity     int     `json:"capacity"`
	Dropped      int64   `json:"dropped"`
	AttackActive bool    `json:"attack_active"`
	Done         bool    `json:"done"`
}

// Publisher receives every snapshot produced by Tick.
type Publisher interface {
	Publish(Snapshot) error
}

// Runner owns a simulator and serializes every access to it. Tick is called
// from one goroutine; the read methods may be called from any.
type Runner struct {
	mu         sync.RWMutex
	sim        *sim.Simulator
	step       int64
	publishers []Publisher
}

// NewRunner creates a runner advancing s by step ticks per Tick.
func NewRunner(s *sim.Simulator, step int64, publishers ...Publisher) (*Runner, error) {
	if step <= 0 {
		return nil, fmt.Errorf("runner step must be positive, got %d", step)
	}
	return &Runner{sim: s, step: step, publishers: publishers}, nil
}

// Tick advances the simulation by one step, tears it down once the horizon is
// reached, and publishes the resulting snapshot. Ticks after the end are no-ops
// that return the final snapshot.
func (r *Runner) Tick() (Snapshot, error) {
	r.mu.Lock()
	if !r.sim.Finished() {
		if err := r.sim.Advance(r.step); err != nil {
			r.mu.Unlock()
			return Snapshot{}, fmt.Errorf("advancing simulation: %w", err)
		}
		if r.sim.Clock >= r.sim.Horizon {
			r.sim.Finish()
		}
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	for _, p := range r.publishers {
		if err := p.Publish(snap); err != nil {
			logrus.Warnf("[tick %07d] publishing snapshot: %v", snap.Clock, err)
		}
	}
	return snap, nil
}

// Run calls Tick once per frame until the simulation ends or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, frame time.Duration) error {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap, err := r.Tick()
			if err != nil {
				return err
			}
			logrus.Debugf("[tick %07d] load=%.2f dropped=%d", snap.Clock, snap.Load, snap.Dropped)
			if snap.Done {
				return nil
			}
		}
	}
}

// Snapshot returns the current state without advancing.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Runner) snapshotLocked() Snapshot {
	s := r.sim
	return Snapshot{
		Clock:        s.Clock,
		TimeSec:      sim.TicksToSeconds(s.Clock),
		Load:         s.Server.Load(),
		InFlight:     s.Server.InFlight(),
		Capacity:     s.Server.Capacity(),
		Dropped:      s.Server.DroppedCount(),
		AttackActive: s.AttackActive(),
		Done:         s.Finished(),
	}
}

// LoadSeries returns a copy of the load series collected so far.
func (r *Runner) LoadSeries() []sim.MetricSample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sim.Metrics.LoadSeries()
}

// DropSeries returns a copy of the drop series collected so far.
func (r *Runner) DropSeries() []sim.MetricSample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sim.Metrics.DropSeries()
}

// Summary summarizes the run so far.
func (r *Runner) Summary() sim.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sim.Summarize()
}
