// Package sim provides the discrete-event simulation core of floodsim: a single
// capacity-bounded server offered traffic by benign clients and, from a
// configured time on, a flood of attacker sources.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go, event_queue.go: typed events and the (timestamp, FIFO) ordered queue
//   - simulator.go: the virtual clock, ScheduleAt and the RunUntil horizon loop
//   - server.go: the admission-controlled resource (admit, drop, complete)
//   - source.go: perpetual Poisson arrival processes with private random streams
//   - attack.go: the one-shot attack scheduler
//   - metrics.go: periodic load and drop sampling
//
// # Time
//
// Virtual time is an int64 tick count, 1 tick = 1µs. Configuration is in
// virtual seconds and converted with SecondsToTicks.
//
// # Polling
//
// A reporting layer drives the simulation by calling Advance (or RunUntil)
// once per frame and then reading Server.Load, Server.DroppedCount and the
// MetricsCollector series. The core never calls into the reporting layer except
// through OutcomeObserver notifications.
//
// Sub-packages:
//   - sim/trace/: admission decision records
//   - sim/export/: series writers (CSV, JSON, YAML, ClickHouse)
//   - sim/live/: wall-clock paced runner, HTTP view and NATS publisher
package sim
