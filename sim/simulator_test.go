package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleAt_IntoThePast_ReturnsInvalidScheduleError(t *testing.T) {
	// GIVEN a simulator advanced to t=10 ticks
	s := newTestSimulator(t, quietConfig())
	require.NoError(t, s.RunUntil(10))

	// WHEN an event is scheduled at t=9
	var log []string
	err := s.ScheduleAt(9, &recordingEvent{time: 9, label: "late", log: &log})

	// THEN the error is an InvalidScheduleError carrying both times
	var schedErr *InvalidScheduleError
	require.True(t, errors.As(err, &schedErr), "expected InvalidScheduleError, got %v", err)
	assert.Equal(t, int64(9), schedErr.At)
	assert.Equal(t, int64(10), schedErr.Now)
}

func TestScheduleAt_CurrentTime_IsAllowed(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	require.NoError(t, s.RunUntil(10))

	var log []string
	require.NoError(t, s.ScheduleAt(10, &recordingEvent{time: 10, label: "now", log: &log}))
	require.NoError(t, s.RunUntil(10))
	assert.Equal(t, []string{"now"}, log)
}

func TestScheduleAt_MismatchedTimestamp_ReturnsError(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	var log []string
	assert.Error(t, s.ScheduleAt(5, &recordingEvent{time: 6, label: "x", log: &log}))
}

func TestRunUntil_LeavesLaterEventsPending(t *testing.T) {
	// GIVEN events at 5, 10 and 15 ticks
	s := newTestSimulator(t, quietConfig())
	var log []string
	for _, ev := range []*recordingEvent{
		{time: 5, label: "a", log: &log},
		{time: 10, label: "b", log: &log},
		{time: 15, label: "c", log: &log},
	} {
		require.NoError(t, s.ScheduleAt(ev.time, ev))
	}
	pendingBefore := s.Pending()

	// WHEN running until 10 ticks
	require.NoError(t, s.RunUntil(10))

	// THEN events at or before the target ran, the later one is still queued
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Equal(t, int64(10), s.Clock)
	assert.Equal(t, pendingBefore-3+1, s.Pending(), "t=0 sample ran and re-armed itself, c stays pending")

	// AND the next call picks it up
	require.NoError(t, s.RunUntil(15))
	assert.Equal(t, []string{"a", "b", "c"}, log)
}

func TestRunUntil_ContinuationsMayScheduleAtSameTime(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	var log []string
	require.NoError(t, s.ScheduleAt(5, NewFuncEvent(5, func(sim *Simulator) {
		log = append(log, "outer")
		sim.mustSchedule(NewFuncEvent(sim.Now(), func(*Simulator) {
			log = append(log, "inner")
		}))
	})))

	require.NoError(t, s.RunUntil(5))
	assert.Equal(t, []string{"outer", "inner"}, log)
}

func TestRunUntil_EqualTimestampsRunInSchedulingOrder(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	var log []string
	for _, l := range []string{"x", "y", "z"} {
		require.NoError(t, s.ScheduleAt(100, &recordingEvent{time: 100, label: l, log: &log}))
	}
	require.NoError(t, s.RunUntil(100))
	assert.Equal(t, []string{"x", "y", "z"}, log)
}

func TestRunUntil_TargetInThePast_ReturnsError(t *testing.T) {
	s := newTestSimulator(t, quietConfig())
	require.NoError(t, s.RunUntil(100))

	var schedErr *InvalidScheduleError
	assert.True(t, errors.As(s.RunUntil(50), &schedErr))
	assert.Equal(t, int64(100), s.Clock, "clock must not move backwards")
}

func TestAdvance_ClampsToHorizon(t *testing.T) {
	cfg := quietConfig()
	cfg.Horizon = 3
	s := newTestSimulator(t, cfg)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Advance(SecondsToTicks(1)))
	}
	assert.Equal(t, s.Horizon, s.Clock)
	assert.Error(t, s.Advance(-1))
}

func TestRun_ReachesHorizonAndTearsDown(t *testing.T) {
	// GIVEN the reference scenario
	s := newTestSimulator(t, DefaultConfig())

	// WHEN run to completion
	require.NoError(t, s.Run())

	// THEN the clock sits at the horizon and every source is stopped
	assert.Equal(t, SecondsToTicks(300), s.Clock)
	assert.True(t, s.Finished())
	assert.False(t, s.AttackActive())
	for _, src := range s.Sources {
		assert.True(t, src.Stopped(), "source %s still running", src.ID)
	}
	// 3 normal + 10 attack sources
	assert.Len(t, s.Sources, 13)
	// one sample per second, both ends included
	assert.Equal(t, 301, s.Metrics.Len())
}

func TestNewSimulator_InvalidConfig_DoesNotStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Capacity = 0

	s, err := NewSimulator(cfg)

	assert.Nil(t, s)
	var cfgErr *InvalidConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "server.capacity", cfgErr.Field)
}

func TestDeterminism_SameSeedIdenticalSeries(t *testing.T) {
	// GIVEN two simulations with identical configuration and seed
	s1 := newTestSimulator(t, DefaultConfig())
	s2 := newTestSimulator(t, DefaultConfig())

	// WHEN both run to completion
	require.NoError(t, s1.Run())
	require.NoError(t, s2.Run())

	// THEN their series are identical
	assert.Equal(t, s1.Metrics.LoadSeries(), s2.Metrics.LoadSeries())
	assert.Equal(t, s1.Metrics.DropSeries(), s2.Metrics.DropSeries())
	assert.Equal(t, s1.Server.DroppedCount(), s2.Server.DroppedCount())
}

func TestDeterminism_PollingInStepsMatchesSingleRun(t *testing.T) {
	// GIVEN the same scenario driven once in a single call and once frame by frame
	whole := newTestSimulator(t, DefaultConfig())
	stepped := newTestSimulator(t, DefaultConfig())

	require.NoError(t, whole.Run())
	for stepped.Clock < stepped.Horizon {
		require.NoError(t, stepped.Advance(SecondsToTicks(1)))
	}

	// THEN the frame size does not change the outcome
	assert.Equal(t, whole.Metrics.DropSeries(), stepped.Metrics.DropSeries())
	assert.Equal(t, whole.Metrics.LoadSeries(), stepped.Metrics.LoadSeries())
}

func TestDeterminism_DifferentSeedsDiffer(t *testing.T) {
	cfg1, cfg2 := DefaultConfig(), DefaultConfig()
	cfg2.Seed = cfg1.Seed + 1
	s1 := newTestSimulator(t, cfg1)
	s2 := newTestSimulator(t, cfg2)

	require.NoError(t, s1.Run())
	require.NoError(t, s2.Run())

	assert.NotEqual(t, s1.Metrics.DropSeries(), s2.Metrics.DropSeries())
}
