package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/floodsim/sim/trace"
)

func TestAttackScheduler_FiresExactlyOnce(t *testing.T) {
	// GIVEN a scenario with a single 3-source wave at t=150s and no baseline traffic
	cfg := quietConfig()
	cfg.Attack.Sources = 3
	s := newTestSimulator(t, cfg)
	require.Len(t, s.Attacks, 1)
	attack := s.Attacks[0]

	// WHEN the clock reaches the trigger
	require.NoError(t, s.RunUntil(SecondsToTicks(149)))
	assert.False(t, attack.Fired())
	require.NoError(t, s.RunUntil(SecondsToTicks(150)))

	// THEN the wave fired and spawned its sources
	assert.True(t, attack.Fired())
	assert.True(t, s.AttackActive())
	assert.Len(t, attack.Spawned(), 3)
	assert.Len(t, s.Sources, 3)

	// WHEN fired again
	attack.Fire(s)

	// THEN nothing new is spawned
	assert.Len(t, attack.Spawned(), 3)
	assert.Len(t, s.Sources, 3)
}

func TestAttackScheduler_FiresWhenClockJumpsPastTrigger(t *testing.T) {
	// GIVEN a wave at t=150s and an outcome trace
	cfg := quietConfig()
	cfg.Attack.Sources = 2
	s := newTestSimulator(t, cfg)
	tr := AttachTrace(s.Server, trace.TraceConfig{Level: trace.TraceLevelDecisions})

	// WHEN the caller advances straight from 0 to 200s
	require.NoError(t, s.RunUntil(SecondsToTicks(200)))

	// THEN the wave still fired, and no attack traffic predates the trigger
	require.True(t, s.Attacks[0].Fired())
	require.NotEmpty(t, tr.Trace.Admissions)
	for _, rec := range tr.Trace.Admissions {
		assert.Equal(t, string(ClassAttack), rec.Class)
		assert.GreaterOrEqual(t, rec.Clock, SecondsToTicks(150))
	}
}

func TestAttackScheduler_BeyondHorizonNeverRegistered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Attack.Start = 400
	s := newTestSimulator(t, cfg)
	assert.Empty(t, s.Attacks)

	require.NoError(t, s.Run())
	counts := s.Server.CountsByClass()
	assert.Zero(t, counts[ClassAttack])
}

func TestAttackScheduler_DurationStopsWave(t *testing.T) {
	// GIVEN a 10s wave
	cfg := quietConfig()
	cfg.Attack.Sources = 4
	cfg.Attack.Duration = 10
	s := newTestSimulator(t, cfg)
	attack := s.Attacks[0]

	// WHEN the wave has run its course
	require.NoError(t, s.RunUntil(SecondsToTicks(160)))

	// THEN its sources are stopped and the server drains
	assert.False(t, attack.Active())
	assert.False(t, s.AttackActive())
	for _, src := range attack.Spawned() {
		assert.True(t, src.Stopped())
	}
	dropped := s.Server.DroppedCount()
	require.NoError(t, s.RunUntil(SecondsToTicks(200)))
	assert.Equal(t, dropped, s.Server.DroppedCount())
	assert.Equal(t, 0, s.Server.InFlight())
}

// TestAttack_DropsIncreaseAfterStart runs the reference scenario over many seeds
// and requires the drop series to rise across the attack start in at least 95% of runs.
func TestAttack_DropsIncreaseAfterStart(t *testing.T) {
	const runs = 20
	increased := 0
	for seed := int64(1); seed <= runs; seed++ {
		cfg := DefaultConfig()
		cfg.Seed = seed
		s := newTestSimulator(t, cfg)
		require.NoError(t, s.RunUntil(SecondsToTicks(152)))

		drops := s.Metrics.DropSeries()
		before, ok := SampleAt(drops, SecondsToTicks(149))
		require.True(t, ok)
		after, ok := SampleAt(drops, SecondsToTicks(151))
		require.True(t, ok)
		if after.Value > before.Value {
			increased++
		}
	}
	assert.GreaterOrEqual(t, float64(increased)/runs, 0.95)
}

func TestAttackConfig_TriggerTimes_SingleWave(t *testing.T) {
	a := AttackConfig{Start: 150}
	got, err := a.TriggerTimes(SecondsToTicks(300))
	require.NoError(t, err)
	assert.Equal(t, []int64{SecondsToTicks(150)}, got)

	got, err = a.TriggerTimes(SecondsToTicks(100))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAttackConfig_TriggerTimes_CronWaves(t *testing.T) {
	// GIVEN waves at second 30 of every virtual minute, not before t=100s
	a := AttackConfig{Start: 100, Waves: "30 * * * * *"}

	// WHEN expanded over a 300s horizon
	got, err := a.TriggerTimes(SecondsToTicks(300))

	// THEN the activations at 150, 210 and 270s are returned
	require.NoError(t, err)
	assert.Equal(t, []int64{SecondsToTicks(150), SecondsToTicks(210), SecondsToTicks(270)}, got)
}

func TestAttackConfig_TriggerTimes_StartOnActivationIsInclusive(t *testing.T) {
	a := AttackConfig{Start: 0, Waves: "0 * * * * *"}
	got, err := a.TriggerTimes(SecondsToTicks(120))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, SecondsToTicks(60), SecondsToTicks(120)}, got)
}

func TestNewSimulator_CronWavesGetDistinctSources(t *testing.T) {
	cfg := quietConfig()
	cfg.Attack.Start = 100
	cfg.Attack.Sources = 2
	cfg.Attack.Duration = 20
	cfg.Attack.Waves = "30 * * * * *"
	s := newTestSimulator(t, cfg)
	require.Len(t, s.Attacks, 3)

	require.NoError(t, s.Run())

	names := map[string]bool{}
	for _, src := range s.Sources {
		assert.False(t, names[src.ID], "duplicate source %s", src.ID)
		names[src.ID] = true
	}
	assert.Len(t, names, 6)
}

func TestConfig_InvalidCronRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Attack.Waves = "every tuesday"
	var cfgErr *InvalidConfigurationError
	require.True(t, errors.As(cfg.Validate(), &cfgErr))
	assert.Equal(t, "attack.waves", cfgErr.Field)
}
