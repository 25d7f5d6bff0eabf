package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// TicksPerSecond is the resolution of the virtual clock (1 tick = 1µs).
const TicksPerSecond = 1_000_000

// SecondsToTicks converts virtual seconds to clock ticks, rounding to the nearest tick.
func SecondsToTicks(s float64) int64 {
	return int64(math.Round(s * TicksPerSecond))
}

// MaxTicks bounds every configured duration and every single draw, so that
// the clock plus any one of them still fits in an int64.
const MaxTicks = math.MaxInt64 / 4

// MaxSeconds is MaxTicks in virtual seconds.
const MaxSeconds = float64(MaxTicks) / TicksPerSecond

// MaxAttackWaves caps how many triggers a cron wave expression may expand to.
const MaxAttackWaves = 1000

// TicksToSeconds converts clock ticks to virtual seconds.
func TicksToSeconds(t int64) float64 {
	return float64(t) / TicksPerSecond
}

// ServerConfig groups the admission-controlled resource parameters.
type ServerConfig struct {
	Capacity       int     `yaml:"capacity"`        // max concurrent requests (must be > 0)
	ProcessingTime float64 `yaml:"processing_time"` // seconds each admitted request holds capacity (must be > 0)
}

// ClientConfig groups the baseline (benign) traffic parameters.
type ClientConfig struct {
	Clients          int     `yaml:"clients"`           // number of perpetual normal sources
	MeanInterarrival float64 `yaml:"mean_interarrival"` // seconds between requests of one source
}

// AttackConfig groups the attacker traffic parameters.
type AttackConfig struct {
	Start            float64 `yaml:"start"`             // seconds; first (or only) wave trigger
	Sources          int     `yaml:"sources"`           // attacker sources spawned per wave
	MeanInterarrival float64 `yaml:"mean_interarrival"` // seconds between requests of one attacker
	Duration         float64 `yaml:"duration"`          // seconds a wave lasts; 0 = until the end
	Waves            string  `yaml:"waves,omitempty"`   // optional cron expression for recurring waves
}

// Config is the full, construction-time configuration of a simulation run.
// There is no dynamic reconfiguration.
type Config struct {
	Seed           int64        `yaml:"seed"`
	Horizon        float64      `yaml:"horizon"`         // seconds of virtual time to simulate
	SampleInterval float64      `yaml:"sample_interval"` // seconds between metric samples
	Server         ServerConfig `yaml:"server"`
	Normal         ClientConfig `yaml:"normal"`
	Attack         AttackConfig `yaml:"attack"`
}

// DefaultConfig returns the reference scenario: a 10-slot server with
// one-second requests, three clients averaging one request every 2s, and ten
// attackers averaging one request every 30ms from t=150s of a 300s run.
func DefaultConfig() Config {
	return Config{
		Seed:           42,
		Horizon:        300,
		SampleInterval: 1,
		Server: ServerConfig{
			Capacity:       10,
			ProcessingTime: 1,
		},
		Normal: ClientConfig{
			Clients:          3,
			MeanInterarrival: 2,
		},
		Attack: AttackConfig{
			Start:            150,
			Sources:          10,
			MeanInterarrival: 0.03,
		},
	}
}

// LoadConfig reads a YAML scenario on top of DefaultConfig.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks every field. The returned error is an *InvalidConfigurationError.
func (c Config) Validate() error {
	if err := validateFinitePositive("horizon", c.Horizon); err != nil {
		return err
	}
	if err := validateFinitePositive("sample_interval", c.SampleInterval); err != nil {
		return err
	}
	if SecondsToTicks(c.SampleInterval) < 1 {
		return invalidConfig("sample_interval", "must be at least one tick (1µs), got %g", c.SampleInterval)
	}
	if c.Server.Capacity <= 0 {
		return invalidConfig("server.capacity", "must be positive, got %d", c.Server.Capacity)
	}
	if err := validateFinitePositive("server.processing_time", c.Server.ProcessingTime); err != nil {
		return err
	}
	if SecondsToTicks(c.Server.ProcessingTime) < 1 {
		return invalidConfig("server.processing_time", "must be at least one tick (1µs), got %g", c.Server.ProcessingTime)
	}
	if c.Normal.Clients < 0 {
		return invalidConfig("normal.clients", "must be non-negative, got %d", c.Normal.Clients)
	}
	if err := validateFinitePositive("normal.mean_interarrival", c.Normal.MeanInterarrival); err != nil {
		return err
	}
	if c.Attack.Sources < 0 {
		return invalidConfig("attack.sources", "must be non-negative, got %d", c.Attack.Sources)
	}
	if err := validateFinitePositive("attack.mean_interarrival", c.Attack.MeanInterarrival); err != nil {
		return err
	}
	if err := validateFiniteNonNegative("attack.start", c.Attack.Start); err != nil {
		return err
	}
	if err := validateFiniteNonNegative("attack.duration", c.Attack.Duration); err != nil {
		return err
	}
	if c.Attack.Waves != "" {
		if _, err := c.Attack.TriggerTimes(SecondsToTicks(c.Horizon)); err != nil {
			return err
		}
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return invalidConfig(name, "must be a finite number, got %f", val)
	}
	if val <= 0 {
		return invalidConfig(name, "must be positive, got %f", val)
	}
	if val > MaxSeconds {
		return invalidConfig(name, "must be at most %g seconds, got %g", MaxSeconds, val)
	}
	return nil
}

func validateFiniteNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return invalidConfig(name, "must be a finite number, got %f", val)
	}
	if val < 0 {
		return invalidConfig(name, "must be non-negative, got %f", val)
	}
	if val > MaxSeconds {
		return invalidConfig(name, "must be at most %g seconds, got %g", MaxSeconds, val)
	}
	return nil
}

// waveParser accepts standard five-field cron, an optional leading seconds
// field, and descriptors such as @hourly.
var waveParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// TriggerTimes returns the attack wave start times (ticks) that fall within the horizon.
// An expression activating more than MaxAttackWaves times within the horizon is rejected.
// Without Waves there is at most one trigger, at Start. With Waves, every cron
// activation at or after Start is a trigger, virtual time zero being the Unix epoch.
func (a AttackConfig) TriggerTimes(horizon int64) ([]int64, error) {
	start := SecondsToTicks(a.Start)
	if a.Waves == "" {
		if start > horizon {
			return nil, nil
		}
		return []int64{start}, nil
	}

	schedule, err := waveParser.Parse(a.Waves)
	if err != nil {
		return nil, invalidConfig("attack.waves", "is not a valid cron expression: %v", err)
	}
	var triggers []int64
	// time.Duration overflows past 292 years; work in Unix microseconds.
	cur := time.UnixMicro(start).UTC().Add(-time.Nanosecond)
	for {
		next := schedule.Next(cur)
		if next.IsZero() {
			break
		}
		at := next.UnixMicro()
		if at > horizon {
			break
		}
		if len(triggers) == MaxAttackWaves {
			return nil, invalidConfig("attack.waves", "activates more than %d times within the horizon", MaxAttackWaves)
		}
		triggers = append(triggers, at)
		cur = next
	}
	return triggers, nil
}
