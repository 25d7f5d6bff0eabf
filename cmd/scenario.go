package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inference-sim/floodsim/sim"
)

// scenarioFlags are the simulation parameters shared by run and serve.
// A flag overrides the config file only when set explicitly.
type scenarioFlags struct {
	configPath string

	seed           int64
	horizon        float64
	sampleInterval float64

	capacity       int
	processingTime float64

	clients            int
	clientInterarrival float64

	attackStart        float64
	attackSources      int
	attackInterarrival float64
	attackDuration     float64
	attackWaves        string
}

func (f *scenarioFlags) register(cmd *cobra.Command) {
	d := sim.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "YAML scenario file; flags given explicitly override it")

	flags.Int64Var(&f.seed, "seed", d.Seed, "Seed for all random streams")
	flags.Float64Var(&f.horizon, "horizon", d.Horizon, "Virtual seconds to simulate")
	flags.Float64Var(&f.sampleInterval, "sample-interval", d.SampleInterval, "Virtual seconds between metric samples")

	// Server
	flags.IntVar(&f.capacity, "capacity", d.Server.Capacity, "Max concurrent requests the server holds")
	flags.Float64Var(&f.processingTime, "processing-time", d.Server.ProcessingTime, "Virtual seconds each admitted request holds capacity")

	// Normal traffic
	flags.IntVar(&f.clients, "clients", d.Normal.Clients, "Number of normal clients")
	flags.Float64Var(&f.clientInterarrival, "client-interarrival", d.Normal.MeanInterarrival, "Mean seconds between requests of one normal client")

	// Attack
	flags.Float64Var(&f.attackStart, "attack-start", d.Attack.Start, "Virtual second the attack starts")
	flags.IntVar(&f.attackSources, "attack-sources", d.Attack.Sources, "Attacker sources per wave")
	flags.Float64Var(&f.attackInterarrival, "attack-interarrival", d.Attack.MeanInterarrival, "Mean seconds between requests of one attacker")
	flags.Float64Var(&f.attackDuration, "attack-duration", d.Attack.Duration, "Seconds each wave lasts (0 = until the end)")
	flags.StringVar(&f.attackWaves, "attack-waves", d.Attack.Waves, "Cron expression for recurring waves, e.g. \"30 * * * * *\"")
}

// resolve builds the configuration: defaults, then the config file, then explicit flags.
func (f *scenarioFlags) resolve(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if f.configPath != "" {
		loaded, err := sim.LoadConfig(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("loading %s: %w", f.configPath, err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("horizon") {
		cfg.Horizon = f.horizon
	}
	if changed("sample-interval") {
		cfg.SampleInterval = f.sampleInterval
	}
	if changed("capacity") {
		cfg.Server.Capacity = f.capacity
	}
	if changed("processing-time") {
		cfg.Server.ProcessingTime = f.processingTime
	}
	if changed("clients") {
		cfg.Normal.Clients = f.clients
	}
	if changed("client-interarrival") {
		cfg.Normal.MeanInterarrival = f.clientInterarrival
	}
	if changed("attack-start") {
		cfg.Attack.Start = f.attackStart
	}
	if changed("attack-sources") {
		cfg.Attack.Sources = f.attackSources
	}
	if changed("attack-interarrival") {
		cfg.Attack.MeanInterarrival = f.attackInterarrival
	}
	if changed("attack-duration") {
		cfg.Attack.Duration = f.attackDuration
	}
	if changed("attack-waves") {
		cfg.Attack.Waves = f.attackWaves
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
