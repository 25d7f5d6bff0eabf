package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/floodsim/sim"
	"github.com/inference-sim/floodsim/sim/export"
	"github.com/inference-sim/floodsim/sim/trace"
)

var (
	logLevel   string   // Log verbosity level
	outPaths   []string // Series output files (.csv, .json, .yaml)
	traceLevel string   // Admission trace verbosity
	traceMax   int      // Max admission records kept

	// ClickHouse export
	chHost     string
	chPort     int
	chDatabase string
	chUser     string
	chPassword string
	chTable    string
	runID      string

	runScenario scenarioFlags
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "floodsim",
	Short: "Discrete-event simulator for a capacity-limited server under a request flood",
}

// runCmd executes the simulation to the horizon and reports the result
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the flood simulation to completion",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		cfg, err := runScenario.resolve(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level %q (want none, decisions, drops)", traceLevel)
		}

		s, err := sim.NewSimulator(cfg)
		if err != nil {
			logrus.Fatalf("Cannot start simulation: %v", err)
		}
		var tracer *sim.TraceObserver
		if tl := trace.TraceLevel(traceLevel); tl != trace.TraceLevelNone && tl != "" {
			tracer = sim.AttachTrace(s.Server, trace.TraceConfig{Level: tl, MaxRecords: traceMax})
		}

		startTime := time.Now()
		if err := s.Run(); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulated %.0fs in %v", sim.TicksToSeconds(s.Clock), time.Since(startTime))

		s.Summarize().Print(os.Stdout)
		if tracer != nil {
			printTraceSummary(trace.Summarize(tracer.Trace))
		}

		run, err := export.FromSimulator(s)
		if err != nil {
			logrus.Fatalf("Collecting series: %v", err)
		}
		for _, path := range outPaths {
			if err := export.WriteFile(path, run); err != nil {
				logrus.Fatalf("Writing %s: %v", path, err)
			}
			logrus.Infof("Series written to %s", path)
		}
		if chHost != "" {
			if err := writeClickHouse(cmd.Context(), run); err != nil {
				logrus.Fatalf("ClickHouse export: %v", err)
			}
		}

		logrus.Info("Simulation complete.")
	},
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

func writeClickHouse(ctx context.Context, run export.Run) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w, err := export.NewClickHouseWriter(ctx, export.ClickHouseConfig{
		Host:     chHost,
		Port:     chPort,
		Database: chDatabase,
		Username: chUser,
		Password: chPassword,
		Table:    chTable,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	id := runID
	if id == "" {
		id = uuid.NewString()
	}
	return w.Write(ctx, id, run)
}

func printTraceSummary(ts *trace.TraceSummary) {
	fmt.Println("=== Admission Trace ===")
	fmt.Printf("Decisions            : %d (%d admitted, %d rejected)\n", ts.TotalDecisions, ts.AdmittedCount, ts.RejectedCount)
	if ts.FirstRejectClock >= 0 {
		fmt.Printf("First Reject         : %.6f s\n", sim.TicksToSeconds(ts.FirstRejectClock))
	}
	fmt.Printf("Longest Reject Run   : %d\n", ts.LongestRejectStreak)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runScenario.register(runCmd)
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringSliceVar(&outPaths, "out", nil, "Write both series to these files; format by extension (.csv, .json, .yaml)")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Admission trace level (none, decisions, drops)")
	runCmd.Flags().IntVar(&traceMax, "trace-max", 0, "Max admission records kept (0 = unlimited)")

	// ClickHouse export
	runCmd.Flags().StringVar(&chHost, "clickhouse-host", "", "ClickHouse host; empty disables the export")
	runCmd.Flags().IntVar(&chPort, "clickhouse-port", 9000, "ClickHouse native port")
	runCmd.Flags().StringVar(&chDatabase, "clickhouse-db", "default", "ClickHouse database")
	runCmd.Flags().StringVar(&chUser, "clickhouse-user", "default", "ClickHouse user")
	runCmd.Flags().StringVar(&chPassword, "clickhouse-password", "", "ClickHouse password")
	runCmd.Flags().StringVar(&chTable, "clickhouse-table", export.DefaultTable, "ClickHouse table")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier stored with every row (default: random UUID)")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(defaultsCmd)
}
