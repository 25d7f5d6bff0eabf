package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/floodsim/sim"
	"github.com/inference-sim/floodsim/sim/live"
)

var (
	serveLogLevel string
	listenAddr    string
	frame         time.Duration
	stepSeconds   float64
	natsURL       string
	natsSubject   string

	serveScenario scenarioFlags
)

// serveCmd runs the simulation in wall-clock time and serves its state over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulation live, one virtual step per frame, with an HTTP view",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(serveLogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		err := runServe(ctx, cmd, os.Stdout)
		stop()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// runServe runs the live simulation until ctx is done. Every failure is
// returned, so deferred cleanup (NATS drain, HTTP shutdown) always runs.
func runServe(ctx context.Context, cmd *cobra.Command, out io.Writer) error {
	cfg, err := serveScenario.resolve(cmd)
	if err != nil {
		return err
	}
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return fmt.Errorf("cannot start simulation: %w", err)
	}

	var publishers []live.Publisher
	if natsURL != "" {
		pub, err := live.NewNATSPublisher(natsURL, natsSubject)
		if err != nil {
			return err
		}
		defer pub.Close()
		publishers = append(publishers, pub)
	}
	runner, err := live.NewRunner(s, sim.SecondsToTicks(stepSeconds), publishers...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	server := &http.Server{
		Addr:    listenAddr,
		Handler: live.NewRouter(runner),
	}
	go func() {
		logrus.Infof("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cancel(fmt.Errorf("could not listen on %s: %w", server.Addr, err))
		}
	}()

	runErr := runner.Run(ctx, frame)
	if runErr == nil {
		runner.Summary().Print(out)
		logrus.Info("Simulation complete; serving final state until interrupted")
		<-ctx.Done()
	}

	logrus.Info("API server shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("simulation failed: %w", runErr)
	}
	return nil
}

func init() {
	serveScenario.register(serveCmd)
	serveCmd.Flags().StringVar(&serveLogLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	serveCmd.Flags().DurationVar(&frame, "frame", time.Second, "Wall-clock duration of one frame")
	serveCmd.Flags().Float64Var(&stepSeconds, "step", 1, "Virtual seconds advanced per frame")
	serveCmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL; empty disables snapshot publishing")
	serveCmd.Flags().StringVar(&natsSubject, "nats-subject", "floodsim.snapshots", "NATS subject for per-frame snapshots")
}
