package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/attune/internal/loadgen"
	"github.com/okian/attune/pkg/logger"
)

// Default configuration constants.
const (
	defaultSubjects = 20
	defaultFrames   = 120
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 30 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the loadgen command with its flags bound to a fresh
// config.
func newRootCmd() *cobra.Command {
	cfg := &loadgen.Config{}
	var (
		verbose bool
		limit   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Drive an attune service with synthetic landmark frames",
		Long: `Generate per-subject face trajectories, post them to a running attune
service and report throughput. With --workflows each subject also runs one
adaptation workflow over its stored history.

Modes:
  analyze - POST /v1/analyze, one synchronous result per frame
  submit  - POST /v1/frames, queued for the worker pool`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if verbose {
				_ = logger.SetLevelString("debug")
			}
			cfg.Verbose = verbose

			ctx, cancel := context.WithTimeout(cmd.Context(), limit)
			defer cancel()
			_, err := loadgen.Run(ctx, cfg)
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	flags.IntVar(&cfg.Subjects, "subjects", defaultSubjects, "Number of simulated subjects")
	flags.IntVar(&cfg.Frames, "frames", defaultFrames, "Frames per subject")
	flags.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent senders")
	flags.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	flags.StringVar(&cfg.Mode, "mode", loadgen.ModeAnalyze, "Submission mode: analyze or submit")
	flags.BoolVar(&cfg.Workflows, "workflows", false, "Run one workflow per subject after the frames")
	flags.Uint64Var(&cfg.Seed, "seed", 1, "Seed for the face trajectories")
	flags.StringVar(&cfg.OutputFile, "output", "", "Write the generated frames to this JSON file")
	flags.DurationVar(&limit, "limit", defaultRunLimit, "Overall time limit for the run")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}
