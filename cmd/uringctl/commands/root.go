package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/config"
	"github.com/brickingsoft/uring/pkg/process"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	entries    uint32
	logLevel   string
	logFormat  string
	cpu        int
	priority   string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit string) error {
	return newRootCommand(version, commit).ExecuteContext(ctx)
}

func newRootCommand(version, commit string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "uringctl",
		Short: "Drive io_uring from the command line",
		Long: `uringctl runs small programs on a single-threaded io_uring event loop.

Commands:
  - probe: report the kernel and the operations it supports
  - cat:   copy files to standard output
  - echo:  serve a TCP echo service
  - fetch: issue an HTTP/1.0 GET and print the response`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return tuneThread()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().Uint32Var(&entries, "entries", 0, "submission queue entries")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "loop log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "loop log format (json, console)")
	rootCmd.PersistentFlags().IntVar(&cpu, "cpu", -1, "pin the loop thread to this CPU")
	rootCmd.PersistentFlags().StringVar(&priority, "priority", "", "loop thread priority (idle, norm, high, realtime)")

	rootCmd.AddCommand(newProbeCommand())
	rootCmd.AddCommand(newCatCommand())
	rootCmd.AddCommand(newEchoCommand())
	rootCmd.AddCommand(newFetchCommand())

	return rootCmd
}

// tuneThread pins and renices the thread the loop will run on. Commands drive
// the loop from the goroutine cobra runs them on.
func tuneThread() error {
	if cpu >= 0 {
		if _, err := process.PinCurrentThread(cpu); err != nil {
			return err
		}
	}
	if priority != "" {
		level, err := process.ParsePriority(priority)
		if err != nil {
			return err
		}
		if cpu < 0 {
			runtime.LockOSThread()
		}
		return process.SetCurrentThreadPriority(level)
	}
	return nil
}

// loadConfig reads --config and lets the other global flags override it.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	if entries > 0 {
		cfg.Entries = entries
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLoop() (*uring.EventLoop, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	options, err := cfg.Options(nil)
	if err != nil {
		return nil, err
	}
	return uring.New(options...)
}
