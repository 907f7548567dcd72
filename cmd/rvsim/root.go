package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/timing/latency"
)

type globalOptions struct {
	verbose    bool
	envFile    string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "rvsim",
		Short: "Cycle-level RV32I simulator",
		Long: `rvsim runs RV32I programs against a timing model of the memory ` +
			`system: a fixed-latency uncached port or split instruction and ` +
			`data caches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(opts.envFile)
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"log cache events at debug level")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"file of RVSIM_* settings loaded before the environment is read")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"timing configuration JSON file")

	root.AddCommand(
		newRunCmd(opts),
		newBenchCmd(opts),
		newConfigCmd(),
	)

	return root
}

// loadEnv loads path into the environment. A missing file is not an error.
// Variables already set take precedence.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
		&slog.HandlerOptions{Level: level}))
}

// timingConfig reads the configuration file, if any, applies RVSIM_*
// overrides and validates the result.
func (o *globalOptions) timingConfig() (*latency.TimingConfig, error) {
	cfg := latency.DefaultTimingConfig()
	if o.configPath != "" {
		var err error
		cfg, err = latency.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
