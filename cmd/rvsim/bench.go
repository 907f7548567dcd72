package main

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/benchmarks"
)

type benchOptions struct {
	csv      bool
	json     bool
	uncached bool
	core     bool
}

func newBenchCmd(global *globalOptions) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in microbenchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, global, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.csv, "csv", false, "print results as CSV")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&opts.uncached, "uncached", false,
		"use the uncached port instead of the caches")
	cmd.Flags().BoolVar(&opts.core, "core", false,
		"run only the core benchmark subset")
	cmd.MarkFlagsMutuallyExclusive("csv", "json")

	return cmd
}

func runBench(cmd *cobra.Command, global *globalOptions, opts *benchOptions) error {
	timing, err := global.timingConfig()
	if err != nil {
		return err
	}

	config := benchmarks.DefaultConfig()
	config.Timing = timing
	config.Uncached = opts.uncached
	config.Output = cmd.OutOrStdout()
	config.Logger = global.logger(cmd)

	harness := benchmarks.NewHarness(config)
	if opts.core {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	results := harness.RunAll()

	switch {
	case opts.json:
		return harness.PrintJSON(results)
	case opts.csv:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	return nil
}
