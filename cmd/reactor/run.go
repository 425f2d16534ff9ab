package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/reactor/internal/harness"
	"github.com/AnatoleLucet/reactor/metrics"
)

type runOptions struct {
	*rootOptions
	Metrics bool
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios and print their traces",
		Long: `Runs each scenario on a fresh runtime and prints its trace.

A scenario whose expectations fail still prints the trace up to the failing step.

Examples:
  reactor run testdata/scenarios/formula-memo.yaml
  reactor run --metrics scenarios/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics of the runs after the traces")

	return cmd
}

func runScenarios(opts *runOptions, paths []string, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	runOpts := []harness.RunOption{harness.WithLogger(opts.logger(cmd))}

	registry := prometheus.NewRegistry()
	if opts.Metrics {
		runOpts = append(runOpts, harness.WithObserver(metrics.New(metrics.WithRegistry(registry))))
	}

	failed := 0
	for i, path := range paths {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if i > 0 {
			fmt.Fprintln(out)
		}

		result, err := harness.Run(cmd.Context(), scenario, runOpts...)
		if result != nil {
			fmt.Fprint(out, result.Trace)
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", scenario.Name, err)
		}
	}

	if opts.Metrics {
		if err := writeMetrics(cmd, registry); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(paths))
	}
	return nil
}

func writeMetrics(cmd *cobra.Command, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}
