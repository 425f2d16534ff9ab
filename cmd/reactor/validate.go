package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/reactor/internal/harness"
)

func newValidateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files without running them",
		Long: `Parses each scenario file and checks that every name it uses is declared
and that every step has exactly one action. Scripts are not evaluated.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			invalid := 0
			for _, path := range args {
				scenario, err := harness.LoadScenario(path)
				if err != nil {
					invalid++
					fmt.Fprintf(out, "✗ %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "✓ %s (%s, %d steps)\n", path, scenario.Name, len(scenario.Steps))
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d scenario files are invalid", invalid, len(args))
			}
			return nil
		},
	}
}
