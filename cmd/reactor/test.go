package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/reactor/internal/harness"
)

type testOptions struct {
	*rootOptions
	Golden string
	Update bool
}

func newTestCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &testOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenarios and compare their traces with golden files",
		Long: `Runs every *.yaml scenario of a directory and compares each trace with
<golden>/<name>.golden. A scenario passes when its expectations hold and its
trace matches.

Examples:
  reactor test internal/harness/testdata/scenarios --golden internal/harness/testdata/golden
  reactor test scenarios --update`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden files directory (default: <scenarios-dir>/../golden)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden files with the current traces")

	return cmd
}

func runTests(opts *testOptions, dir string, cmd *cobra.Command) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("listing scenarios: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no scenarios found in %s", dir)
	}

	golden := opts.Golden
	if golden == "" {
		golden = filepath.Join(filepath.Dir(filepath.Clean(dir)), "golden")
	}

	out := cmd.OutOrStdout()
	logger := opts.logger(cmd)

	failed := 0
	for _, file := range files {
		if err := testScenario(cmd, file, golden, opts.Update, harness.WithLogger(logger)); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n%s\n", filepath.Base(file), indent(err.Error()))
			continue
		}
		fmt.Fprintf(out, "PASS %s\n", filepath.Base(file))
	}

	fmt.Fprintf(out, "\n%d passed, %d failed\n", len(files)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(files))
	}
	return nil
}

func testScenario(cmd *cobra.Command, file, golden string, update bool, opts ...harness.RunOption) error {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return err
	}

	result, err := harness.Run(cmd.Context(), scenario, opts...)
	if err != nil {
		return err
	}

	path := filepath.Join(golden, scenario.Name+".golden")
	if update {
		if err := os.MkdirAll(golden, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", golden, err)
		}
		return os.WriteFile(path, []byte(result.Trace), 0o644)
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("golden file %s does not exist, run with --update to create it", path)
	}
	if err != nil {
		return err
	}

	if string(want) != result.Trace {
		var diff strings.Builder
		writeDiff(&diff, string(want), result.Trace)
		return fmt.Errorf("trace differs from %s:\n%s", path, diff.String())
	}
	return nil
}

// writeDiff writes a line diff of want and got, prefixing removed lines with
// "-" and added lines with "+".
func writeDiff(w io.Writer, want, got string) {
	dmp := diffmatchpatch.New()

	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line != "" {
				fmt.Fprint(w, prefix+line)
			}
		}
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}
