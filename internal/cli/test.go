package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spanq/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on scenario name)
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []*harness.Result `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios: each builds a query and checks the SQL,
parameters, type hints or expected error code.

<scenarios> is a directory of .yaml/.yml files or a single scenario file.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unreadable scenarios)

Examples:
  spanq test ./scenarios
  spanq test ./scenarios --filter "orders_*"
  spanq test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	scenarios, err := harness.LoadDir(path)
	if err != nil {
		f.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			f.Error(ErrCodeGeneric, fmt.Sprintf("invalid filter pattern: %v", err), nil)
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
		kept := scenarios[:0]
		for _, s := range scenarios {
			if ok, _ := filepath.Match(opts.Filter, s.Name); ok {
				kept = append(kept, s)
			}
		}
		scenarios = kept
	}
	f.VerboseLog("Running %d scenario(s) from %s", len(scenarios), path)

	results, err := harness.New(f.Logger()).RunAll(scenarios)
	if err != nil {
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	result := TestResult{Scenarios: results, Total: len(results)}
	for _, r := range results {
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := f.Success(result, formatTestResult(result)); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func formatTestResult(result TestResult) string {
	if result.Total == 0 {
		return "No scenarios found.\n"
	}

	var b strings.Builder
	for _, r := range result.Scenarios {
		if r.Pass {
			fmt.Fprintf(&b, "✓ %s\n", r.Name)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n", r.Name)
		for _, e := range r.Errors {
			for _, line := range strings.Split(e, "\n") {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}

	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(&b, "✓ All scenarios passed")
	}
	return b.String()
}
