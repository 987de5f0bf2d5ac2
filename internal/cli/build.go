package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spanq/internal/compiler"
	"github.com/roach88/spanq/internal/harness"
	"github.com/roach88/spanq/internal/queryir"
	"github.com/roach88/spanq/internal/querysql"
	"github.com/roach88/spanq/internal/store"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Names  []string // queries to build; empty builds all
	Types  bool     // include type hints
	Record string   // catalog path to record statements in
}

// BuiltStatement is one built query in command output.
type BuiltStatement struct {
	Name        string                       `json:"name"`
	SQL         string                       `json:"sql"`
	Parameters  map[string]any               `json:"parameters"`
	Types       map[string]querysql.TypeHint `json:"types,omitempty"`
	Fingerprint string                       `json:"fingerprint"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <document>",
		Short: "Build SQL from a query document",
		Long: `Build parameterized Spanner SQL from a YAML, JSON or CUE query document.

Every query in the document is built unless --name selects some. A
directory is loaded as one CUE package.

Exit codes:
  0 - All queries built
  1 - One or more queries failed validation or rendering
  2 - Command error (missing document, malformed document, catalog error)

Examples:
  spanq build queries.yaml
  spanq build queries.cue --name active_users --types
  spanq build ./queries --format json --record catalog.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Names, "name", nil, "query to build (repeatable)")
	cmd.Flags().BoolVar(&opts.Types, "types", false, "include Spanner type hints")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record built statements in a SQLite catalog")

	return cmd
}

func runBuild(ctx context.Context, opts *BuildOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)
	log := f.Logger()

	doc, err := loadDocument(path)
	if err != nil {
		return reportLoadError(f, err)
	}

	names := opts.Names
	if len(names) == 0 {
		names = doc.Names()
	}
	for _, name := range names {
		if !slices.Contains(doc.Names(), name) {
			f.Error(ErrCodeNotFound, fmt.Sprintf("query %q not found in %s", name, path), doc.Names())
			return NewExitError(ExitCommandError, fmt.Sprintf("query %q not found", name))
		}
	}
	f.VerboseLog("Building %d quer(ies) from %s", len(names), path)

	var buildOpts []querysql.Option
	if opts.Types {
		buildOpts = append(buildOpts, querysql.WithTypeHints())
	}

	built := make([]BuiltStatement, 0, len(names))
	results := make([]querysql.Result, 0, len(names))
	for _, name := range names {
		res, err := buildQuery(doc, name, buildOpts)
		if err != nil {
			log.Debug("build failed", "query", name, "error", err)
			return reportBuildError(f, name, err)
		}
		fp, err := res.Fingerprint()
		if err != nil {
			return reportBuildError(f, name, err)
		}
		log.Debug("built", "query", name, "fingerprint", fp, "parameters", len(res.Parameters))
		built = append(built, BuiltStatement{
			Name:        name,
			SQL:         res.SQL,
			Parameters:  res.Parameters,
			Types:       res.Types,
			Fingerprint: fp,
		})
		results = append(results, res)
	}

	if opts.Record != "" {
		if err := recordStatements(ctx, opts.Record, names, results); err != nil {
			f.Error(ErrCodeCatalog, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record statements", err)
		}
		log.Info("recorded statements", "catalog", opts.Record, "count", len(results))
	}

	return f.Success(built, formatBuilt(built))
}

func buildQuery(doc *compiler.Document, name string, opts []querysql.Option) (querysql.Result, error) {
	q, err := doc.CompileQuery(name)
	if err != nil {
		return querysql.Result{}, err
	}
	return querysql.Build(q, opts...)
}

func recordStatements(ctx context.Context, path string, names []string, results []querysql.Result) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	for i, res := range results {
		if _, err := st.Record(ctx, names[i], res); err != nil {
			return fmt.Errorf("%s: %w", names[i], err)
		}
	}
	return nil
}

// reportBuildError prints a failed build. Validation errors list every
// violation as details.
func reportBuildError(f *OutputFormatter, name string, err error) error {
	code := harness.ErrorCode(err)
	if code == harness.CodeCompileError {
		code = ErrCodeCompile
	}

	var details any
	var ve *queryir.ValidationError
	if errors.As(err, &ve) {
		details = violationMessages(ve)
	}

	if outErr := f.Error(code, fmt.Sprintf("%s: %v", name, err), details); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, fmt.Sprintf("query %s failed", name), err)
}

func violationMessages(ve *queryir.ValidationError) []string {
	out := make([]string, 0, len(ve.Violations()))
	for _, v := range ve.Violations() {
		out = append(out, fmt.Sprintf("[%s] %s", v.Code, v.Message))
	}
	return out
}

// formatBuilt renders statements for text output:
//
//	-- active_users
//	SELECT ... WHERE active = @param1
//	  @param1 = true (bool)
func formatBuilt(built []BuiltStatement) string {
	var b strings.Builder
	for i, s := range built {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "-- %s\n%s\n", s.Name, s.SQL)

		names := make([]string, 0, len(s.Parameters))
		for name := range s.Parameters {
			names = append(names, name)
		}
		slices.SortFunc(names, func(a, b string) int {
			if len(a) != len(b) {
				return len(a) - len(b)
			}
			return strings.Compare(a, b)
		})
		for _, name := range names {
			fmt.Fprintf(&b, "  @%s = %#v", name, s.Parameters[name])
			if hint, ok := s.Types[name]; ok {
				fmt.Fprintf(&b, " (%s)", hint)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
