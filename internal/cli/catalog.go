package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spanq/internal/store"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Fingerprint string // show the bindings of one statement
}

// CatalogEntry is one statement with its recorded bindings.
type CatalogEntry struct {
	store.Statement
	Bindings []store.Binding `json:"bindings"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog <db>",
		Short: "List statements recorded with build --record",
		Long: `List the statements recorded in a SQLite catalog by "spanq build --record",
in recording order, with the parameter sets seen for each.

Examples:
  spanq catalog catalog.db
  spanq catalog catalog.db --fingerprint 3f2a... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "show only this statement")

	return cmd
}

func runCatalog(ctx context.Context, opts *CatalogOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	// Open creates missing files; listing must not.
	if _, err := os.Stat(path); err != nil {
		f.Error(ErrCodeNotFound, fmt.Sprintf("catalog not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "catalog not found", err)
	}

	st, err := store.Open(path)
	if err != nil {
		f.Error(ErrCodeCatalog, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open catalog", err)
	}
	defer st.Close()

	entries, err := readCatalog(ctx, st, opts.Fingerprint)
	if err != nil {
		code := ErrCodeCatalog
		if errors.Is(err, store.ErrNotFound) {
			code = ErrCodeNotFound
		}
		f.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read catalog", err)
	}

	return f.Success(entries, formatCatalog(entries))
}

func readCatalog(ctx context.Context, st *store.Store, fingerprint string) ([]CatalogEntry, error) {
	var statements []store.Statement
	if fingerprint != "" {
		s, err := st.Statement(ctx, fingerprint)
		if err != nil {
			return nil, err
		}
		statements = []store.Statement{s}
	} else {
		var err error
		if statements, err = st.Statements(ctx); err != nil {
			return nil, err
		}
	}

	entries := make([]CatalogEntry, 0, len(statements))
	for _, s := range statements {
		bindings, err := st.Bindings(ctx, s.Fingerprint)
		if err != nil {
			return nil, err
		}
		entries = append(entries, CatalogEntry{Statement: s, Bindings: bindings})
	}
	return entries, nil
}

func formatCatalog(entries []CatalogEntry) string {
	if len(entries) == 0 {
		return "Catalog is empty.\n"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d %s\n  %s\n", e.Seq, e.Fingerprint, e.SQL)
		for _, bind := range e.Bindings {
			fmt.Fprintf(&b, "  - %s %v\n", bind.QueryName, bind.Parameters)
		}
	}
	return b.String()
}
