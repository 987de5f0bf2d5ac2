package querysql

import (
	"database/sql"
	"slices"

	"github.com/roach88/spanq/internal/ir"
)

// Result is an assembled statement: SQL text with @paramN placeholders, the
// values bound to them, and optionally their Spanner type hints.
//
// A Result is immutable once returned by Build.
type Result struct {
	SQL        string              `json:"sql"`
	Parameters map[string]any      `json:"parameters"`
	Types      map[string]TypeHint `json:"types,omitempty"`

	names []string
}

// ParameterNames returns placeholder names (without "@") in binding order.
func (r Result) ParameterNames() []string {
	if r.names != nil {
		return slices.Clone(r.names)
	}
	names := make([]string, 0, len(r.Parameters))
	for name := range r.Parameters {
		names = append(names, name)
	}
	slices.SortFunc(names, compareParamNames)
	return names
}

// NamedArgs returns the parameters as sql.NamedArg values in binding order,
// for database/sql drivers that accept @name placeholders.
func (r Result) NamedArgs() []any {
	names := r.ParameterNames()
	args := make([]any, 0, len(names))
	for _, name := range names {
		args = append(args, sql.Named(name, r.Parameters[name]))
	}
	return args
}

// Fingerprint identifies the statement shape: SQL text plus type hints.
// Builds that differ only in bound values share a fingerprint.
func (r Result) Fingerprint() (string, error) {
	var types any
	if len(r.Types) > 0 {
		types = r.Types
	}
	return ir.StatementHash(r.SQL, types)
}

// Canonical returns the canonical JSON encoding of r, used for golden files.
func (r Result) Canonical() ([]byte, error) {
	out := map[string]any{
		"sql":        r.SQL,
		"parameters": r.Parameters,
	}
	if len(r.Types) > 0 {
		out["types"] = r.Types
	}
	return ir.MarshalCanonical(out)
}

// compareParamNames orders param2 before param10.
func compareParamNames(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
