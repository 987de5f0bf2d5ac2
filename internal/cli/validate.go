package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/spanq/internal/compiler"
	"github.com/roach88/spanq/internal/queryir"
)

// QueryValidation is the validation outcome of one query.
type QueryValidation struct {
	Name     string      `json:"name"`
	Valid    bool        `json:"valid"`
	Position string      `json:"position,omitempty"`
	Errors   []Violation `json:"errors,omitempty"`
}

// Violation is one reported problem.
type Violation struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Constraint string `json:"constraint,omitempty"`
}

// ValidationResult holds validation results for a document.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Queries []QueryValidation `json:"queries"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Validate every query in a document without building SQL",
		Long: `Validate every query in a YAML, JSON or CUE query document.

All violations of every query are reported, not just the first one.

Exit codes:
  0 - All queries are valid
  1 - One or more queries are invalid
  2 - Command error (missing or undecodable document)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	doc, err := loadDocument(path)
	if err != nil {
		return reportLoadError(f, err)
	}
	f.VerboseLog("Validating %d quer(ies) from %s", len(doc.Names()), path)

	result := ValidationResult{Valid: true, Queries: make([]QueryValidation, 0, len(doc.Names()))}
	for _, name := range doc.Names() {
		qv := validateQuery(doc, name)
		if !qv.Valid {
			result.Valid = false
		}
		result.Queries = append(result.Queries, qv)
	}

	if !result.Valid {
		if f.Format == "json" {
			if err := f.Error(ErrCodeInvalidQuery, "validation failed", result); err != nil {
				return err
			}
		} else if err := f.Success(nil, formatValidation(result)); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	}
	return f.Success(result, formatValidation(result))
}

func validateQuery(doc *compiler.Document, name string) QueryValidation {
	qv := QueryValidation{Name: name, Valid: true}
	if pos, ok := doc.Position(name); ok && pos.IsValid() {
		qv.Position = pos.String()
	}

	q, err := doc.CompileQuery(name)
	if err == nil {
		_, err = queryir.ValidateSelectQuery(q)
	}
	if err == nil {
		return qv
	}

	qv.Valid = false
	var ve *queryir.ValidationError
	var ce *compiler.CompileError
	switch {
	case errors.As(err, &ve):
		for _, v := range ve.Violations() {
			qv.Errors = append(qv.Errors, Violation{
				Code:       string(v.Code),
				Message:    v.Message,
				Constraint: v.Details.Constraint,
			})
		}
	case errors.As(err, &ce):
		qv.Errors = append(qv.Errors, Violation{Code: ErrCodeCompile, Message: ce.Error()})
	default:
		qv.Errors = append(qv.Errors, Violation{Code: ErrCodeGeneric, Message: err.Error()})
	}
	return qv
}

func formatValidation(result ValidationResult) string {
	var b strings.Builder
	invalid := 0
	for _, q := range result.Queries {
		if q.Valid {
			fmt.Fprintf(&b, "✓ %s\n", q.Name)
			continue
		}
		invalid++
		fmt.Fprintf(&b, "✗ %s", q.Name)
		if q.Position != "" {
			fmt.Fprintf(&b, " (%s)", q.Position)
		}
		b.WriteByte('\n')
		for _, e := range q.Errors {
			fmt.Fprintf(&b, "  [%s] %s\n", e.Code, e.Message)
		}
	}
	if invalid == 0 {
		fmt.Fprintf(&b, "All %d queries valid\n", len(result.Queries))
	} else {
		fmt.Fprintf(&b, "%d of %d queries invalid\n", invalid, len(result.Queries))
	}
	return b.String()
}
