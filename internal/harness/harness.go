package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/spanq/internal/compiler"
	"github.com/roach88/spanq/internal/ir"
	"github.com/roach88/spanq/internal/queryir"
	"github.com/roach88/spanq/internal/querysql"
)

// Error codes for failures that are not validation errors.
const (
	CodeCompileError = "COMPILE_ERROR"
	CodeRenderError  = "RENDER_ERROR"
	CodeUnknown      = "UNKNOWN_ERROR"
)

// Result is the outcome of one scenario.
type Result struct {
	Name string `json:"name"`

	// Pass is true when every expectation and assertion holds.
	Pass bool `json:"pass"`

	SQL        string                       `json:"sql,omitempty"`
	Parameters map[string]any               `json:"parameters,omitempty"`
	Types      map[string]querysql.TypeHint `json:"types,omitempty"`

	// ErrorCode is set when the build failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors lists every failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult(name string) *Result {
	return &Result{Name: name, Pass: true, Errors: []string{}}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness runs scenarios.
type Harness struct {
	logger *slog.Logger
}

// New returns a Harness that logs to logger. A nil logger discards.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with a silent harness.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(scenario)
}

// Run builds the scenario's query and checks it against the expectations.
//
// A build failure is an outcome, not an error: it is recorded in
// Result.ErrorCode and judged against expect.error_code. The returned error
// is reserved for scenarios that cannot run at all, such as a missing
// document.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	log := h.logger.With("scenario", scenario.Name)
	log.Debug("running scenario", "document", scenario.Document, "query", scenario.Query)

	q, err := h.loadQuery(scenario)
	result := NewResult(scenario.Name)
	if err != nil {
		var ce *compiler.CompileError
		if !errors.As(err, &ce) {
			return nil, err
		}
		result.ErrorCode = CodeCompileError
		log.Debug("compile failed", "error", err)
		if scenario.Expect.ErrorCode != CodeCompileError {
			result.AddError("compile failed: %v", err)
		}
	} else {
		var opts []querysql.Option
		if scenario.TypeHints {
			opts = append(opts, querysql.WithTypeHints())
		}
		res, err := querysql.Build(q, opts...)
		if err != nil {
			result.ErrorCode = ErrorCode(err)
			log.Debug("build failed", "code", result.ErrorCode, "error", err)
			if scenario.Expect.ErrorCode == "" {
				result.AddError("build failed: %v", err)
			} else if !matchesCode(err, result.ErrorCode, scenario.Expect.ErrorCode) {
				result.AddError("error code: expected %s, got %s (%v)", scenario.Expect.ErrorCode, result.ErrorCode, err)
			}
		} else {
			result.SQL = res.SQL
			result.Parameters = res.Parameters
			result.Types = res.Types
			h.checkExpect(scenario, res, result)
			for _, a := range scenario.Assertions {
				if err := evaluate(a, res); err != nil {
					result.AddError("%v", err)
				}
			}
		}
	}

	if result.Pass {
		log.Info("scenario passed")
	} else {
		log.Warn("scenario failed", "errors", len(result.Errors))
	}
	return result, nil
}

// RunAll runs every scenario in order.
func (h *Harness) RunAll(scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		r, err := h.Run(s)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}

func (h *Harness) loadQuery(s *Scenario) (queryir.SelectQuery, error) {
	if s.Inline != nil {
		q, err := s.Inline.Compile()
		if err != nil {
			return queryir.SelectQuery{}, err
		}
		return q, nil
	}
	doc, err := compiler.LoadFile(s.Document)
	if err != nil {
		return queryir.SelectQuery{}, fmt.Errorf("load document: %w", err)
	}
	return doc.CompileQuery(s.Query)
}

// checkExpect compares a successful build with the scenario's expect block.
func (h *Harness) checkExpect(s *Scenario, res querysql.Result, result *Result) {
	if s.Expect.ErrorCode != "" {
		result.AddError("expected error %s, build succeeded", s.Expect.ErrorCode)
		return
	}
	if res.SQL != s.Expect.SQL {
		result.AddError("sql:\n  expected: %s\n  actual:   %s", s.Expect.SQL, res.SQL)
	}
	if s.Expect.Parameters != nil {
		if err := canonicalEqual("parameters", s.Expect.Parameters, res.Parameters); err != nil {
			result.AddError("%v", err)
		}
	}
	if s.Expect.Types != nil {
		var actual any = map[string]querysql.TypeHint{}
		if res.Types != nil {
			actual = res.Types
		}
		if err := canonicalEqual("types", s.Expect.Types, actual); err != nil {
			result.AddError("%v", err)
		}
	}
}

// ErrorCode classifies a build error: the ValidationError code, or
// RENDER_ERROR, COMPILE_ERROR or UNKNOWN_ERROR.
func ErrorCode(err error) string {
	var ve *queryir.ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	if querysql.IsRenderError(err) {
		return CodeRenderError
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return CodeCompileError
	}
	return CodeUnknown
}

// matchesCode accepts the top-level code or, for an aggregate validation
// error, any of its violation codes.
func matchesCode(err error, actual, expected string) bool {
	return actual == expected || queryir.HasCode(err, queryir.ErrorCode(expected))
}

// canonicalEqual compares two values by their canonical JSON encoding.
func canonicalEqual(what string, expected, actual any) error {
	want, err := ir.MarshalCanonical(expected)
	if err != nil {
		return fmt.Errorf("%s: encode expected: %w", what, err)
	}
	got, err := ir.MarshalCanonical(actual)
	if err != nil {
		return fmt.Errorf("%s: encode actual: %w", what, err)
	}
	if !bytes.Equal(want, got) {
		return fmt.Errorf("%s:\n  expected: %s\n  actual:   %s", what, want, got)
	}
	return nil
}
