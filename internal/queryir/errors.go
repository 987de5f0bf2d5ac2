package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes validation failures.
type ErrorCode string

const (
	// ErrCodeInvalidTableName indicates a table or schema name that cannot be embedded in SQL.
	ErrCodeInvalidTableName ErrorCode = "INVALID_TABLE_NAME"

	// ErrCodeInvalidTableAlias indicates a table alias that cannot be embedded in SQL.
	ErrCodeInvalidTableAlias ErrorCode = "INVALID_TABLE_ALIAS"

	// ErrCodeInvalidSelectQuery indicates a structurally invalid query. It is also
	// the code of the aggregate error returned by ValidateSelectQuery.
	ErrCodeInvalidSelectQuery ErrorCode = "INVALID_SELECT_QUERY"

	// ErrCodeInvalidHavingClause indicates HAVING without a non-empty GROUP BY.
	ErrCodeInvalidHavingClause ErrorCode = "INVALID_HAVING_CLAUSE"
)

// Constraint names reported in Details.Constraint.
const (
	ConstraintType            = "type"
	ConstraintRequired        = "required"
	ConstraintMaxLength       = "max_length"
	ConstraintPattern         = "pattern"
	ConstraintReservedKeyword = "reserved_keyword"
	ConstraintDuplicateAlias  = "duplicate_alias"
	ConstraintGroupBy         = "group_by_required"
	ConstraintFromRequired    = "from_required"
	ConstraintNonNegative     = "non_negative"
	ConstraintLimitRequired   = "limit_required"
	ConstraintKnownValue      = "known_value"
)

// aggregateMessage prefixes the combined message of an aggregate failure.
const aggregateMessage = "select query validation failed"

// Details carries machine-readable context for a ValidationError.
type Details struct {
	// Value is the offending input, if any.
	Value any `json:"value,omitempty"`

	// Constraint names the rule that was violated.
	Constraint string `json:"constraint,omitempty"`

	// Alias is set for duplicate-alias failures.
	Alias string `json:"alias,omitempty"`

	// Errors lists the individual failures of an aggregate error.
	Errors []*ValidationError `json:"errors,omitempty"`
}

// ValidationError is a typed validation failure.
//
// Validators return it as an ordinary error value; nothing in this package
// panics on invalid input.
type ValidationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details Details   `json:"details"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Violations returns the individual failures of an aggregate error, or the
// error itself when it is not an aggregate.
func (e *ValidationError) Violations() []*ValidationError {
	if len(e.Details.Errors) > 0 {
		return e.Details.Errors
	}
	return []*ValidationError{e}
}

func newValidationError(code ErrorCode, constraint string, value any, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: Details{Value: value, Constraint: constraint},
	}
}

// newAggregateError combines child failures into one error whose message
// joins the child messages.
func newAggregateError(errs []*ValidationError) *ValidationError {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return &ValidationError{
		Code:    ErrCodeInvalidSelectQuery,
		Message: aggregateMessage + ": " + strings.Join(msgs, "; "),
		Details: Details{Errors: errs},
	}
}

// HasCode reports whether err is a *ValidationError with the given code, or
// an aggregate containing one. Uses errors.As to handle wrapped errors.
func HasCode(err error, code ErrorCode) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	if ve.Code == code {
		return true
	}
	for _, child := range ve.Details.Errors {
		if child.Code == code {
			return true
		}
	}
	return false
}

// IsHavingError returns true if err reports HAVING without GROUP BY.
func IsHavingError(err error) bool {
	return HasCode(err, ErrCodeInvalidHavingClause)
}
