package querysql

import (
	"errors"
	"fmt"
)

// RenderError reports a query tree that cannot be turned into SQL.
// Render errors are programming defects in the caller's tree and abort the
// whole build; no partial SQL is returned.
type RenderError struct {
	Op      string // clause or operator being rendered, e.g. "WHERE" or "IN"
	Message string
}

func (e *RenderError) Error() string {
	if e.Op == "" {
		return "render: " + e.Message
	}
	return fmt.Sprintf("render %s: %s", e.Op, e.Message)
}

func renderErrorf(op, format string, args ...any) *RenderError {
	return &RenderError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsRenderError reports whether err is or wraps a *RenderError.
func IsRenderError(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}
