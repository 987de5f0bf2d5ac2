package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/spanq/internal/compiler"
)

// LoadError is a document load failure with its CLI error code.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// loadDocument loads a query document, classifying failures as not found,
// malformed or undecodable.
func loadDocument(path string) (*compiler.Document, error) {
	doc, err := compiler.LoadFile(path)
	if err == nil {
		return doc, nil
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path), Err: err}
	default:
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: ce.Error(), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
	}
}

// reportLoadError prints a load failure and returns the matching exit error.
func reportLoadError(f *OutputFormatter, err error) error {
	var le *LoadError
	if !errors.As(err, &le) {
		le = &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
	}
	if outErr := f.Error(le.Code, le.Message, nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "failed to load document", err)
}
