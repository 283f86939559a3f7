package config

import (
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ValidationError locates one problem in a document.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	var b strings.Builder
	if e.File != "" {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.File, e.Line, e.Column)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, "%s: ", e.Path)
	}
	b.WriteString(e.Message)
	return b.String()
}

// DocumentError collects the validation errors of a document.
type DocumentError struct {
	Errors []ValidationError
}

func (e *DocumentError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.String()
	}
	return "document validation failed: " + strings.Join(msgs, "; ")
}

// newDocumentError converts CUE errors to a DocumentError.
func newDocumentError(err error) *DocumentError {
	de := &DocumentError{}
	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: cueerrors.Details(e, nil),
		}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			ve.File = pos[0].Filename()
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		}
		de.Errors = append(de.Errors, ve)
	}
	if len(de.Errors) == 0 {
		de.Errors = append(de.Errors, ValidationError{Message: err.Error()})
	}
	return de
}
