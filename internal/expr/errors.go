package expr

import "fmt"

// RenderError is returned when a template fails to render. It carries the
// failing expression so callers can attribute the failure to a specific
// label/bundle without aborting unrelated work.
type RenderError struct {
	Expr  string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.Expr, e.Cause)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// ParseError is returned when a template's syntax cannot be parsed.
type ParseError struct {
	Source string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse template %q: %v", e.Source, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
