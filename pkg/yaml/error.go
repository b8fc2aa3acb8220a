package yaml

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// ErrorWrapper applies a fixed set of [ErrorOpt] to every [*Error] it wraps.
type ErrorWrapper struct {
	Opts []ErrorOpt
}

func NewErrorWrapper(opts ...ErrorOpt) *ErrorWrapper {
	return &ErrorWrapper{
		Opts: opts,
	}
}

// Wrap wraps an error with additional context for [Error]s.
// If the error isn't an [Error], it returns the original error unmodified.
func (ew *ErrorWrapper) Wrap(err error, opts ...ErrorOpt) error {
	if err == nil {
		return nil
	}

	var yamlErr *Error
	if errors.As(err, &yamlErr) {
		for _, opt := range ew.Opts {
			opt(yamlErr)
		}

		for _, opt := range opts {
			opt(yamlErr)
		}

		return yamlErr
	}

	return err
}

// Error represents a YAML error. It includes the original error, and either
// the [*yaml.Path] or the [*token.Token] where the error occurred.
type Error struct {
	Err    error
	Path   *yaml.Path
	Token  *token.Token
	Source []byte
}

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{Err: err}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

type ErrorOpt func(e *Error)

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

func (e Error) Unwrap() error {
	return e.Err
}

func (e Error) Error() string {
	if e.Err == nil {
		return ""
	}

	switch {
	case e.Token != nil:
		var pp printer.Printer

		return fmt.Sprintf("[%d:%d] %v:\n%s", e.Token.Position.Line, e.Token.Position.Column, e.Err,
			pp.PrintErrorToken(e.Token, false))

	case e.Path != nil:
		if len(e.Source) > 0 {
			annotated, err := e.Path.AnnotateSource(e.Source, false)
			if err == nil {
				return fmt.Sprintf("error at %s: %v:\n%s", e.Path.String(), e.Err, annotated)
			}
		}

		return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
	}

	return e.Err.Error()
}
