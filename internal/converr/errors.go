// Package converr defines the closed error taxonomy shared by every
// conversion stage.
package converr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the category of a conversion failure.
type Kind string

const (
	KindParse      Kind = "parse"
	KindValidation Kind = "validation"
	KindFormat     Kind = "format"
	KindKey        Kind = "key"
	KindRender     Kind = "render"
	KindTranspose  Kind = "transpose"
	KindConversion Kind = "conversion"
	KindFile       Kind = "file"
	KindUnknown    Kind = "unknown"
)

// Kinds lists the taxonomy in declaration order.
var Kinds = []Kind{
	KindParse, KindValidation, KindFormat, KindKey, KindRender,
	KindTranspose, KindConversion, KindFile, KindUnknown,
}

var recoverableByDefault = map[Kind]bool{
	KindParse:      true,
	KindValidation: true,
	KindFormat:     true,
}

// ConversionError is the error value surfaced in conversion results.
type ConversionError struct {
	Kind        Kind   `json:"kind"`
	Message     string `json:"message"`
	Line        *int   `json:"line,omitempty"`
	Column      *int   `json:"column,omitempty"`
	Suggestion  string `json:"suggestion,omitempty"`
	Recoverable bool   `json:"recoverable"`
	Snippet     string `json:"snippet,omitempty"`

	cause error
}

// New creates an error whose recoverable flag follows the kind's default:
// parse, validation and format failures are recoverable.
func New(kind Kind, format string, args ...interface{}) *ConversionError {
	return &ConversionError{
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
		Recoverable: recoverableByDefault[kind],
	}
}

// Wrap converts any error into a ConversionError. Existing ConversionErrors
// in the chain are returned as-is.
func Wrap(kind Kind, err error) *ConversionError {
	if err == nil {
		return nil
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce
	}
	e := New(kind, "%s", err.Error())
	e.cause = err
	return e
}

// From is Wrap with KindUnknown.
func From(err error) *ConversionError {
	return Wrap(KindUnknown, err)
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Line != nil {
		fmt.Fprintf(&b, " at line %d", *e.Line)
		if e.Column != nil {
			fmt.Fprintf(&b, ", column %d", *e.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *ConversionError) Unwrap() error { return e.cause }

func (e *ConversionError) clone() *ConversionError {
	c := *e
	return &c
}

// AtLine returns a copy positioned at a 1-based line.
func (e *ConversionError) AtLine(line int) *ConversionError {
	c := e.clone()
	c.Line = &line
	return c
}

// AtColumn returns a copy positioned at a 1-based column.
func (e *ConversionError) AtColumn(col int) *ConversionError {
	c := e.clone()
	c.Column = &col
	return c
}

func (e *ConversionError) WithSuggestion(s string) *ConversionError {
	c := e.clone()
	c.Suggestion = s
	return c
}

func (e *ConversionError) WithSnippet(s string) *ConversionError {
	c := e.clone()
	c.Snippet = s
	return c
}

// WithCause records the underlying error for errors.Is/As.
func (e *ConversionError) WithCause(err error) *ConversionError {
	c := e.clone()
	c.cause = err
	return c
}

// Fatal returns a non-recoverable copy.
func (e *ConversionError) Fatal() *ConversionError {
	c := e.clone()
	c.Recoverable = false
	return c
}

// LineNumber returns the line or 0.
func (e *ConversionError) LineNumber() int {
	if e.Line == nil {
		return 0
	}
	return *e.Line
}

// IsKind reports whether err carries a ConversionError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *ConversionError
	return errors.As(err, &ce) && ce.Kind == kind
}
