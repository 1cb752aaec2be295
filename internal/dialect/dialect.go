// Package dialect parses and renders the six chord-sheet dialects. Every
// parser runs the same line walker with a per-dialect extraction strategy;
// parsers and renderers are looked up in a Registry keyed by dialect id.
package dialect

import (
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/recovery"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// Options tune a single parse.
type Options struct {
	// ID becomes the model id. A random id is generated when empty.
	ID string
	// Key is a declared key. Nashville parsing needs one and falls back to
	// a "Key:" line in the text, then to C.
	Key string
	// Recovery handles line failures. Nil means the moderate chain for the
	// parser's dialect.
	Recovery *recovery.Chain
	// Now stamps the provenance. Zero means time.Now.
	Now time.Time
}

// Result is a parse outcome. Success is false only when the document could
// not be read at all; line-level problems land in Errors and Warnings.
type Result struct {
	Success  bool                       `json:"success"`
	Model    *song.Model                `json:"model,omitempty"`
	Errors   []*converr.ConversionError `json:"errors,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
}

// Parser reads one dialect.
type Parser interface {
	Parse(text string, opts Options) Result
	IsValid(text string) bool
	SupportedFormat() song.Format
}

// RenderOptions tune a single render.
type RenderOptions struct {
	// Key overrides the model key. Nashville output needs a key.
	Key string
}

// Renderer writes one dialect.
type Renderer interface {
	Render(m *song.Model, opts RenderOptions) (string, error)
	SupportedFormat() song.Format
}
