// Package recovery turns line-level parse failures into usable lines by
// walking an ordered list of handlers.
package recovery

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// Input is the failing line and what is known about it.
type Input struct {
	Line       string
	LineNumber int
	Format     song.Format
	// Reparse runs the dialect's content extraction on a repaired line
	// without recovery. Handlers that rewrite text need it.
	Reparse func(line string) (song.Line, error)
}

func (in Input) reparse(line string) (song.Line, bool) {
	if in.Reparse == nil {
		return nil, false
	}
	l, err := in.Reparse(line)
	if err != nil || l == nil {
		return nil, false
	}
	return l, true
}

// Handler repairs or degrades one category of failure.
type Handler interface {
	Name() string
	CanHandle(err *converr.ConversionError) bool
	Attempt(err *converr.ConversionError, in Input) (song.Line, bool)
}

// Func adapts plain functions to Handler. A nil Match handles everything.
type Func struct {
	HandlerName string
	Match       func(err *converr.ConversionError) bool
	Fix         func(err *converr.ConversionError, in Input) (song.Line, bool)
}

func (f Func) Name() string { return f.HandlerName }

func (f Func) CanHandle(err *converr.ConversionError) bool {
	return f.Match == nil || f.Match(err)
}

func (f Func) Attempt(err *converr.ConversionError, in Input) (song.Line, bool) {
	return f.Fix(err, in)
}

// Recovery is a resolved failure. Degraded is set when only the terminal
// fallback succeeded and the line lost its markup.
type Recovery struct {
	Line     song.Line
	Handler  string
	Degraded bool
}

// Chain is an immutable ordered handler list ending in the fallback. It is
// safe to share between goroutines.
type Chain struct {
	handlers []Handler
}

// NewChain returns a chain of the given handlers followed by the fallback.
func NewChain(handlers ...Handler) *Chain {
	hs := make([]Handler, 0, len(handlers)+1)
	hs = append(hs, handlers...)
	hs = append(hs, Fallback{})
	return &Chain{handlers: hs}
}

// With returns a new chain with extra handlers inserted ahead of the
// fallback. The receiver is unchanged.
func (c *Chain) With(handlers ...Handler) *Chain {
	body := c.handlers[:len(c.handlers)-1]
	hs := make([]Handler, 0, len(c.handlers)+len(handlers))
	hs = append(hs, body...)
	hs = append(hs, handlers...)
	hs = append(hs, c.handlers[len(c.handlers)-1])
	return &Chain{handlers: hs}
}

// Names lists the handlers in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.handlers))
	for _, h := range c.handlers {
		names = append(names, h.Name())
	}
	return names
}

func (c *Chain) String() string {
	return strings.Join(c.Names(), " -> ")
}

// Recover offers err to each handler in order and returns the first
// success. Non-recoverable errors, and failures no handler resolves, come
// back as the original error unmodified. Handler panics count as failed
// attempts.
func (c *Chain) Recover(err error, in Input) (Recovery, error) {
	if err == nil {
		return Recovery{}, fmt.Errorf("recover called without an error")
	}
	ce := converr.From(err)
	if !ce.Recoverable {
		return Recovery{}, err
	}

	for _, h := range c.handlers {
		if !safeCanHandle(h, ce) {
			continue
		}
		line, ok := safeAttempt(h, ce, in)
		if ok && line != nil {
			return Recovery{Line: line, Handler: h.Name(), Degraded: h.Name() == FallbackName}, nil
		}
	}
	return Recovery{}, err
}

func safeCanHandle(h Handler, err *converr.ConversionError) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return h.CanHandle(err)
}

func safeAttempt(h Handler, err *converr.ConversionError, in Input) (line song.Line, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			line, ok = nil, false
		}
	}()
	return h.Attempt(err, in)
}

// Mode selects a preset chain.
type Mode string

const (
	ModeStrict     Mode = "strict"
	ModeModerate   Mode = "moderate"
	ModePermissive Mode = "permissive"
)

// DefaultMode is used when none is configured.
const DefaultMode = ModeModerate

// ParseMode accepts mode names case-insensitively. Empty means moderate.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultMode, nil
	case ModeStrict:
		return ModeStrict, nil
	case ModeModerate:
		return ModeModerate, nil
	case ModePermissive:
		return ModePermissive, nil
	}
	return "", fmt.Errorf("unknown recovery mode %q", s)
}

// ForMode builds the preset chain for a mode. Permissive chains add the
// handlers registered for format.
func ForMode(mode Mode, format song.Format) *Chain {
	switch mode {
	case ModeStrict:
		return NewChain(Encoding{})
	case ModePermissive:
		hs := []Handler{InvalidChord{}, MalformedSection{}, BracketBalance{}, Encoding{}}
		hs = append(hs, DialectHandlers(format)...)
		hs = append(hs, Whitespace{}, SpecialChar{})
		return NewChain(hs...)
	default:
		return NewChain(InvalidChord{}, MalformedSection{}, BracketBalance{}, Encoding{})
	}
}
