package chord

import (
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
)

// Factory composes Parse, Validate and Builder. It never returns a
// partially built chord.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// Create parses and validates text, failing with every validation error
// enumerated.
func (f *Factory) Create(text string) (Chord, error) {
	return f.CreateAt(text, 0)
}

// CreateAt is Create with a source offset.
func (f *Factory) CreateAt(text string, position int) (Chord, error) {
	c, _, err := f.Inspect(text)
	if err != nil {
		return Chord{}, err
	}
	if position != 0 {
		return c.ToBuilder().Position(position).Build()
	}
	return c, nil
}

// Inspect returns the chord together with the validation warnings.
func (f *Factory) Inspect(text string) (Chord, ValidationResult, error) {
	comps, err := Parse(text)
	if err != nil {
		return Chord{}, ValidationResult{}, err
	}
	result := Validate(comps)
	if !result.IsValid {
		return Chord{}, result, converr.New(converr.KindValidation, "invalid chord %q: %s",
			comps.Notation, strings.Join(result.Errors, "; ")).WithSnippet(text)
	}
	return FromComponents(comps), result, nil
}

// FromComponents builds a chord from components that passed Validate.
func FromComponents(c Components) Chord {
	b := NewBuilder().Root(c.Root).Quality(c.Quality).Bass(c.Bass).Notation(c.Notation)
	for _, e := range c.Extensions {
		b = b.Extension(e.Type, e.Value)
	}
	built, err := b.Build()
	if err != nil {
		panic("chord: validated components failed to build: " + err.Error())
	}
	return built
}

// IsValid reports whether text parses and validates cleanly enough to build.
func IsValid(text string) bool {
	comps, err := Parse(text)
	return err == nil && Validate(comps).IsValid
}

// Recognized is IsValid without opaque extensions. Strategies use it where
// a word could be lyric or chord, so "Amazing" is not read as Am.
func Recognized(text string) bool {
	comps, err := Parse(text)
	if err != nil || !Validate(comps).IsValid {
		return false
	}
	for _, e := range comps.Extensions {
		if e.Type == ExtOther {
			return false
		}
	}
	return true
}

// MustParse is Create for tests and constants.
func MustParse(text string) Chord {
	c, err := NewFactory().Create(text)
	if err != nil {
		panic(err)
	}
	return c
}
