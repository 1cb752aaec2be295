// Package chord models letter-name chords: parsing, validation, building
// and the Nashville-number variant.
package chord

import (
	"encoding/json"
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
)

// Quality is one of the six canonical chord qualities.
type Quality string

const (
	Major      Quality = "MAJOR"
	Minor      Quality = "MINOR"
	Diminished Quality = "DIMINISHED"
	Augmented  Quality = "AUGMENTED"
	Suspended  Quality = "SUSPENDED"
	Dominant   Quality = "DOMINANT"
)

// Qualities lists the canonical qualities.
var Qualities = []Quality{Major, Minor, Diminished, Augmented, Suspended, Dominant}

func (q Quality) Valid() bool {
	for _, v := range Qualities {
		if q == v {
			return true
		}
	}
	return false
}

// suffix is the notation written between root and extensions.
func (q Quality) suffix() string {
	switch q {
	case Minor:
		return "m"
	case Diminished:
		return "dim"
	case Augmented:
		return "aug"
	default:
		return ""
	}
}

// ExtensionType classifies an extension token.
type ExtensionType string

const (
	ExtInterval   ExtensionType = "interval"
	ExtAdd        ExtensionType = "add"
	ExtAlteration ExtensionType = "alteration"
	ExtSuspension ExtensionType = "suspension"
	ExtOmission   ExtensionType = "omission"
	ExtPower      ExtensionType = "power"
	ExtOther      ExtensionType = "other"
)

var extensionTypes = map[ExtensionType]bool{
	ExtInterval: true, ExtAdd: true, ExtAlteration: true, ExtSuspension: true,
	ExtOmission: true, ExtPower: true, ExtOther: true,
}

// Extension is one ordered modifier of a chord. Position is its ordinal
// within the chord's extension list.
type Extension struct {
	Type     ExtensionType `json:"type"`
	Value    string        `json:"value"`
	Position int           `json:"position"`
}

// Chord is an immutable, validated chord. Build one with Builder or Factory.
type Chord struct {
	root       music.Root
	quality    Quality
	extensions []Extension
	bass       music.Root
	hasBass    bool
	position   int
	notation   string
	nashville  string
}

func (c Chord) Root() music.Root { return c.root }

func (c Chord) Quality() Quality { return c.quality }

// Extensions returns a copy of the ordered extension list.
func (c Chord) Extensions() []Extension {
	out := make([]Extension, len(c.extensions))
	copy(out, c.extensions)
	return out
}

// Bass returns the slash bass, if any.
func (c Chord) Bass() (music.Root, bool) { return c.bass, c.hasBass }

// Position is the source offset the chord was found at.
func (c Chord) Position() int { return c.position }

// Notation is the chord as written, or the synthesized spelling.
func (c Chord) Notation() string { return c.notation }

// Nashville is the optional scale-degree annotation, e.g. "4".
func (c Chord) Nashville() string { return c.nashville }

func (c Chord) String() string { return c.notation }

// IsZero reports whether c was never built.
func (c Chord) IsZero() bool { return c.root.IsZero() }

// HasExtension reports whether an extension with value v is present.
func (c Chord) HasExtension(v string) bool {
	for _, e := range c.extensions {
		if e.Value == v {
			return true
		}
	}
	return false
}

// Suffix is the synthesized text after the root, without the bass.
func (c Chord) Suffix() string {
	return renderSuffix(c.quality, c.extensions)
}

// Canonical synthesizes notation from the components, ignoring the
// original spelling.
func (c Chord) Canonical() string {
	return synthesize(c.root.String(), c.quality, c.extensions, bassName(c))
}

// ToBuilder returns a builder pre-loaded with this chord's fields.
func (c Chord) ToBuilder() Builder {
	b := NewBuilder().
		Root(c.root.String()).
		Quality(c.quality).
		Position(c.position).
		Notation(c.notation).
		Nashville(c.nashville)
	for _, e := range c.extensions {
		b = b.Extension(e.Type, e.Value)
	}
	if c.hasBass {
		b = b.Bass(c.bass.String())
	}
	return b
}

func bassName(c Chord) string {
	if !c.hasBass {
		return ""
	}
	return c.bass.String()
}

func renderSuffix(q Quality, exts []Extension) string {
	var b strings.Builder
	b.WriteString(q.suffix())
	for _, e := range exts {
		b.WriteString(e.Value)
	}
	return b.String()
}

func synthesize(root string, q Quality, exts []Extension, bass string) string {
	s := root + renderSuffix(q, exts)
	if bass != "" {
		s += "/" + bass
	}
	return s
}

type chordJSON struct {
	Root       string      `json:"root"`
	Quality    Quality     `json:"quality"`
	Extensions []Extension `json:"extensions"`
	Bass       string      `json:"bass,omitempty"`
	Position   int         `json:"position"`
	Notation   string      `json:"notation"`
	Nashville  string      `json:"nashville,omitempty"`
}

func (c Chord) MarshalJSON() ([]byte, error) {
	exts := c.extensions
	if exts == nil {
		exts = []Extension{}
	}
	return json.Marshal(chordJSON{
		Root:       c.root.String(),
		Quality:    c.quality,
		Extensions: exts,
		Bass:       bassName(c),
		Position:   c.position,
		Notation:   c.notation,
		Nashville:  c.nashville,
	})
}

// UnmarshalJSON rebuilds the chord through the builder so decoded chords
// obey the same invariants as parsed ones.
func (c *Chord) UnmarshalJSON(data []byte) error {
	var raw chordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b := NewBuilder().
		Root(raw.Root).
		Quality(raw.Quality).
		Bass(raw.Bass).
		Position(raw.Position).
		Notation(raw.Notation).
		Nashville(raw.Nashville)
	for _, e := range raw.Extensions {
		b = b.Extension(e.Type, e.Value)
	}
	built, err := b.Build()
	if err != nil {
		return err
	}
	*c = built
	return nil
}
