package chord

import (
	"fmt"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
)

// Builder accumulates chord fields. Every step returns a new Builder, so a
// partially configured builder can be reused as a template.
type Builder struct {
	root       string
	quality    Quality
	extensions []Extension
	bass       string
	position   int
	notation   string
	nashville  string
}

func NewBuilder() Builder {
	return Builder{quality: Major}
}

func (b Builder) Root(r string) Builder {
	b.root = r
	return b
}

func (b Builder) Quality(q Quality) Builder {
	b.quality = q
	return b
}

// Extension appends without sharing the backing array with b.
func (b Builder) Extension(t ExtensionType, v string) Builder {
	b.extensions = append(b.extensions[:len(b.extensions):len(b.extensions)], Extension{Type: t, Value: v})
	return b
}

func (b Builder) Bass(r string) Builder {
	b.bass = r
	return b
}

func (b Builder) Position(p int) Builder {
	b.position = p
	return b
}

// Notation sets the original spelling. Empty notation is synthesized.
func (b Builder) Notation(s string) Builder {
	b.notation = s
	return b
}

func (b Builder) Nashville(s string) Builder {
	b.nashville = s
	return b
}

// Build checks root presence and extension well-formedness and returns
// the immutable chord.
func (b Builder) Build() (Chord, error) {
	if b.root == "" {
		return Chord{}, converr.New(converr.KindValidation, "chord root is required").WithCause(ErrNoRoot)
	}
	root, err := music.ParseRoot(b.root)
	if err != nil {
		return Chord{}, converr.Wrap(converr.KindValidation, err)
	}
	if b.position < 0 {
		return Chord{}, converr.New(converr.KindValidation, "negative chord position %d", b.position)
	}

	quality := b.quality
	if quality == "" {
		quality = Major
	}
	if !quality.Valid() {
		return Chord{}, converr.New(converr.KindValidation, "invalid quality %q", quality)
	}

	exts := make([]Extension, len(b.extensions))
	for i, e := range b.extensions {
		if e.Value == "" || !extensionTypes[e.Type] {
			return Chord{}, converr.New(converr.KindValidation, "malformed extension at %d: %+v", i, e)
		}
		e.Position = i
		exts[i] = e
	}

	c := Chord{
		root:       root,
		quality:    quality,
		extensions: exts,
		position:   b.position,
		nashville:  b.nashville,
	}
	if b.bass != "" {
		bass, err := music.ParseRoot(b.bass)
		if err != nil {
			return Chord{}, converr.Wrap(converr.KindValidation, fmt.Errorf("bass: %w", err))
		}
		c.bass, c.hasBass = bass, true
	}

	c.notation = b.notation
	if c.notation == "" {
		c.notation = synthesize(root.String(), quality, exts, bassName(c))
	}
	return c, nil
}
