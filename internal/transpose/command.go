package transpose

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

var (
	ErrAlreadyExecuted = errors.New("transposition already executed")
	ErrNotExecuted     = errors.New("transposition not executed")
)

type saved struct {
	line  *song.TextLine
	index int
	chord chord.Chord
}

// KeyCommand transposes every chord of a model in place and can undo it.
// It is not safe for concurrent use, like the model it mutates.
type KeyCommand struct {
	model    *song.Model
	from     music.Key
	to       music.Key
	distance int

	executed bool
	saved    []saved
	meta     song.Metadata
}

// NewKeyCommand prepares a transposition of m from one key to another.
func NewKeyCommand(m *song.Model, from, to string) (*KeyCommand, error) {
	if m == nil {
		return nil, converr.New(converr.KindTranspose, "no model to transpose").Fatal()
	}
	f, err := parseKey(from)
	if err != nil {
		return nil, err
	}
	t, err := parseKey(to)
	if err != nil {
		return nil, err
	}
	return &KeyCommand{model: m, from: f, to: t, distance: distance(f, t)}, nil
}

// Distance is the upward semitone shift the command applies.
func (c *KeyCommand) Distance() int { return c.distance }

func (c *KeyCommand) From() string { return c.from.String() }

func (c *KeyCommand) To() string { return c.to.String() }

// Executed reports whether the transposition is currently applied.
func (c *KeyCommand) Executed() bool { return c.executed }

// Execute shifts every chord and sets the model key to the target. On
// failure the model is left unchanged.
func (c *KeyCommand) Execute() error {
	if c.executed {
		return converr.New(converr.KindTranspose, "%s to %s: %v", c.from, c.to, ErrAlreadyExecuted).WithCause(ErrAlreadyExecuted).Fatal()
	}
	c.meta = c.model.Metadata
	c.saved = c.saved[:0]

	target := c.to.String()
	var failure error
	c.model.EachTextLine(func(t *song.TextLine) {
		if failure != nil {
			return
		}
		for i, p := range t.Chords {
			moved, err := Chord(p.Chord, c.distance, target)
			if err != nil {
				failure = err
				return
			}
			c.saved = append(c.saved, saved{line: t, index: i, chord: p.Chord})
			t.Chords[i].Chord = moved
		}
	})
	if failure != nil {
		c.restore()
		return fmt.Errorf("transpose %s to %s: %w", c.from, c.to, failure)
	}

	c.model.Metadata.OriginalKey = target
	if c.meta.DetectedKey != "" {
		if shifted, err := ShiftKey(c.meta.DetectedKey, c.distance, target); err == nil {
			c.model.Metadata.DetectedKey = shifted
		}
	}
	c.executed = true
	return nil
}

// Undo restores every recorded chord and the original metadata.
func (c *KeyCommand) Undo() error {
	if !c.executed {
		return converr.New(converr.KindTranspose, "%s to %s: %v", c.from, c.to, ErrNotExecuted).WithCause(ErrNotExecuted).Fatal()
	}
	c.restore()
	c.executed = false
	return nil
}

func (c *KeyCommand) restore() {
	for i := len(c.saved) - 1; i >= 0; i-- {
		s := c.saved[i]
		s.line.Chords[s.index].Chord = s.chord
	}
	c.saved = c.saved[:0]
	c.model.Metadata = c.meta
}
