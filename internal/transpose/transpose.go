// Package transpose shifts notes, chords and whole songs between keys and
// answers key-theory questions used by the API and CLI.
package transpose

import (
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
)

// Note shifts r by n semitones. The result is spelled with flats when
// targetKey prefers flats, otherwise with sharps.
func Note(r music.Root, n int, targetKey string) music.Root {
	return r.Transpose(n, music.PrefersFlats(targetKey))
}

// NoteName is Note for a spelled note name.
func NoteName(note string, n int, targetKey string) (string, error) {
	r, err := music.ParseRoot(note)
	if err != nil {
		return "", converr.Wrap(converr.KindTranspose, err).WithSnippet(note)
	}
	return Note(r, n, targetKey).String(), nil
}

// Chord shifts root and bass by n semitones. Quality, extensions, position
// and any Nashville annotation are kept; the notation is rebuilt from the
// new root and bass.
func Chord(c chord.Chord, n int, targetKey string) (chord.Chord, error) {
	b := c.ToBuilder().
		Root(Note(c.Root(), n, targetKey).String()).
		Notation("")
	if bass, ok := c.Bass(); ok {
		b = b.Bass(Note(bass, n, targetKey).String())
	}
	out, err := b.Build()
	if err != nil {
		return chord.Chord{}, converr.Wrap(converr.KindTranspose, err).WithSnippet(c.Notation())
	}
	return out, nil
}

// KeyDistance returns the upward semitone distance from one key's tonic to
// another's, 0-11. Modes are ignored.
func KeyDistance(from, to string) (int, error) {
	a, err := parseKey(from)
	if err != nil {
		return 0, err
	}
	b, err := parseKey(to)
	if err != nil {
		return 0, err
	}
	return distance(a, b), nil
}

func distance(a, b music.Key) int {
	return (b.PitchClass() - a.PitchClass() + 12) % 12
}

// ShiftKey moves a key name by n semitones keeping its mode.
func ShiftKey(key string, n int, targetKey string) (string, error) {
	k, err := parseKey(key)
	if err != nil {
		return "", err
	}
	out := Note(music.RootFromIndex(k.PitchClass(), k.PrefersFlats()), n, targetKey).String()
	if k.Minor {
		out += "m"
	}
	return out, nil
}

func parseKey(s string) (music.Key, error) {
	k, err := music.ParseKey(strings.TrimSpace(s))
	if err != nil {
		return music.Key{}, converr.Wrap(converr.KindKey, err).
			WithSnippet(s).
			WithSuggestion("use a key such as G, Bb or F#m")
	}
	return k, nil
}
