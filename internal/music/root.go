// Package music holds the pitch-level value objects shared by the chord,
// dialect and transposition packages.
package music

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRoot is returned when a spelling is outside the closed root set.
var ErrInvalidRoot = errors.New("invalid chord root")

const semitonesPerOctave = 12

// rootIndex maps each of the 17 canonical spellings to its chromatic index.
var rootIndex = map[string]int{
	"C": 0, "C#": 1, "Db": 1,
	"D": 2, "D#": 3, "Eb": 3,
	"E": 4,
	"F": 5, "F#": 6, "Gb": 6,
	"G": 7, "G#": 8, "Ab": 8,
	"A": 9, "A#": 10, "Bb": 10,
	"B": 11,
}

// RootNames lists the canonical spellings in chromatic order, sharps first.
var RootNames = []string{
	"C", "C#", "Db", "D", "D#", "Eb", "E", "F", "F#", "Gb",
	"G", "G#", "Ab", "A", "A#", "Bb", "B",
}

var (
	sharpNames = [semitonesPerOctave]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [semitonesPerOctave]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

// Root is a chord root spelled with one of the 17 canonical names.
// The zero value is not a valid root; use ParseRoot.
type Root struct {
	name  string
	index int
}

// ParseRoot accepts only the canonical spellings. Unicode accidentals are
// normalised first.
func ParseRoot(s string) (Root, error) {
	name := NormalizeAccidentals(strings.TrimSpace(s))
	idx, ok := rootIndex[name]
	if !ok {
		return Root{}, fmt.Errorf("%w: %q", ErrInvalidRoot, s)
	}
	return Root{name: name, index: idx}, nil
}

// MustRoot is ParseRoot for compile-time constants.
func MustRoot(s string) Root {
	r, err := ParseRoot(s)
	if err != nil {
		panic(err)
	}
	return r
}

// IsValidRoot reports whether s is one of the canonical spellings.
func IsValidRoot(s string) bool {
	_, ok := rootIndex[s]
	return ok
}

// RootFromIndex spells a chromatic index, using flats when preferFlats is set.
func RootFromIndex(index int, preferFlats bool) Root {
	idx := wrap(index)
	if preferFlats {
		return Root{name: flatNames[idx], index: idx}
	}
	return Root{name: sharpNames[idx], index: idx}
}

func (r Root) String() string { return r.name }

// IsZero reports whether r was never initialised.
func (r Root) IsZero() bool { return r.name == "" }

// ChromaticIndex returns the pitch class 0-11.
func (r Root) ChromaticIndex() int { return r.index }

func (r Root) IsSharp() bool { return strings.HasSuffix(r.name, "#") }

func (r Root) IsFlat() bool { return len(r.name) == 2 && r.name[1] == 'b' }

func (r Root) IsNatural() bool { return len(r.name) == 1 }

// Enharmonic returns the other spelling of the same pitch class. Naturals
// return themselves.
func (r Root) Enharmonic() Root {
	switch {
	case r.IsSharp():
		return RootFromIndex(r.index, true)
	case r.IsFlat():
		return RootFromIndex(r.index, false)
	default:
		return r
	}
}

// Equal compares pitch class, so C# equals Db.
func (r Root) Equal(other Root) bool { return r.index == other.index }

// Transpose shifts by n semitones and spells the result with flats when
// preferFlats is set, otherwise with sharps.
func (r Root) Transpose(n int, preferFlats bool) Root {
	return RootFromIndex(r.index+n, preferFlats)
}

// Shift transposes keeping the root's own accidental style. Naturals
// shift into sharps.
func (r Root) Shift(n int) Root {
	return r.Transpose(n, r.IsFlat())
}

// NormalizeAccidentals replaces the unicode sharp and flat signs with # and b.
func NormalizeAccidentals(s string) string {
	return strings.NewReplacer("♯", "#", "♭", "b").Replace(s)
}

func wrap(n int) int {
	return ((n % semitonesPerOctave) + semitonesPerOctave) % semitonesPerOctave
}
