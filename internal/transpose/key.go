package transpose

import (
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
)

// KeyInfo summarises a key for display.
type KeyInfo struct {
	Key        string             `json:"key"`
	Minor      bool               `json:"minor"`
	Relative   string             `json:"relative"`
	Parallel   string             `json:"parallel"`
	Signature  music.KeySignature `json:"signature"`
	Scale      []string           `json:"scale"`
	Enharmonic string             `json:"enharmonic,omitempty"`
}

// Describe parses key and collects its relative and parallel keys,
// signature, scale and a simpler enharmonic spelling when one exists.
func Describe(key string) (KeyInfo, error) {
	k, err := parseKey(key)
	if err != nil {
		return KeyInfo{}, err
	}
	info := KeyInfo{
		Key:       k.String(),
		Minor:     k.Minor,
		Relative:  k.Relative().String(),
		Parallel:  k.Parallel().String(),
		Signature: k.Signature(),
		Scale:     k.Scale(),
	}
	if alt := k.SuggestEnharmonic(); alt.String() != k.String() {
		info.Enharmonic = alt.String()
	}
	return info, nil
}

// Function names the chord's harmonic function in key as a Roman numeral:
// lower case for minor and diminished chords, with ° or + for diminished
// and augmented. ok is false when the root is not in the key's scale.
func Function(c chord.Chord, key string) (numeral string, ok bool) {
	k, err := music.ParseKey(key)
	if err != nil {
		return "", false
	}
	degree := k.DegreeOf(c.Root().ChromaticIndex())
	if degree == 0 {
		return "", false
	}
	numeral = music.NashvilleNumber(degree).Roman()
	switch c.Quality() {
	case chord.Minor:
		numeral = strings.ToLower(numeral)
	case chord.Diminished:
		numeral = strings.ToLower(numeral) + "°"
	case chord.Augmented:
		numeral += "+"
	}
	return numeral, true
}
