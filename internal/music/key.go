package music

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when a key name cannot be parsed.
var ErrInvalidKey = errors.New("invalid key")

const letters = "CDEFGAB"

var naturalPitch = [degreesPerScale]int{0, 2, 4, 5, 7, 9, 11}

var (
	majorIntervals = [degreesPerScale]int{0, 2, 4, 5, 7, 9, 11}
	minorIntervals = [degreesPerScale]int{0, 2, 3, 5, 7, 8, 10}
)

// flatKeys is the fixed set of keys whose chords are spelled with flats.
var flatKeys = map[string]bool{
	"F": true, "Bb": true, "Eb": true, "Ab": true, "Db": true, "Gb": true, "Cb": true,
	"Dm": true, "Gm": true, "Cm": true, "Fm": true, "Bbm": true, "Ebm": true, "Abm": true,
}

// signatures holds the 15 standard major keys: positive for sharps,
// negative for flats.
var signatures = map[string]int{
	"C": 0,
	"G": 1, "D": 2, "A": 3, "E": 4, "B": 5, "F#": 6, "C#": 7,
	"F": -1, "Bb": -2, "Eb": -3, "Ab": -4, "Db": -5, "Gb": -6, "Cb": -7,
}

var (
	sharpOrder = []string{"F#", "C#", "G#", "D#", "A#", "E#", "B#"}
	flatOrder  = []string{"Bb", "Eb", "Ab", "Db", "Gb", "Cb", "Fb"}
)

// Key is a tonic spelling plus mode. Tonics may use spellings outside the
// chord root set (E#, Cb) because key signatures need them.
type Key struct {
	Tonic string
	Minor bool

	letter int
	pitch  int
}

// ParseKey accepts "G", "Bb", "F#m", "A minor", "Ebmaj" and similar.
func ParseKey(s string) (Key, error) {
	raw := strings.TrimSpace(NormalizeAccidentals(s))
	if raw == "" {
		return Key{}, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	letter := strings.IndexByte(letters, strings.ToUpper(raw[:1])[0])
	if letter < 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	rest := raw[1:]
	pitch := naturalPitch[letter]
	tonic := letters[letter : letter+1]
	if rest != "" && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			pitch++
		} else {
			pitch--
		}
		tonic += rest[:1]
		rest = rest[1:]
	}

	var minor bool
	mode := strings.TrimSpace(rest)
	switch {
	case mode == "" || mode == "M":
	case mode == "m" || mode == "-":
		minor = true
	default:
		switch strings.ToLower(mode) {
		case "maj", "major":
		case "min", "minor":
			minor = true
		default:
			return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
	}

	return Key{Tonic: tonic, Minor: minor, letter: letter, pitch: wrap(pitch)}, nil
}

// MustKey is ParseKey for constants.
func MustKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k Key) String() string {
	if k.Minor {
		return k.Tonic + "m"
	}
	return k.Tonic
}

// PitchClass returns the tonic's chromatic index.
func (k Key) PitchClass() int { return k.pitch }

// PrefersFlats reports whether the key belongs to the flat-spelling set.
func (k Key) PrefersFlats() bool { return flatKeys[k.String()] }

// PrefersFlats reports whether the named key belongs to the flat-spelling
// set. Unparseable names prefer sharps.
func PrefersFlats(key string) bool {
	k, err := ParseKey(key)
	if err != nil {
		return false
	}
	return k.PrefersFlats()
}

// Root spells the tonic as a canonical chord root.
func (k Key) Root() Root {
	if IsValidRoot(k.Tonic) {
		return MustRoot(k.Tonic)
	}
	return RootFromIndex(k.pitch, k.PrefersFlats())
}

// Relative returns the relative minor of a major key and vice versa.
func (k Key) Relative() Key {
	if k.Minor {
		return k.step(2, 3, false)
	}
	return k.step(5, 9, true)
}

// Parallel keeps the tonic and flips the mode.
func (k Key) Parallel() Key {
	k.Minor = !k.Minor
	return k
}

func (k Key) step(letterSteps, semitones int, minor bool) Key {
	letter := (k.letter + letterSteps) % degreesPerScale
	pitch := wrap(k.pitch + semitones)
	return Key{Tonic: spell(letter, pitch), Minor: minor, letter: letter, pitch: pitch}
}

// Scale spells the seven degrees letter by letter using major or natural
// minor intervals, so every letter appears exactly once.
func (k Key) Scale() []string {
	intervals := majorIntervals
	if k.Minor {
		intervals = minorIntervals
	}
	notes := make([]string, 0, degreesPerScale)
	for i := 0; i < degreesPerScale; i++ {
		letter := (k.letter + i) % degreesPerScale
		notes = append(notes, spell(letter, k.pitch+intervals[i]))
	}
	return notes
}

// ScalePitches returns the chromatic index of each degree.
func (k Key) ScalePitches() []int {
	intervals := majorIntervals
	if k.Minor {
		intervals = minorIntervals
	}
	out := make([]int, degreesPerScale)
	for i, iv := range intervals {
		out[i] = wrap(k.pitch + iv)
	}
	return out
}

// KeySignature describes the accidentals of a key.
type KeySignature struct {
	Key         string   `json:"key"`
	Sharps      int      `json:"sharps"`
	Flats       int      `json:"flats"`
	Accidentals []string `json:"accidentals"`
	Standard    bool     `json:"standard"`
}

// Signature looks up the standard table; minors resolve via their relative
// major. Keys outside the table are counted from their spelled scale.
func (k Key) Signature() KeySignature {
	major := k
	if k.Minor {
		major = k.Relative()
	}
	sig := KeySignature{Key: k.String()}
	if n, ok := signatures[major.Tonic]; ok {
		sig.Standard = true
		switch {
		case n > 0:
			sig.Sharps = n
			sig.Accidentals = append([]string{}, sharpOrder[:n]...)
		case n < 0:
			sig.Flats = -n
			sig.Accidentals = append([]string{}, flatOrder[:-n]...)
		default:
			sig.Accidentals = []string{}
		}
		return sig
	}

	sig.Accidentals = []string{}
	for _, note := range k.Scale() {
		sig.Sharps += strings.Count(note[1:], "#")
		sig.Flats += strings.Count(note[1:], "b")
		if len(note) > 1 {
			sig.Accidentals = append(sig.Accidentals, note)
		}
	}
	return sig
}

// AccidentalCount counts every sharp or flat sign in the spelled scale.
func (k Key) AccidentalCount() int {
	count := 0
	for _, note := range k.Scale() {
		count += len(note) - 1
	}
	return count
}

// SuggestEnharmonic returns the spelling of the same tonic pitch with the
// fewest accidentals. Ties keep the original.
func (k Key) SuggestEnharmonic() Key {
	best := k
	bestCount := k.AccidentalCount()
	for letter := 0; letter < degreesPerScale; letter++ {
		if letter == k.letter {
			continue
		}
		if off := wrap(k.pitch - naturalPitch[letter]); off != 0 && off != 1 && off != 11 {
			continue
		}
		tonic := spell(letter, k.pitch)
		candidate := Key{Tonic: tonic, Minor: k.Minor, letter: letter, pitch: k.pitch}
		if n := candidate.AccidentalCount(); n < bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

// DegreeOf returns the 1-based scale degree of a pitch class, or 0.
func (k Key) DegreeOf(pitch int) int {
	for i, p := range k.ScalePitches() {
		if p == wrap(pitch) {
			return i + 1
		}
	}
	return 0
}

// spell names pitch using the given letter plus up to two accidentals.
// Pitches too far from the letter fall back to sharp spelling.
func spell(letter, pitch int) string {
	name := letters[letter : letter+1]
	switch wrap(pitch - naturalPitch[letter]) {
	case 0:
		return name
	case 1:
		return name + "#"
	case 2:
		return name + "##"
	case 11:
		return name + "b"
	case 10:
		return name + "bb"
	default:
		return sharpNames[wrap(pitch)]
	}
}
