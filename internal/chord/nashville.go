package chord

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
)

// RhythmSymbol is a Nashville chart articulation mark.
type RhythmSymbol string

const (
	Sustain  RhythmSymbol = "~"
	Accent   RhythmSymbol = ">"
	Staccato RhythmSymbol = "'"
	Dynamics RhythmSymbol = "!"
)

// Placement says which side of the number a rhythm symbol was written on.
type Placement string

const (
	Before Placement = "before"
	After  Placement = "after"
)

// Rhythm is one ordered articulation mark.
type Rhythm struct {
	Symbol    RhythmSymbol `json:"symbol"`
	Placement Placement    `json:"placement"`
}

// NashvilleChord is a chord written as a scale degree relative to a key.
type NashvilleChord struct {
	Number         music.NashvilleNumber `json:"number"`
	Accidental     string                `json:"accidental,omitempty"`
	Quality        Quality               `json:"quality"`
	Extensions     []Extension           `json:"extensions"`
	BassNumber     music.NashvilleNumber `json:"bass_number,omitempty"`
	BassAccidental string                `json:"bass_accidental,omitempty"`
	Rhythm         []Rhythm              `json:"rhythm,omitempty"`
}

// nashvilleGrammar is the participle grammar for one Nashville chord token.
// Examples: "1", "4m7", "b7", "#4m7b5", "5/7", "~1", "2m'".
type nashvilleGrammar struct {
	Before     []string       `parser:"@Rhythm*"`
	Accidental *string        `parser:"@Accidental?"`
	Degree     int            `parser:"@Digit"`
	Suffix     []string       `parser:"( @Word | @Accidental | @Digit | @Paren )*"`
	Bass       *nashvilleBass `parser:"( Slash @@ )?"`
	After      []string       `parser:"@Rhythm*"`
}

type nashvilleBass struct {
	Accidental *string `parser:"@Accidental?"`
	Degree     int     `parser:"@Digit"`
}

// nashvilleLexer tries rules in order, so multi-letter words precede "m".
var nashvilleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Rhythm", Pattern: `[~>'!]`},
	{Name: "Slash", Pattern: `/`},
	{Name: "Paren", Pattern: `[()]`},
	{Name: "Word", Pattern: `maj|min|dim|aug|sus|add|omit|no|m|M|°|ø|Δ|\+|-`},
	{Name: "Accidental", Pattern: `[b#]`},
	{Name: "Digit", Pattern: `[0-9]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var nashvilleParser = participle.MustBuild[nashvilleGrammar](
	participle.Lexer(nashvilleLexer),
	participle.Elide("Whitespace"),
)

// ParseNashville parses a single Nashville chord token. A diamond "<1>"
// is read as a sustained chord.
func ParseNashville(text string) (NashvilleChord, error) {
	s := music.NormalizeAccidentals(strings.TrimSpace(text))
	diamond := false
	if len(s) > 2 && strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = s[1 : len(s)-1]
		diamond = true
	}
	if s == "" {
		return NashvilleChord{}, converr.New(converr.KindFormat, "empty nashville chord")
	}

	parsed, err := nashvilleParser.ParseString("", s)
	if err != nil {
		return NashvilleChord{}, converr.New(converr.KindFormat, "invalid nashville chord %q", text).
			WithSnippet(text).
			WithCause(err)
	}

	number, err := music.NewNashvilleNumber(parsed.Degree)
	if err != nil {
		return NashvilleChord{}, converr.Wrap(converr.KindFormat, err).WithSnippet(text)
	}

	quality, exts := parseSuffix(strings.Join(parsed.Suffix, ""))
	nc := NashvilleChord{
		Number:     number,
		Quality:    quality,
		Extensions: exts,
	}
	if parsed.Accidental != nil {
		nc.Accidental = *parsed.Accidental
	}
	if diamond {
		nc.Rhythm = append(nc.Rhythm, Rhythm{Symbol: Sustain, Placement: Before})
	}
	for _, r := range parsed.Before {
		nc.Rhythm = append(nc.Rhythm, Rhythm{Symbol: RhythmSymbol(r), Placement: Before})
	}
	for _, r := range parsed.After {
		nc.Rhythm = append(nc.Rhythm, Rhythm{Symbol: RhythmSymbol(r), Placement: After})
	}
	if parsed.Bass != nil {
		bass, err := music.NewNashvilleNumber(parsed.Bass.Degree)
		if err != nil {
			return NashvilleChord{}, converr.Wrap(converr.KindFormat, err).WithSnippet(text)
		}
		nc.BassNumber = bass
		if parsed.Bass.Accidental != nil {
			nc.BassAccidental = *parsed.Bass.Accidental
		}
	}

	if err := nc.Validate(); err != nil {
		return NashvilleChord{}, err
	}
	return nc, nil
}

// Validate enforces that a slash bass differs from the chord's own degree.
func (n NashvilleChord) Validate() error {
	if n.BassNumber != 0 && n.BassNumber == n.Number {
		return converr.New(converr.KindValidation, "bass number %d equals chord number", n.BassNumber)
	}
	return nil
}

// HasBass reports whether a slash bass degree is present.
func (n NashvilleChord) HasBass() bool { return n.BassNumber != 0 }

func (n NashvilleChord) String() string {
	var b strings.Builder
	for _, r := range n.Rhythm {
		if r.Placement == Before {
			b.WriteString(string(r.Symbol))
		}
	}
	b.WriteString(n.Accidental)
	b.WriteString(n.Number.String())
	b.WriteString(renderSuffix(n.Quality, n.Extensions))
	if n.HasBass() {
		b.WriteString("/" + n.BassAccidental + n.BassNumber.String())
	}
	for _, r := range n.Rhythm {
		if r.Placement == After {
			b.WriteString(string(r.Symbol))
		}
	}
	return b.String()
}

// ToChord resolves the degree against a key into a letter chord.
func (n NashvilleChord) ToChord(key music.Key) (Chord, error) {
	root := degreeRoot(key, n.Number, n.Accidental)
	b := NewBuilder().
		Root(root.String()).
		Quality(n.Quality).
		Nashville(n.String())
	for _, e := range n.Extensions {
		b = b.Extension(e.Type, e.Value)
	}
	if n.HasBass() {
		b = b.Bass(degreeRoot(key, n.BassNumber, n.BassAccidental).String())
	}
	c, err := b.Build()
	if err != nil {
		return Chord{}, fmt.Errorf("nashville %s in %s: %w", n, key, err)
	}
	return c, nil
}

func degreeRoot(key music.Key, degree music.NashvilleNumber, accidental string) music.Root {
	pitch := key.ScalePitches()[degree.Int()-1]
	preferFlats := key.PrefersFlats()
	switch accidental {
	case "b":
		pitch--
		preferFlats = true
	case "#":
		pitch++
		preferFlats = false
	}
	return music.RootFromIndex(pitch, preferFlats)
}

// FromLetter expresses a letter chord as a Nashville chord in key.
// Chromatic roots use the flat of the degree above, except #4.
func FromLetter(c Chord, key music.Key) NashvilleChord {
	number, accidental := degreeOf(key, c.Root().ChromaticIndex())
	nc := NashvilleChord{
		Number:     number,
		Accidental: accidental,
		Quality:    c.Quality(),
		Extensions: c.Extensions(),
	}
	if bass, ok := c.Bass(); ok {
		bn, ba := degreeOf(key, bass.ChromaticIndex())
		if bn != number {
			nc.BassNumber, nc.BassAccidental = bn, ba
		}
	}
	return nc
}

func degreeOf(key music.Key, pitch int) (music.NashvilleNumber, string) {
	if d := key.DegreeOf(pitch); d != 0 {
		return music.NashvilleNumber(d), ""
	}
	sharpOf := key.DegreeOf(pitch - 1)
	if sharpOf == 4 {
		return music.NashvilleNumber(4), "#"
	}
	if flatOf := key.DegreeOf(pitch + 1); flatOf != 0 {
		return music.NashvilleNumber(flatOf), "b"
	}
	return music.NashvilleNumber(sharpOf), "#"
}
