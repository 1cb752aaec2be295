package chord

import (
	"errors"
	"sort"
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
)

// ErrNoRoot is the cause of parse failures without a leading root letter.
var ErrNoRoot = errors.New("no chord root")

// Components is the raw result of parsing, before validation.
type Components struct {
	Root       string      `json:"root"`
	Quality    Quality     `json:"quality"`
	Extensions []Extension `json:"extensions"`
	Bass       string      `json:"bass,omitempty"`
	Notation   string      `json:"notation"`
}

// Render synthesizes notation from the components.
func (c Components) Render() string {
	return synthesize(c.Root, c.Quality, c.Extensions, c.Bass)
}

type token struct {
	text    string
	quality Quality
	exts    []Extension
}

func iv(v string) Extension  { return Extension{Type: ExtInterval, Value: v} }
func alt(v string) Extension { return Extension{Type: ExtAlteration, Value: v} }
func add(v string) Extension { return Extension{Type: ExtAdd, Value: v} }
func sus(v string) Extension { return Extension{Type: ExtSuspension, Value: v} }

// compoundTokens bind a quality and its extensions in one match.
var compoundTokens = sortedTokens([]token{
	{"maj", Major, nil},
	{"M", Major, nil},
	{"maj7", Major, []Extension{iv("maj7")}},
	{"ma7", Major, []Extension{iv("maj7")}},
	{"M7", Major, []Extension{iv("maj7")}},
	{"Δ", Major, []Extension{iv("maj7")}},
	{"Δ7", Major, []Extension{iv("maj7")}},
	{"maj9", Major, []Extension{iv("maj9")}},
	{"M9", Major, []Extension{iv("maj9")}},
	{"maj11", Major, []Extension{iv("maj11")}},
	{"maj13", Major, []Extension{iv("maj13")}},
	{"6", Major, []Extension{iv("6")}},
	{"69", Major, []Extension{iv("6"), add("add9")}},
	{"6/9", Major, []Extension{iv("6"), add("add9")}},
	{"5", Major, []Extension{{Type: ExtPower, Value: "5"}}},

	{"mmaj7", Minor, []Extension{iv("maj7")}},
	{"mMaj7", Minor, []Extension{iv("maj7")}},
	{"mM7", Minor, []Extension{iv("maj7")}},
	{"minmaj7", Minor, []Extension{iv("maj7")}},
	{"m(maj7)", Minor, []Extension{iv("maj7")}},
	{"mmaj9", Minor, []Extension{iv("maj9")}},
	{"m7b5", Minor, []Extension{iv("7"), alt("b5")}},
	{"m7-5", Minor, []Extension{iv("7"), alt("b5")}},
	{"min7b5", Minor, []Extension{iv("7"), alt("b5")}},
	{"ø", Minor, []Extension{iv("7"), alt("b5")}},
	{"ø7", Minor, []Extension{iv("7"), alt("b5")}},
	{"m6", Minor, []Extension{iv("6")}},
	{"m69", Minor, []Extension{iv("6"), add("add9")}},
	{"m7", Minor, []Extension{iv("7")}},
	{"m9", Minor, []Extension{iv("9")}},
	{"m11", Minor, []Extension{iv("11")}},
	{"m13", Minor, []Extension{iv("13")}},
	{"mi7", Minor, []Extension{iv("7")}},
	{"min6", Minor, []Extension{iv("6")}},
	{"min7", Minor, []Extension{iv("7")}},
	{"min9", Minor, []Extension{iv("9")}},
	{"min11", Minor, []Extension{iv("11")}},
	{"min13", Minor, []Extension{iv("13")}},
	{"-6", Minor, []Extension{iv("6")}},
	{"-7", Minor, []Extension{iv("7")}},
	{"-9", Minor, []Extension{iv("9")}},

	{"dim7", Diminished, []Extension{iv("7")}},
	{"°7", Diminished, []Extension{iv("7")}},
	{"o7", Diminished, []Extension{iv("7")}},

	{"aug7", Augmented, []Extension{iv("7")}},
	{"aug9", Augmented, []Extension{iv("9")}},
	{"+7", Augmented, []Extension{iv("7")}},

	{"7sus", Suspended, []Extension{iv("7"), sus("sus4")}},
	{"7sus4", Suspended, []Extension{iv("7"), sus("sus4")}},
	{"7sus2", Suspended, []Extension{iv("7"), sus("sus2")}},
	{"9sus", Suspended, []Extension{iv("9"), sus("sus4")}},
	{"9sus4", Suspended, []Extension{iv("9"), sus("sus4")}},
	{"13sus4", Suspended, []Extension{iv("13"), sus("sus4")}},

	{"7", Dominant, []Extension{iv("7")}},
	{"9", Dominant, []Extension{iv("9")}},
	{"11", Dominant, []Extension{iv("11")}},
	{"13", Dominant, []Extension{iv("13")}},
})

// qualityTokens are tried when no compound token matches.
var qualityTokens = sortedTokens([]token{
	{"m", Minor, nil},
	{"mi", Minor, nil},
	{"min", Minor, nil},
	{"-", Minor, nil},
	{"dim", Diminished, nil},
	{"°", Diminished, nil},
	{"aug", Augmented, nil},
	{"+", Augmented, nil},
	{"sus", Suspended, []Extension{sus("sus4")}},
	{"sus4", Suspended, []Extension{sus("sus4")}},
	{"sus2", Suspended, []Extension{sus("sus2")}},
})

// residualTokens map extension spellings to their canonical extension.
var residualTokens = sortedTokens([]token{
	{"add2", "", []Extension{add("add2")}},
	{"add4", "", []Extension{add("add4")}},
	{"add6", "", []Extension{add("add6")}},
	{"add9", "", []Extension{add("add9")}},
	{"add11", "", []Extension{add("add11")}},
	{"add13", "", []Extension{add("add13")}},
	{"2", "", []Extension{add("add2")}},

	{"b5", "", []Extension{alt("b5")}},
	{"-5", "", []Extension{alt("b5")}},
	{"#5", "", []Extension{alt("#5")}},
	{"+5", "", []Extension{alt("#5")}},
	{"b6", "", []Extension{alt("b13")}},
	{"b9", "", []Extension{alt("b9")}},
	{"-9", "", []Extension{alt("b9")}},
	{"#9", "", []Extension{alt("#9")}},
	{"+9", "", []Extension{alt("#9")}},
	{"#11", "", []Extension{alt("#11")}},
	{"+11", "", []Extension{alt("#11")}},
	{"b13", "", []Extension{alt("b13")}},
	{"-13", "", []Extension{alt("b13")}},

	{"sus", "", []Extension{sus("sus4")}},
	{"sus2", "", []Extension{sus("sus2")}},
	{"sus4", "", []Extension{sus("sus4")}},

	{"no3", "", []Extension{{Type: ExtOmission, Value: "no3"}}},
	{"no5", "", []Extension{{Type: ExtOmission, Value: "no5"}}},
	{"omit3", "", []Extension{{Type: ExtOmission, Value: "no3"}}},
	{"omit5", "", []Extension{{Type: ExtOmission, Value: "no5"}}},

	{"maj7", "", []Extension{iv("maj7")}},
	{"maj9", "", []Extension{iv("maj9")}},
	{"6", "", []Extension{iv("6")}},
	{"7", "", []Extension{iv("7")}},
	{"9", "", []Extension{iv("9")}},
	{"11", "", []Extension{iv("11")}},
	{"13", "", []Extension{iv("13")}},
	{"5", "", []Extension{{Type: ExtPower, Value: "5"}}},
})

// knownExtensions is the allow-list used by the validator.
var knownExtensions = func() map[string]bool {
	known := map[string]bool{}
	for _, table := range [][]token{compoundTokens, qualityTokens, residualTokens} {
		for _, t := range table {
			for _, e := range t.exts {
				known[e.Value] = true
			}
		}
	}
	return known
}()

func sortedTokens(tokens []token) []token {
	sort.SliceStable(tokens, func(i, j int) bool {
		return len(tokens[i].text) > len(tokens[j].text)
	})
	return tokens
}

func longestPrefix(s string, table []token) (token, bool) {
	for _, t := range table {
		if strings.HasPrefix(s, t.text) {
			return t, true
		}
	}
	return token{}, false
}

// Parse splits a chord symbol into components. Unrecognised trailing text
// is kept as an ExtOther extension. The only failure is a missing root.
func Parse(text string) (Components, error) {
	notation := strings.TrimSpace(text)
	s := music.NormalizeAccidentals(notation)
	if s == "" {
		return Components{}, converr.New(converr.KindFormat, "empty chord").WithCause(ErrNoRoot)
	}
	if s[0] < 'A' || s[0] > 'G' {
		return Components{}, converr.New(converr.KindFormat, "no valid root in %q", text).
			WithSnippet(text).
			WithSuggestion("chords start with a root letter A-G").
			WithCause(ErrNoRoot)
	}

	rootLen := 1
	if len(s) > 1 && (s[1] == '#' || s[1] == 'b') {
		rootLen = 2
	}
	c := Components{Root: s[:rootLen], Quality: Major, Notation: notation}
	rest := s[rootLen:]

	if i := strings.LastIndex(rest, "/"); i >= 0 && isRootShaped(rest[i+1:]) {
		c.Bass = rest[i+1:]
		rest = rest[:i]
	}

	c.Quality, c.Extensions = parseSuffix(rest)
	return c, nil
}

// parseSuffix runs the compound, single-quality and residual stages over
// the text between root and bass.
func parseSuffix(rest string) (Quality, []Extension) {
	quality := Major
	explicit := false
	var exts []Extension

	if t, ok := longestPrefix(rest, compoundTokens); ok {
		quality, explicit = t.quality, true
		exts = append(exts, t.exts...)
		rest = rest[len(t.text):]
	} else if t, ok := longestPrefix(rest, qualityTokens); ok {
		quality, explicit = t.quality, true
		exts = append(exts, t.exts...)
		rest = rest[len(t.text):]
	}

	for rest != "" {
		switch rest[0] {
		case '(', ')', ',', ' ', '/':
			rest = rest[1:]
			continue
		}
		t, ok := longestPrefix(rest, residualTokens)
		if !ok {
			exts = append(exts, Extension{Type: ExtOther, Value: rest})
			break
		}
		for _, e := range t.exts {
			switch {
			case e.Type == ExtSuspension && (quality == Major || quality == Dominant):
				quality = Suspended
			case e.Type == ExtInterval && !explicit && isDominantInterval(e.Value):
				quality = Dominant
			}
			explicit = true
			exts = append(exts, e)
		}
		rest = rest[len(t.text):]
	}

	for i := range exts {
		exts[i].Position = i
	}
	return quality, exts
}

func isDominantInterval(v string) bool {
	return v == "7" || v == "9" || v == "11" || v == "13"
}

// isRootShaped matches a letter plus optional accidental, valid or not.
func isRootShaped(s string) bool {
	switch len(s) {
	case 1:
		return s[0] >= 'A' && s[0] <= 'G'
	case 2:
		return s[0] >= 'A' && s[0] <= 'G' && (s[1] == '#' || s[1] == 'b')
	}
	return false
}

// LooksLikeChord is a cheap shape test used by extraction strategies to
// decide whether a token is meant as a chord.
func LooksLikeChord(s string) bool {
	s = music.NormalizeAccidentals(strings.TrimSpace(s))
	return s != "" && s[0] >= 'A' && s[0] <= 'G'
}
