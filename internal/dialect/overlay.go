package dialect

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// overlayStrategy reads chord lines written above lyric lines. The chord
// column in the chord line is the offset in the lyric. Used by
// chord_over_lyric, tab and nashville with different token readers.
type overlayStrategy struct {
	format song.Format
	// read reports whether word is a chord token and builds it when the
	// strategy must resolve it itself.
	read func(word string, e *env) (bool, *chord.Chord)
	// staff keeps tablature staff lines as plain text.
	staff bool
}

type word struct {
	text string
	col  int
}

func (s *overlayStrategy) Format() song.Format { return s.format }

func (s *overlayStrategy) Annotation(line string) (*song.AnnotationLine, bool) {
	if a, ok := hashComment(line); ok {
		return a, true
	}
	if a, ok := bracketHeader(line); ok {
		return a, true
	}
	if a, ok := parenInstruction(line); ok {
		return a, true
	}
	return sectionLabel(line)
}

var (
	staffLine  = regexp.MustCompile(`^[ \t]*[eBGDAEbgda][ \t]*\|`)
	barToken   = regexp.MustCompile(`^[|:/%.\-]+$`)
	repeatMark = regexp.MustCompile(`^(?i:x\d+|\d+x)$`)
	parenLine  = regexp.MustCompile(`^[ \t]*\(([^()]+)\)[ \t]*$`)
)

func (s *overlayStrategy) Extract(lines []string, i int, e *env) (Extraction, int, error) {
	line := lines[i]
	if s.staff && staffLine.MatchString(line) {
		return Extraction{Text: line}, 1, nil
	}

	matches, isChords, err := s.chordLine(line, e)
	if err != nil {
		return Extraction{}, 0, err
	}
	if !isChords {
		return Extraction{Text: line}, 1, nil
	}

	if i+1 < len(lines) && s.isLyric(lines[i+1], e) {
		lyric := lines[i+1]
		for k := range matches {
			matches[k].Placement = song.PlacementAbove
		}
		return Extraction{Text: lyric, Matches: matches}, 2, nil
	}
	for k := range matches {
		matches[k].Placement = song.PlacementBetween
	}
	return Extraction{Text: "", Matches: matches}, 1, nil
}

// chordLine reports whether every token of line is a chord, bar line or
// repeat mark. A line where most tokens are chords but some are not is
// reported as an error so recovery can repair it.
func (s *overlayStrategy) chordLine(line string, e *env) ([]Match, bool, error) {
	words := splitWords(line)
	var matches []Match
	var bad []word
	counted := 0
	for _, w := range words {
		if barToken.MatchString(w.text) || repeatMark.MatchString(w.text) {
			continue
		}
		counted++
		ok, built := s.read(w.text, e)
		if !ok {
			bad = append(bad, w)
			continue
		}
		matches = append(matches, Match{
			Notation: w.text,
			Start:    w.col,
			End:      w.col + runeLen(w.text),
			Chord:    built,
		})
	}

	switch {
	case len(matches) == 0:
		return nil, false, nil
	case len(bad) == 0:
		return matches, true, nil
	case counted >= 2 && len(matches)*2 > counted:
		return nil, false, converr.New(converr.KindValidation, "unrecognised chord %q in chord line", bad[0].text).
			AtColumn(bad[0].col + 1).
			WithSnippet(bad[0].text)
	}
	return nil, false, nil
}

func (s *overlayStrategy) isLyric(line string, e *env) bool {
	if isBlank(line) || e.structural(line) {
		return false
	}
	if s.staff && staffLine.MatchString(line) {
		return false
	}
	_, isChords, err := s.chordLine(line, e)
	return !isChords && err == nil
}

// splitWords returns whitespace-separated words with rune columns.
func splitWords(line string) []word {
	var words []word
	var cur []rune
	start := 0
	col := 0
	for _, r := range line {
		if unicode.IsSpace(r) {
			if len(cur) > 0 {
				words = append(words, word{text: string(cur), col: start})
				cur = cur[:0]
			}
		} else {
			if len(cur) == 0 {
				start = col
			}
			cur = append(cur, r)
		}
		col++
	}
	if len(cur) > 0 {
		words = append(words, word{text: string(cur), col: start})
	}
	return words
}

// parenInstruction reads whole-line "(Repeat x2)" notes.
func parenInstruction(line string) (*song.AnnotationLine, bool) {
	sub := parenLine.FindStringSubmatch(line)
	if sub == nil || !labelNotChord(sub[1]) {
		return nil, false
	}
	return classified(strings.TrimSpace(sub[1])), true
}

// sectionLabel reads "Chorus:", "Verse 2" and similar bare labels. Without
// a colon only a keyword and an optional number qualify.
func sectionLabel(line string) (*song.AnnotationLine, bool) {
	text := strings.TrimSpace(line)
	colon := strings.HasSuffix(text, ":")
	label := strings.TrimSpace(strings.TrimSuffix(text, ":"))
	if label == "" || !song.LooksLikeSection(label) {
		return nil, false
	}
	fields := strings.Fields(label)
	if colon && len(fields) > 3 {
		return nil, false
	}
	if !colon && (len(fields) > 2 || (len(fields) == 2 && !isNumber(fields[1]))) {
		return nil, false
	}
	if !colon && chord.Recognized(label) {
		return nil, false
	}
	return &song.AnnotationLine{Text: label, Type: song.AnnotationSection}, true
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func readLetterChord(w string, _ *env) (bool, *chord.Chord) {
	return chord.Recognized(w), nil
}

func readNashvilleChord(w string, e *env) (bool, *chord.Chord) {
	nc, err := chord.ParseNashville(w)
	if err != nil {
		return false, nil
	}
	c, err := nc.ToChord(e.key)
	if err != nil {
		return false, nil
	}
	return true, &c
}

func newChordOverLyricStrategy() Strategy {
	return &overlayStrategy{format: song.FormatChordOverLyric, read: readLetterChord}
}

func newTabStrategy() Strategy {
	return &overlayStrategy{format: song.FormatTab, read: readLetterChord, staff: true}
}

func newNashvilleStrategy() Strategy {
	return &overlayStrategy{format: song.FormatNashville, read: readNashvilleChord}
}
