package recovery

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// Handler names.
const (
	InvalidChordName     = "invalid_chord"
	MalformedSectionName = "malformed_section"
	BracketBalanceName   = "bracket_balance"
	EncodingName         = "encoding"
	WhitespaceName       = "whitespace"
	SpecialCharName      = "special_char"
	FallbackName         = "fallback"
)

const tabWidth = 4

func isKind(err *converr.ConversionError, kinds ...converr.Kind) bool {
	for _, k := range kinds {
		if err.Kind == k {
			return true
		}
	}
	return false
}

// InvalidChord repairs chord tokens: illegal characters are stripped, a
// misplaced root is moved to the front, a missing root is borrowed from
// the previous chord on the line and out-of-set spellings are respelled.
// Tokens that still fail become plain text.
type InvalidChord struct{}

func (InvalidChord) Name() string { return InvalidChordName }

func (InvalidChord) CanHandle(err *converr.ConversionError) bool {
	return isKind(err, converr.KindParse, converr.KindValidation)
}

var chordTokenPatterns = map[song.Format]*regexp.Regexp{
	song.FormatBrace:   regexp.MustCompile(`\{([^{}:]*)\}`),
	song.FormatBracket: regexp.MustCompile(`\[([^\[\]]*)\]`),
	song.FormatBold:    regexp.MustCompile(`\*\*([^*]*)\*\*`),
}

var chordDelimiters = map[song.Format][2]string{
	song.FormatBrace:   {"{", "}"},
	song.FormatBracket: {"[", "]"},
	song.FormatBold:    {"**", "**"},
}

func (InvalidChord) Attempt(_ *converr.ConversionError, in Input) (song.Line, bool) {
	var repaired string
	switch in.Format {
	case song.FormatChordOverLyric:
		var ok bool
		repaired, ok = repairChordWords(in.Line)
		if !ok {
			return nil, false
		}
	default:
		re, ok := chordTokenPatterns[in.Format]
		if !ok {
			return nil, false
		}
		repaired = repairDelimited(in.Line, re, chordDelimiters[in.Format])
	}
	if repaired == in.Line {
		return nil, false
	}
	return in.reparse(repaired)
}

func repairDelimited(line string, re *regexp.Regexp, delims [2]string) string {
	prevRoot := ""
	return re.ReplaceAllStringFunc(line, func(m string) string {
		inner := m[len(delims[0]) : len(m)-len(delims[1])]
		if fixed, ok := fixChord(inner, prevRoot); ok {
			prevRoot = rootOf(fixed)
			return delims[0] + fixed + delims[1]
		}
		return inner
	})
}

// repairChordWords fixes each word of a chord-only line in place, padding
// with spaces so later chords keep their columns.
func repairChordWords(line string) (string, bool) {
	var b strings.Builder
	prevRoot := ""
	i := 0
	for i < len(line) {
		if line[i] == ' ' || line[i] == '\t' {
			b.WriteByte(line[i])
			i++
			continue
		}
		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		word := line[i:j]
		fixed, ok := fixChord(word, prevRoot)
		if !ok {
			return "", false
		}
		prevRoot = rootOf(fixed)
		b.WriteString(fixed)
		if pad := utf8.RuneCountInString(word) - utf8.RuneCountInString(fixed); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		i = j
	}
	return b.String(), true
}

const chordRunes = "ABCDEFGabdgijmnostuM0123456789#+-°øΔ/()"

var respell = map[string]string{"E#": "F", "B#": "C", "Fb": "E", "Cb": "B"}

func fixChord(token, prevRoot string) (string, bool) {
	token = music.NormalizeAccidentals(strings.TrimSpace(token))
	if chord.IsValid(token) {
		return token, true
	}

	var b strings.Builder
	for _, r := range token {
		if strings.ContainsRune(chordRunes, r) {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return "", false
	}

	var candidate string
	switch idx := strings.IndexAny(cleaned, "ABCDEFG"); {
	case idx == 0:
		candidate = cleaned
	case cleaned[0] >= 'a' && cleaned[0] <= 'g':
		candidate = strings.ToUpper(cleaned[:1]) + cleaned[1:]
	case idx > 0:
		n := 1
		if idx+1 < len(cleaned) && (cleaned[idx+1] == '#' || cleaned[idx+1] == 'b') {
			n = 2
		}
		candidate = cleaned[idx:idx+n] + cleaned[:idx] + cleaned[idx+n:]
	case prevRoot != "":
		candidate = prevRoot + cleaned
	default:
		return "", false
	}

	if chord.IsValid(candidate) {
		return candidate, true
	}
	root := rootOf(candidate)
	if alt, ok := respell[root]; ok {
		candidate = alt + candidate[len(root):]
		if chord.IsValid(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func rootOf(s string) string {
	if len(s) > 1 && (s[1] == '#' || s[1] == 'b') {
		return s[:2]
	}
	if s == "" {
		return ""
	}
	return s[:1]
}

// MalformedSection turns header-shaped lines into annotations: a section
// when a section keyword leads, otherwise a comment. Lines led by a chord
// are left to the other handlers.
type MalformedSection struct{}

func (MalformedSection) Name() string { return MalformedSectionName }

func (MalformedSection) CanHandle(err *converr.ConversionError) bool {
	return isKind(err, converr.KindParse, converr.KindFormat)
}

func (MalformedSection) Attempt(_ *converr.ConversionError, in Input) (song.Line, bool) {
	trimmed := strings.TrimSpace(in.Line)
	if !looksLikeHeader(trimmed) {
		return nil, false
	}
	inner := strings.TrimSpace(strings.Trim(trimmed, "[]{}()#*_: \t"))
	for _, prefix := range []string{"start_of_", "end_of_"} {
		inner = strings.TrimPrefix(inner, prefix)
	}
	if inner == "" || chord.Recognized(strings.Fields(inner)[0]) {
		return nil, false
	}
	if song.LooksLikeSection(inner) {
		return &song.AnnotationLine{Text: inner, Type: song.AnnotationSection, Value: inner}, true
	}
	return &song.AnnotationLine{Text: inner, Type: song.AnnotationComment}, true
}

// looksLikeHeader accepts "# Title", "Chorus:" and a line wrapped in one
// pair of brackets or braces, possibly missing its closer.
func looksLikeHeader(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case '#':
		return true
	case '[', '{':
		closer := map[byte]byte{'[': ']', '{': '}'}[s[0]]
		inner := s[1:]
		i := strings.IndexByte(inner, closer)
		return i < 0 || i == len(inner)-1
	case '*':
		return !strings.Contains(strings.Trim(s, "*"), "*")
	}
	return strings.HasSuffix(s, ":")
}

// BracketBalance closes unmatched openers at the end of their token and
// drops stray closers, for [], {}, () and ** pairs.
type BracketBalance struct{}

func (BracketBalance) Name() string { return BracketBalanceName }

func (BracketBalance) CanHandle(err *converr.ConversionError) bool {
	return isKind(err, converr.KindParse, converr.KindFormat)
}

func (BracketBalance) Attempt(_ *converr.ConversionError, in Input) (song.Line, bool) {
	repaired := Balance(in.Line)
	if repaired == in.Line {
		return nil, false
	}
	return in.reparse(repaired)
}

var bracketPairs = [][2]rune{{'[', ']'}, {'{', '}'}, {'(', ')'}}

// Balance repairs delimiter pairs in s.
func Balance(s string) string {
	for _, p := range bracketPairs {
		s = balancePair(s, p[0], p[1])
	}
	return balanceBold(s)
}

func balancePair(s string, open, close rune) string {
	runes := []rune(s)
	var stack []int
	drop := make(map[int]bool)
	for i, r := range runes {
		switch r {
		case open:
			stack = append(stack, i)
		case close:
			if len(stack) == 0 {
				drop[i] = true
			} else {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 && len(drop) == 0 {
		return s
	}

	insert := make(map[int]int)
	for _, at := range stack {
		end := at + 1
		for end < len(runes) && !unicode.IsSpace(runes[end]) && runes[end] != open {
			end++
		}
		insert[end]++
	}

	var b strings.Builder
	for i := 0; i <= len(runes); i++ {
		for n := insert[i]; n > 0; n-- {
			b.WriteRune(close)
		}
		if i < len(runes) && !drop[i] {
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

func balanceBold(s string) string {
	if strings.Count(s, "**")%2 == 0 {
		return s
	}
	last := strings.LastIndex(s, "**")
	end := last + 2
	for end < len(s) && s[end] != ' ' && s[end] != '\t' && s[end] != '*' {
		end++
	}
	return s[:end] + "**" + s[end:]
}

// Encoding normalises text: invalid UTF-8 and invisible characters are
// dropped, typographic spaces, quotes and accidentals are replaced, and
// the result is NFC.
type Encoding struct{}

func (Encoding) Name() string { return EncodingName }

func (Encoding) CanHandle(*converr.ConversionError) bool { return true }

func (Encoding) Attempt(_ *converr.ConversionError, in Input) (song.Line, bool) {
	clean := CleanEncoding(in.Line)
	if clean == in.Line {
		return nil, false
	}
	return in.reparse(clean)
}

var typographic = strings.NewReplacer(
	"\u00a0", " ", "\u2007", " ", "\u202f", " ",
	"\u2018", "'", "\u2019", "'", "\u201c", `"`, "\u201d", `"`,
	"\u266f", "#", "\u266d", "b",
)

// CleanEncoding applies the Encoding handler's normalisation.
func CleanEncoding(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = typographic.Replace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\ufeff', r >= '\u200b' && r <= '\u200d', r == '\u2060':
			return -1
		case unicode.IsControl(r) && r != '\t':
			return -1
		}
		return r
	}, s)
	return norm.NFC.String(s)
}

// Whitespace expands tabs and trims trailing space.
type Whitespace struct{}

func (Whitespace) Name() string { return WhitespaceName }

func (Whitespace) CanHandle(err *converr.ConversionError) bool {
	return isKind(err, converr.KindParse, converr.KindFormat, converr.KindValidation)
}

func (Whitespace) Attempt(_ *converr.ConversionError, in Input) (song.Line, bool) {
	clean := strings.TrimRightFunc(ExpandTabs(in.Line), unicode.IsSpace)
	if clean == in.Line {
		return nil, false
	}
	return in.reparse(clean)
}

// ExpandTabs replaces tabs with spaces up to the next tab stop.
func ExpandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

// SpecialChar drops symbols that are neither text nor chord markup.
type SpecialChar struct{}

func (SpecialChar) Name() string { return SpecialCharName }

func (SpecialChar) CanHandle(err *converr.ConversionError) bool {
	return isKind(err, converr.KindParse, converr.KindFormat, converr.KindValidation)
}

const keptPunctuation = ".,;:!?'\"-()[]{}*#/|_~<>&+°øΔ"

func (SpecialChar) Attempt(_ *converr.ConversionError, in Input) (song.Line, bool) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '\t' || strings.ContainsRune(keptPunctuation, r) {
			return r
		}
		return -1
	}, in.Line)
	if clean == in.Line {
		return nil, false
	}
	return in.reparse(clean)
}

// Fallback always succeeds: blank content becomes an empty line and
// anything else is kept verbatim as text without chords.
type Fallback struct{}

func (Fallback) Name() string { return FallbackName }

func (Fallback) CanHandle(*converr.ConversionError) bool { return true }

func (Fallback) Attempt(_ *converr.ConversionError, in Input) (song.Line, bool) {
	if strings.TrimSpace(in.Line) == "" {
		return &song.EmptyLine{Count: 1}, true
	}
	return song.PlainText(in.Line), true
}
