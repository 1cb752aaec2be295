package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// inlineStrategy reads chords written inside the lyric between delimiters:
// {C} for brace, [C] for bracket and **C** for bold.
type inlineStrategy struct {
	format   song.Format
	open     string
	close    string
	token    *regexp.Regexp
	annotate func(line string) (*song.AnnotationLine, bool)
}

func (s *inlineStrategy) Format() song.Format { return s.format }

func (s *inlineStrategy) Annotation(line string) (*song.AnnotationLine, bool) {
	return s.annotate(line)
}

func (s *inlineStrategy) Extract(lines []string, i int, _ *env) (Extraction, int, error) {
	line := lines[i]
	if col := s.unbalanced(line); col > 0 {
		return Extraction{}, 0, converr.New(converr.KindParse, "unbalanced %s%s markup", s.open, s.close).
			AtColumn(col).
			WithSnippet(line).
			WithSuggestion(fmt.Sprintf("close every %s with %s", s.open, s.close))
	}

	var text strings.Builder
	var matches []Match
	offset, last := 0, 0
	for _, loc := range s.token.FindAllStringSubmatchIndex(line, -1) {
		before := line[last:loc[0]]
		text.WriteString(before)
		offset += runeLen(before)

		notation := strings.TrimSpace(line[loc[2]:loc[3]])
		if !chord.LooksLikeChord(notation) {
			return Extraction{}, 0, converr.New(converr.KindParse, "invalid chord %q", notation).
				AtColumn(runeLen(line[:loc[0]]) + 1).
				WithSnippet(notation).
				WithSuggestion("chords start with a root letter A-G")
		}
		matches = append(matches, Match{
			Notation:  notation,
			Start:     offset,
			End:       offset,
			Placement: song.PlacementInline,
		})
		last = loc[1]
	}
	text.WriteString(line[last:])
	return Extraction{Text: text.String(), Matches: matches}, 1, nil
}

// unbalanced returns the 1-based column of the first unmatched delimiter,
// or 0.
func (s *inlineStrategy) unbalanced(line string) int {
	if s.open == s.close {
		if strings.Count(line, s.open)%2 == 0 {
			return 0
		}
		return runeLen(line[:strings.LastIndex(line, s.open)]) + 1
	}

	open, close := []rune(s.open)[0], []rune(s.close)[0]
	var stack []int
	col := 0
	for _, r := range line {
		col++
		switch r {
		case open:
			stack = append(stack, col)
		case close:
			if len(stack) == 0 {
				return col
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return stack[0]
	}
	return 0
}

func newBraceStrategy() Strategy {
	return &inlineStrategy{
		format:   song.FormatBrace,
		open:     "{",
		close:    "}",
		token:    regexp.MustCompile(`\{([^{}:]*)\}`),
		annotate: braceAnnotation,
	}
}

func newBracketStrategy() Strategy {
	return &inlineStrategy{
		format: song.FormatBracket,
		open:   "[",
		close:  "]",
		token:  regexp.MustCompile(`\[([^\[\]]*)\]`),
		annotate: func(line string) (*song.AnnotationLine, bool) {
			if a, ok := hashComment(line); ok {
				return a, true
			}
			return bracketHeader(line)
		},
	}
}

func newBoldStrategy() Strategy {
	return &inlineStrategy{
		format:   song.FormatBold,
		open:     "**",
		close:    "**",
		token:    regexp.MustCompile(`\*\*([^*]*)\*\*`),
		annotate: boldAnnotation,
	}
}

var (
	braceDirective  = regexp.MustCompile(`^[ \t]*\{[ \t]*([A-Za-z_]+)[ \t]*(:[ \t]*(.*?))?[ \t]*\}[ \t]*$`)
	hashLine        = regexp.MustCompile(`^[ \t]*#+[ \t]*(.*?)[ \t]*$`)
	bracketLine     = regexp.MustCompile(`^[ \t]*\[([^\[\]]+)\][ \t]*$`)
	markdownHeading = regexp.MustCompile(`^[ \t]*#{1,6}[ \t]+(.+?)[ \t]*#*[ \t]*$`)
	italicLine      = regexp.MustCompile(`^[ \t]*_([^_]+)_[ \t]*$`)
	boldLabel       = regexp.MustCompile(`^[ \t]*\*\*([^*]+)\*\*:?[ \t]*$`)
)

// Directives that stand alone without a value.
var bareDirectives = map[string]bool{
	"soc": true, "eoc": true, "sov": true, "eov": true, "sob": true, "eob": true,
	"sot": true, "eot": true, "chorus": true, "new_page": true, "np": true,
	"column_break": true, "colb": true,
}

var commentDirectives = map[string]bool{
	"comment": true, "c": true, "ci": true, "comment_italic": true, "comment_box": true, "cb": true,
}

var shortSections = map[string]string{
	"soc": "chorus", "eoc": "chorus", "sov": "verse", "eov": "verse",
	"sob": "bridge", "eob": "bridge", "sot": "tab", "eot": "tab",
}

func braceAnnotation(line string) (*song.AnnotationLine, bool) {
	if a, ok := hashComment(line); ok {
		return a, true
	}
	sub := braceDirective.FindStringSubmatch(line)
	if sub == nil {
		return nil, false
	}
	name := strings.ToLower(sub[1])
	hasValue := sub[2] != ""
	if !hasValue && !bareDirectives[name] && !isEnvironment(name) {
		return nil, false
	}
	return braceDirectiveLine(name, strings.TrimSpace(sub[3])), true
}

func isEnvironment(name string) bool {
	return strings.HasPrefix(name, "start_of_") || strings.HasPrefix(name, "end_of_")
}

func isStartDirective(name string) bool {
	return strings.HasPrefix(name, "start_of_") || name == "chorus" ||
		name == "soc" || name == "sov" || name == "sob" || name == "sot"
}

func isEndDirective(name string) bool {
	return strings.HasPrefix(name, "end_of_") || name == "eoc" || name == "eov" || name == "eob" || name == "eot"
}

// sectionKind maps a section directive to its section keyword.
func sectionKind(name string) string {
	if k, ok := shortSections[name]; ok {
		return k
	}
	name = strings.TrimPrefix(name, "start_of_")
	name = strings.TrimPrefix(name, "end_of_")
	return name
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func braceDirectiveLine(name, value string) *song.AnnotationLine {
	switch {
	case metadataDirectives[name]:
		return directiveAnnotation(name, value)
	case commentDirectives[name]:
		return &song.AnnotationLine{Text: value, Type: song.ClassifyAnnotation(value), Directive: name, Value: value}
	case isStartDirective(name):
		text := value
		if text == "" {
			text = titleCase(sectionKind(name))
		}
		return &song.AnnotationLine{Text: text, Type: song.AnnotationSection, Directive: name, Value: value}
	case isEndDirective(name):
		return &song.AnnotationLine{Text: "end of " + sectionKind(name), Type: song.AnnotationComment, Directive: name}
	}
	text := value
	if text == "" {
		text = name
	}
	return &song.AnnotationLine{Text: text, Type: song.ClassifyAnnotation(text), Directive: name, Value: value}
}

// hashComment reads "# text" comment lines.
func hashComment(line string) (*song.AnnotationLine, bool) {
	sub := hashLine.FindStringSubmatch(line)
	if sub == nil {
		return nil, false
	}
	return classified(sub[1]), true
}

func classified(text string) *song.AnnotationLine {
	return &song.AnnotationLine{Text: text, Type: song.ClassifyAnnotation(text)}
}

// labelNotChord decides whether a whole-line label such as "[Chorus]" is
// an annotation. Recognised chords, and chord-shaped single tokens that
// fail validation, stay content so errors reach recovery.
func labelNotChord(inner string) bool {
	inner = strings.TrimSpace(inner)
	if inner == "" || chord.Recognized(inner) {
		return false
	}
	if song.LooksLikeSection(inner) {
		return true
	}
	if chord.LooksLikeChord(inner) && !strings.ContainsAny(inner, " \t") && !chord.IsValid(inner) {
		return false
	}
	return true
}

func bracketHeader(line string) (*song.AnnotationLine, bool) {
	sub := bracketLine.FindStringSubmatch(line)
	if sub == nil || !labelNotChord(sub[1]) {
		return nil, false
	}
	return classified(strings.TrimSpace(sub[1])), true
}

func boldAnnotation(line string) (*song.AnnotationLine, bool) {
	if sub := markdownHeading.FindStringSubmatch(line); sub != nil {
		return classified(sub[1]), true
	}
	if sub := italicLine.FindStringSubmatch(line); sub != nil {
		return classified(strings.TrimSpace(sub[1])), true
	}
	if sub := boldLabel.FindStringSubmatch(line); sub != nil && labelNotChord(sub[1]) {
		return classified(strings.TrimSpace(sub[1])), true
	}
	return bracketHeader(line)
}
