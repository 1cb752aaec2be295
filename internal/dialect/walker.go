package dialect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/detect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
	"github.com/Conceptual-Machines/chordsheet-api/internal/recovery"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// Match is one chord found by a strategy. Chord is set when the strategy
// already built it, as Nashville numbers must be resolved against a key.
type Match struct {
	Notation  string
	Start     int
	End       int
	Placement song.Placement
	Chord     *chord.Chord
}

// Extraction is a content line with markup stripped.
type Extraction struct {
	Text    string
	Matches []Match
}

// Strategy is the dialect-specific part of the walker.
type Strategy interface {
	Format() song.Format
	// Annotation recognises the dialect's header and comment lines.
	Annotation(line string) (*song.AnnotationLine, bool)
	// Extract reads the content line at lines[i] and may look ahead. It
	// returns how many lines it consumed.
	Extract(lines []string, i int, e *env) (Extraction, int, error)
}

// env is per-parse state shared with the strategy.
type env struct {
	key        music.Key
	structural func(line string) bool
}

// LineParser is the shared walker behind every dialect parser.
type LineParser struct {
	strategy Strategy
	factory  *chord.Factory
}

// NewLineParser wraps a strategy.
func NewLineParser(s Strategy) *LineParser {
	return &LineParser{strategy: s, factory: chord.NewFactory()}
}

func (p *LineParser) SupportedFormat() song.Format { return p.strategy.Format() }

// IsValid reports whether text parses without line errors.
func (p *LineParser) IsValid(text string) bool {
	r := p.Parse(text, Options{})
	return r.Success && len(r.Errors) == 0
}

// Parse walks the text line by line. It never panics and never aborts on
// a bad line.
func (p *LineParser) Parse(text string, opts Options) Result {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	chain := opts.Recovery
	if chain == nil {
		chain = recovery.ForMode(recovery.DefaultMode, p.SupportedFormat())
	}

	m := song.NewModel(id, p.SupportedFormat(), now)
	e := &env{structural: p.structural}
	if err := p.declareKey(text, opts.Key, m, e); err != nil {
		m.AddError(err)
		return Result{Success: false, Model: m, Errors: m.Provenance.Errors, Warnings: m.Provenance.Warnings}
	}

	lines := splitLines(text)
	for i := 0; i < len(lines); {
		if isBlank(lines[i]) {
			n := 1
			for i+n < len(lines) && isBlank(lines[i+n]) {
				n++
			}
			m.Append(&song.EmptyLine{Count: n})
			i += n
			continue
		}

		line, consumed, err := p.safeClassify(lines, i, e, m)
		if err != nil {
			line = p.recoverLine(err, lines[i], i+1, chain, e, m)
			consumed = 1
		}
		p.append(m, line)
		i += consumed
	}

	p.estimateKey(m)
	return Result{Success: true, Model: m, Errors: m.Provenance.Errors, Warnings: m.Provenance.Warnings}
}

func (p *LineParser) safeClassify(lines []string, i int, e *env, m *song.Model) (line song.Line, consumed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			line, consumed = nil, 0
			err = converr.New(converr.KindParse, "unexpected failure reading line: %v", r)
		}
	}()
	return p.classify(lines, i, e, m, i+1)
}

// classify applies the walker order: annotations first, then content.
func (p *LineParser) classify(lines []string, i int, e *env, m *song.Model, lineNo int) (song.Line, int, error) {
	raw := lines[i]
	if a, ok := p.strategy.Annotation(raw); ok {
		return a, 1, nil
	}
	if a, ok := metadataHeader(raw); ok {
		return a, 1, nil
	}

	ex, consumed, err := p.strategy.Extract(lines, i, e)
	if err != nil {
		return nil, 0, err
	}
	line, err := p.build(ex, m, lineNo)
	if err != nil {
		return nil, 0, err
	}
	return line, consumed, nil
}

func (p *LineParser) structural(line string) bool {
	if isBlank(line) {
		return true
	}
	if _, ok := p.strategy.Annotation(line); ok {
		return true
	}
	_, ok := metadataHeader(line)
	return ok
}

// build turns an extraction into a TextLine, creating chords through the
// factory so validation warnings are recorded.
func (p *LineParser) build(ex Extraction, m *song.Model, lineNo int) (song.Line, error) {
	placements := make([]song.ChordPlacement, 0, len(ex.Matches))
	var warnings []string
	for _, match := range ex.Matches {
		var c chord.Chord
		if match.Chord != nil {
			built, err := match.Chord.ToBuilder().Position(match.Start).Build()
			if err != nil {
				return nil, converr.Wrap(converr.KindValidation, err).AtColumn(match.Start + 1).WithSnippet(match.Notation)
			}
			c = built
		} else {
			built, result, err := p.factory.Inspect(match.Notation)
			if err != nil {
				return nil, converr.Wrap(converr.KindValidation, err).AtColumn(match.Start + 1).WithSnippet(match.Notation)
			}
			if match.Start != 0 {
				built, err = built.ToBuilder().Position(match.Start).Build()
				if err != nil {
					return nil, converr.Wrap(converr.KindValidation, err).AtColumn(match.Start + 1)
				}
			}
			c = built
			for _, w := range result.Warnings {
				warnings = append(warnings, fmt.Sprintf("line %d: chord %s: %s", lineNo, match.Notation, w))
			}
		}
		placements = append(placements, song.ChordPlacement{
			Chord: c, Start: match.Start, End: match.End, Placement: match.Placement,
		})
	}

	line, err := song.NewTextLine(ex.Text, placements)
	if err != nil {
		return nil, converr.New(converr.KindParse, "%s", err.Error()).WithCause(err)
	}
	for _, w := range warnings {
		m.AddWarning(w)
	}
	return line, nil
}

// recoverLine hands a failed line to the chain. A repaired line is kept with
// a warning; a degraded or unresolved one keeps the raw text and the error.
func (p *LineParser) recoverLine(err error, raw string, lineNo int, chain *recovery.Chain, e *env, m *song.Model) song.Line {
	ce := converr.Wrap(converr.KindParse, err).AtLine(lineNo)
	if ce.Snippet == "" {
		ce = ce.WithSnippet(raw)
	}

	in := recovery.Input{
		Line:       raw,
		LineNumber: lineNo,
		Format:     p.SupportedFormat(),
		Reparse: func(repaired string) (song.Line, error) {
			line, _, err := p.classify([]string{repaired}, 0, e, m, lineNo)
			return line, err
		},
	}
	rec, rerr := chain.Recover(ce, in)
	switch {
	case rerr != nil:
		m.AddError(ce)
		return song.PlainText(raw)
	case rec.Degraded:
		m.AddError(ce)
		return rec.Line
	default:
		m.AddWarning(fmt.Sprintf("line %d: %s (recovered by %s)", lineNo, ce.Message, rec.Handler))
		return rec.Line
	}
}

func (p *LineParser) append(m *song.Model, line song.Line) {
	if a, ok := line.(*song.AnnotationLine); ok && a.Directive != "" {
		applyDirective(m, a)
	}
	m.Append(line)
}

var keyLine = regexp.MustCompile(`(?mi)^[ \t]*\{?[ \t]*key[ \t]*[:=][ \t]*([^\s}]+)`)

// declareKey resolves the key Nashville numbers are read in. Other
// dialects only record a declared key.
func (p *LineParser) declareKey(text, declared string, m *song.Model, e *env) *converr.ConversionError {
	if declared != "" {
		k, err := music.ParseKey(declared)
		if err != nil {
			return converr.Wrap(converr.KindKey, err).Fatal().WithSuggestion("use a key such as G, Bb or F#m")
		}
		e.key = k
		m.Metadata.OriginalKey = k.String()
		return nil
	}
	if p.SupportedFormat() != song.FormatNashville {
		return nil
	}

	if sub := keyLine.FindStringSubmatch(text); sub != nil {
		if k, err := music.ParseKey(sub[1]); err == nil {
			e.key = k
			m.Metadata.OriginalKey = k.String()
			return nil
		}
		m.AddWarning(fmt.Sprintf("declared key %q is not a key; reading numbers in C", sub[1]))
	} else {
		m.AddWarning("no key declared; reading numbers in C")
	}
	e.key = music.MustKey("C")
	m.Metadata.OriginalKey = "C"
	return nil
}

func (p *LineParser) estimateKey(m *song.Model) {
	if m.Metadata.OriginalKey != "" {
		return
	}
	if est, ok := detect.EstimateKey(m.Chords()); ok {
		m.Metadata.DetectedKey = est.Name
		m.Metadata.KeyConfidence = est.Confidence
	}
}

// metadataDirectives populate Metadata; renderers emit them in the header.
var metadataDirectives = map[string]bool{
	"title": true, "t": true, "subtitle": true, "st": true, "artist": true,
	"key": true, "tempo": true, "time": true, "capo": true,
}

var headerLine = regexp.MustCompile(`(?i)^[ \t]*\{?[ \t]*(title|subtitle|artist|key|tempo|time|capo)[ \t]*:[ \t]*(.+?)[ \t]*\}?[ \t]*$`)

// metadataHeader reads "Title: ..." style lines used by the non-brace
// dialects. A brace directive such as "{key: G}" is read the same way.
func metadataHeader(line string) (*song.AnnotationLine, bool) {
	sub := headerLine.FindStringSubmatch(line)
	if sub == nil {
		return nil, false
	}
	directive := strings.ToLower(sub[1])
	return directiveAnnotation(directive, sub[2]), true
}

func directiveAnnotation(directive, value string) *song.AnnotationLine {
	typ := song.AnnotationComment
	if directive == "tempo" {
		typ = song.AnnotationTempo
	}
	return &song.AnnotationLine{Text: value, Type: typ, Directive: directive, Value: value}
}

func applyDirective(m *song.Model, a *song.AnnotationLine) {
	v := strings.TrimSpace(a.Value)
	switch a.Directive {
	case "title", "t":
		m.Metadata.Title = v
	case "subtitle", "st", "artist":
		m.Metadata.Artist = v
	case "key":
		if k, err := music.ParseKey(v); err == nil {
			m.Metadata.OriginalKey = k.String()
		} else {
			m.AddWarning(fmt.Sprintf("ignoring key %q: %v", v, err))
		}
	case "tempo":
		if n, ok := leadingInt(v); ok {
			m.Metadata.Tempo = n
		} else {
			m.AddWarning(fmt.Sprintf("ignoring tempo %q", v))
		}
	case "time":
		m.Metadata.TimeSignature = v
	case "capo":
		if n, ok := leadingInt(v); ok {
			m.Metadata.Capo = n
		} else {
			m.AddWarning(fmt.Sprintf("ignoring capo %q", v))
		}
	}
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func runeLen(s string) int { return utf8.RuneCountInString(s) }
