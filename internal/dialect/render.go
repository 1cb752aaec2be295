package dialect

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// style is the dialect-specific part of rendering.
type style interface {
	header(meta song.Metadata) []string
	annotation(a *song.AnnotationLine) (string, bool)
	text(t *song.TextLine, name func(chord.Chord) string) []string
}

// LineRenderer writes a model line by line in one dialect.
type LineRenderer struct {
	format  song.Format
	style   style
	numbers bool
}

func (r *LineRenderer) SupportedFormat() song.Format { return r.format }

// Render writes the metadata header, a blank line and the body.
func (r *LineRenderer) Render(m *song.Model, opts RenderOptions) (string, error) {
	if m == nil {
		return "", converr.New(converr.KindRender, "nothing to render")
	}
	meta := m.Metadata
	name := func(c chord.Chord) string { return c.Notation() }
	if r.numbers {
		key, err := renderKey(m, opts)
		if err != nil {
			return "", err
		}
		sameKey := key.String() == m.Metadata.OriginalKey
		meta.OriginalKey = key.String()
		name = func(c chord.Chord) string {
			if sameKey && c.Nashville() != "" {
				return c.Nashville()
			}
			return chord.FromLetter(c, key).String()
		}
	}

	var body []string
	for _, s := range m.Sections {
		for _, line := range s.Lines {
			switch l := line.(type) {
			case *song.EmptyLine:
				for n := 0; n < l.Count; n++ {
					body = append(body, "")
				}
			case *song.AnnotationLine:
				if metadataDirectives[l.Directive] {
					continue
				}
				if out, ok := r.style.annotation(l); ok {
					body = append(body, out)
				}
			case *song.TextLine:
				body = append(body, r.style.text(l, name)...)
			}
		}
	}

	out := r.style.header(meta)
	if len(out) > 0 && len(body) > 0 && body[0] != "" {
		out = append(out, "")
	}
	return strings.Join(append(out, body...), "\n"), nil
}

func renderKey(m *song.Model, opts RenderOptions) (music.Key, error) {
	for _, candidate := range []string{opts.Key, m.Metadata.OriginalKey, m.Metadata.DetectedKey} {
		if candidate == "" {
			continue
		}
		k, err := music.ParseKey(candidate)
		if err != nil {
			return music.Key{}, converr.Wrap(converr.KindKey, err).Fatal()
		}
		return k, nil
	}
	return music.Key{}, converr.New(converr.KindRender, "nashville output needs a key").
		WithSuggestion("declare a key or pass one explicitly")
}

// metadataFields lists header entries in output order.
func metadataFields(meta song.Metadata) [][2]string {
	var fields [][2]string
	add := func(name, value string) {
		if value != "" {
			fields = append(fields, [2]string{name, value})
		}
	}
	add("title", meta.Title)
	add("artist", meta.Artist)
	add("key", meta.OriginalKey)
	if meta.Tempo > 0 {
		add("tempo", fmt.Sprintf("%d", meta.Tempo))
	}
	add("time", meta.TimeSignature)
	if meta.Capo > 0 {
		add("capo", fmt.Sprintf("%d", meta.Capo))
	}
	return fields
}

// plainHeader writes "Title: ..." lines.
func plainHeader(meta song.Metadata) []string {
	var out []string
	for _, f := range metadataFields(meta) {
		out = append(out, titleCase(f[0])+": "+f[1])
	}
	return out
}

// renderInline writes chords into the lyric at their offsets. Chords past
// the end of the text are appended with a space between them.
func renderInline(t *song.TextLine, open, close string, name func(chord.Chord) string) string {
	runes := []rune(t.Text)
	var b strings.Builder
	pos := 0
	for _, p := range t.Chords {
		at := p.Start
		if at < pos {
			at = pos
		}
		if at <= len(runes) {
			b.WriteString(string(runes[pos:at]))
			pos = at
		} else {
			b.WriteString(string(runes[pos:]))
			pos = len(runes)
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(open + name(p.Chord) + close)
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}

// renderOverlay writes a chord line above the lyric. Chords keep their
// column unless the previous chord is in the way.
func renderOverlay(t *song.TextLine, name func(chord.Chord) string) []string {
	if len(t.Chords) == 0 {
		return []string{t.Text}
	}
	var line []rune
	for _, p := range t.Chords {
		col := p.Start
		if len(line) > 0 && col <= len(line) {
			col = len(line) + 1
		}
		for len(line) < col {
			line = append(line, ' ')
		}
		line = append(line, []rune(name(p.Chord))...)
	}
	out := []string{string(line)}
	if t.Text != "" {
		out = append(out, t.Text)
	}
	return out
}

type braceStyle struct{}

func (braceStyle) header(meta song.Metadata) []string {
	var out []string
	for _, f := range metadataFields(meta) {
		out = append(out, "{"+f[0]+": "+f[1]+"}")
	}
	return out
}

func (braceStyle) annotation(a *song.AnnotationLine) (string, bool) {
	if a.Directive != "" {
		if a.Value != "" {
			return "{" + a.Directive + ": " + a.Value + "}", true
		}
		return "{" + a.Directive + "}", true
	}
	return "{comment: " + a.Text + "}", true
}

func (braceStyle) text(t *song.TextLine, name func(chord.Chord) string) []string {
	return []string{renderInline(t, "{", "}", name)}
}

type bracketStyle struct{}

func (bracketStyle) header(meta song.Metadata) []string { return plainHeader(meta) }

func (bracketStyle) annotation(a *song.AnnotationLine) (string, bool) {
	return labelAnnotation(a, bracketLabel, "# ")
}

func (bracketStyle) text(t *song.TextLine, name func(chord.Chord) string) []string {
	return []string{renderInline(t, "[", "]", name)}
}

type boldStyle struct{}

func (boldStyle) header(meta song.Metadata) []string { return plainHeader(meta) }

func (boldStyle) annotation(a *song.AnnotationLine) (string, bool) {
	if isEndDirective(a.Directive) {
		return "", false
	}
	if a.Type == song.AnnotationSection {
		return "## " + a.Text, true
	}
	return "_" + a.Text + "_", true
}

func (boldStyle) text(t *song.TextLine, name func(chord.Chord) string) []string {
	return []string{renderInline(t, "**", "**", name)}
}

// overlayStyle serves chord_over_lyric, tab and nashville.
type overlayStyle struct {
	section func(string) string
}

func (overlayStyle) header(meta song.Metadata) []string { return plainHeader(meta) }

func (s overlayStyle) annotation(a *song.AnnotationLine) (string, bool) {
	return labelAnnotation(a, s.section, "# ")
}

func (overlayStyle) text(t *song.TextLine, name func(chord.Chord) string) []string {
	return renderOverlay(t, name)
}

func labelAnnotation(a *song.AnnotationLine, section func(string) string, commentPrefix string) (string, bool) {
	if isEndDirective(a.Directive) {
		return "", false
	}
	if a.Type == song.AnnotationSection {
		return section(a.Text), true
	}
	return commentPrefix + a.Text, true
}

func bracketLabel(s string) string { return "[" + s + "]" }

func colonLabel(s string) string { return s + ":" }

func newRenderer(f song.Format) *LineRenderer {
	switch f {
	case song.FormatBrace:
		return &LineRenderer{format: f, style: braceStyle{}}
	case song.FormatBracket:
		return &LineRenderer{format: f, style: bracketStyle{}}
	case song.FormatBold:
		return &LineRenderer{format: f, style: boldStyle{}}
	case song.FormatNashville:
		return &LineRenderer{format: f, style: overlayStyle{section: colonLabel}, numbers: true}
	case song.FormatChordOverLyric, song.FormatTab:
		return &LineRenderer{format: f, style: overlayStyle{section: bracketLabel}}
	}
	return nil
}
