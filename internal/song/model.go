// Package song holds the dialect-independent song model that every parser
// produces and every renderer consumes.
package song

import (
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
)

// Metadata describes the song. Zero values mean "not set".
type Metadata struct {
	ID            string  `json:"id"`
	Title         string  `json:"title,omitempty"`
	Artist        string  `json:"artist,omitempty"`
	OriginalKey   string  `json:"original_key,omitempty"`
	DetectedKey   string  `json:"detected_key,omitempty"`
	KeyConfidence float64 `json:"key_confidence,omitempty"`
	Tempo         int     `json:"tempo,omitempty"`
	TimeSignature string  `json:"time_signature,omitempty"`
	Capo          int     `json:"capo,omitempty"`
}

// Section is a named run of lines. The first section of a song may be
// unnamed when content precedes any header.
type Section struct {
	Name  string `json:"name"`
	Lines []Line `json:"lines"`
}

// Provenance records how the model was produced.
type Provenance struct {
	SourceFormat Format                     `json:"source_format"`
	ParsedAt     time.Time                  `json:"parsed_at"`
	Errors       []*converr.ConversionError `json:"errors"`
	Warnings     []string                   `json:"warnings"`
}

// Model is the canonical song. It is owned by one request at a time and
// is mutated in place by transposition.
type Model struct {
	Metadata   Metadata   `json:"metadata"`
	Sections   []*Section `json:"sections"`
	Provenance Provenance `json:"provenance"`
}

// NewModel returns an empty model stamped with its source format.
func NewModel(id string, source Format, parsedAt time.Time) *Model {
	return &Model{
		Metadata: Metadata{ID: id},
		Provenance: Provenance{
			SourceFormat: source,
			ParsedAt:     parsedAt,
			Errors:       []*converr.ConversionError{},
			Warnings:     []string{},
		},
	}
}

// Append adds a line to the current section. A section annotation opens a
// new section and becomes its first line.
func (m *Model) Append(line Line) {
	if a, ok := line.(*AnnotationLine); ok && a.Type == AnnotationSection {
		m.Sections = append(m.Sections, &Section{Name: sectionName(a), Lines: []Line{line}})
		return
	}
	if len(m.Sections) == 0 {
		m.Sections = append(m.Sections, &Section{})
	}
	current := m.Sections[len(m.Sections)-1]
	current.Lines = append(current.Lines, line)
}

func sectionName(a *AnnotationLine) string {
	if a.Value != "" {
		return a.Value
	}
	return a.Text
}

// AddError records a line-level error.
func (m *Model) AddError(err *converr.ConversionError) {
	m.Provenance.Errors = append(m.Provenance.Errors, err)
}

// AddWarning records a warning.
func (m *Model) AddWarning(w string) {
	m.Provenance.Warnings = append(m.Provenance.Warnings, w)
}

// Lines returns every line in document order.
func (m *Model) Lines() []Line {
	var out []Line
	for _, s := range m.Sections {
		out = append(out, s.Lines...)
	}
	return out
}

// EachTextLine calls fn for every text line in document order.
func (m *Model) EachTextLine(fn func(*TextLine)) {
	for _, s := range m.Sections {
		for _, l := range s.Lines {
			if t, ok := l.(*TextLine); ok {
				fn(t)
			}
		}
	}
}

// Chords returns every chord in document order.
func (m *Model) Chords() []chord.Chord {
	var out []chord.Chord
	m.EachTextLine(func(t *TextLine) {
		for _, p := range t.Chords {
			out = append(out, p.Chord)
		}
	})
	return out
}

// Stats summarises a model for result metadata.
type Stats struct {
	Sections int `json:"sections"`
	Lines    int `json:"lines"`
	Chords   int `json:"chords"`
}

func (m *Model) Stats() Stats {
	st := Stats{Sections: len(m.Sections)}
	for _, s := range m.Sections {
		st.Lines += len(s.Lines)
	}
	st.Chords = len(m.Chords())
	return st
}

// Annotations returns every annotation line in document order.
func (m *Model) Annotations() []*AnnotationLine {
	var out []*AnnotationLine
	for _, l := range m.Lines() {
		if a, ok := l.(*AnnotationLine); ok {
			out = append(out, a)
		}
	}
	return out
}

// HasDirective reports whether an annotation carries the given directive.
func (m *Model) HasDirective(directive string) bool {
	for _, a := range m.Annotations() {
		if a.Directive == directive {
			return true
		}
	}
	return false
}
