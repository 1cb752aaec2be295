package song

import (
	"fmt"
	"sort"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
)

// LineKind tags the Line variants.
type LineKind string

const (
	KindText       LineKind = "text"
	KindEmpty      LineKind = "empty"
	KindAnnotation LineKind = "annotation"
)

// Line is one of *TextLine, *EmptyLine or *AnnotationLine.
type Line interface {
	Kind() LineKind
	sealed()
}

// Placement says where a chord sat relative to the lyric.
type Placement string

const (
	PlacementAbove   Placement = "above"
	PlacementInline  Placement = "inline"
	PlacementBetween Placement = "between"
)

// ChordPlacement anchors a chord to a rune range of the line text.
type ChordPlacement struct {
	Chord     chord.Chord `json:"chord"`
	Start     int         `json:"start"`
	End       int         `json:"end"`
	Placement Placement   `json:"placement"`
}

// TextLine is lyric text with ordered, non-overlapping chord placements.
type TextLine struct {
	Text   string           `json:"text"`
	Chords []ChordPlacement `json:"chords"`
}

// EmptyLine stands for a run of Count blank lines.
type EmptyLine struct {
	Count int `json:"count"`
}

// AnnotationType classifies annotation text.
type AnnotationType string

const (
	AnnotationComment     AnnotationType = "comment"
	AnnotationSection     AnnotationType = "section"
	AnnotationInstruction AnnotationType = "instruction"
	AnnotationTempo       AnnotationType = "tempo"
	AnnotationDynamics    AnnotationType = "dynamics"
)

// AnnotationLine is a non-lyric line such as a section header or comment.
// Directive and Value hold the source directive when there was one, e.g.
// "title" and "Amazing Grace".
type AnnotationLine struct {
	Text      string         `json:"text"`
	Type      AnnotationType `json:"type"`
	Directive string         `json:"directive,omitempty"`
	Value     string         `json:"value,omitempty"`
}

func (*TextLine) Kind() LineKind       { return KindText }
func (*EmptyLine) Kind() LineKind      { return KindEmpty }
func (*AnnotationLine) Kind() LineKind { return KindAnnotation }

func (*TextLine) sealed()       {}
func (*EmptyLine) sealed()      {}
func (*AnnotationLine) sealed() {}

// NewTextLine sorts placements by start and rejects overlaps or ranges
// outside the text.
func NewTextLine(text string, placements []ChordPlacement) (*TextLine, error) {
	sorted := make([]ChordPlacement, len(placements))
	copy(sorted, placements)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	limit := len([]rune(text))
	for i, p := range sorted {
		if p.Start < 0 || p.End < p.Start {
			return nil, fmt.Errorf("chord %s has invalid range [%d,%d)", p.Chord, p.Start, p.End)
		}
		if p.Placement == PlacementInline && p.End > limit {
			return nil, fmt.Errorf("chord %s range [%d,%d) exceeds text length %d", p.Chord, p.Start, p.End, limit)
		}
		if i > 0 && p.Start < sorted[i-1].End {
			return nil, fmt.Errorf("chord %s overlaps %s", p.Chord, sorted[i-1].Chord)
		}
	}
	return &TextLine{Text: text, Chords: sorted}, nil
}

// PlainText returns a text line without chords.
func PlainText(text string) *TextLine {
	return &TextLine{Text: text, Chords: []ChordPlacement{}}
}
