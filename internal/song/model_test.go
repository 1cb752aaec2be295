package song

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
)

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("Chord-Over-Lyric")
	require.True(t, ok)
	assert.Equal(t, FormatChordOverLyric, f)

	_, ok = ParseFormat("musicxml")
	assert.False(t, ok)
	assert.Equal(t, ".cho", FormatBrace.FileExtension())
	assert.True(t, DefaultFormat.Valid())

	f, ok = FormatForExtension(".CHO")
	require.True(t, ok)
	assert.Equal(t, FormatBrace, f)
	_, ok = FormatForExtension(".txt")
	assert.False(t, ok)
}

func TestModelAppend_Sections(t *testing.T) {
	m := NewModel("song-1", FormatBracket, time.Now())
	m.Append(PlainText("intro text"))
	m.Append(&AnnotationLine{Text: "Verse 1", Type: AnnotationSection})
	m.Append(PlainText("first line"))
	m.Append(&EmptyLine{Count: 2})
	m.Append(&AnnotationLine{Text: "Chorus", Type: AnnotationSection})
	m.Append(&AnnotationLine{Text: "softly", Type: AnnotationDynamics})

	require.Len(t, m.Sections, 3)
	assert.Equal(t, "", m.Sections[0].Name)
	assert.Equal(t, "Verse 1", m.Sections[1].Name)
	assert.Equal(t, KindAnnotation, m.Sections[1].Lines[0].Kind())
	assert.Len(t, m.Sections[1].Lines, 3)
	assert.Equal(t, "Chorus", m.Sections[2].Name)
	assert.Len(t, m.Lines(), 6)
	assert.Equal(t, Stats{Sections: 3, Lines: 6, Chords: 0}, m.Stats())
}

func TestNewTextLine(t *testing.T) {
	c := chord.MustParse("C")
	g := chord.MustParse("G")

	line, err := NewTextLine("Hello world", []ChordPlacement{
		{Chord: g, Start: 6, End: 6, Placement: PlacementInline},
		{Chord: c, Start: 0, End: 0, Placement: PlacementInline},
	})
	require.NoError(t, err)
	assert.Equal(t, "C", line.Chords[0].Chord.Notation())
	assert.Equal(t, 6, line.Chords[1].Start)

	_, err = NewTextLine("Hello", []ChordPlacement{
		{Chord: c, Start: 0, End: 3, Placement: PlacementAbove},
		{Chord: g, Start: 2, End: 3, Placement: PlacementAbove},
	})
	assert.Error(t, err)

	_, err = NewTextLine("Hi", []ChordPlacement{{Chord: c, Start: 5, End: 5, Placement: PlacementInline}})
	assert.Error(t, err)

	line, err = NewTextLine("Hi", []ChordPlacement{{Chord: c, Start: 8, End: 9, Placement: PlacementAbove}})
	require.NoError(t, err)
	assert.Len(t, line.Chords, 1)
}

func TestModelJSON(t *testing.T) {
	m := NewModel("song-2", FormatBrace, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	m.Metadata.Title = "Amazing Grace"
	m.Metadata.OriginalKey = "G"
	m.Append(&AnnotationLine{Text: "Verse", Type: AnnotationSection, Directive: "start_of_verse"})
	line, err := NewTextLine("Amazing grace", []ChordPlacement{
		{Chord: chord.MustParse("G"), Start: 0, End: 0, Placement: PlacementInline},
		{Chord: chord.MustParse("D/F#"), Start: 8, End: 8, Placement: PlacementInline},
	})
	require.NoError(t, err)
	m.Append(line)
	m.Append(&EmptyLine{Count: 1})
	m.AddError(converr.New(converr.KindParse, "bad line").AtLine(4))
	m.AddWarning("recovered line 4")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schema_version":1`)
	assert.Contains(t, string(data), `"kind":"text"`)

	var decoded Model
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.Metadata, decoded.Metadata)
	require.Len(t, decoded.Sections, 1)
	require.Len(t, decoded.Sections[0].Lines, 3)

	text, ok := decoded.Sections[0].Lines[1].(*TextLine)
	require.True(t, ok)
	assert.Equal(t, "D/F#", text.Chords[1].Chord.Notation())
	assert.Equal(t, 4, decoded.Provenance.Errors[0].LineNumber())
	assert.True(t, decoded.Provenance.ParsedAt.Equal(m.Provenance.ParsedAt))
}

func TestModelJSON_RejectsFutureSchema(t *testing.T) {
	var m Model
	err := json.Unmarshal([]byte(`{"schema_version": 99, "sections": []}`), &m)
	assert.ErrorContains(t, err, "schema version")
}

func TestUnmarshalLine_UnknownKind(t *testing.T) {
	_, err := UnmarshalLine([]byte(`{"kind":"chart"}`))
	assert.Error(t, err)
}
