package transpose

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

func testModel(t *testing.T) *song.Model {
	t.Helper()
	m := song.NewModel("song", song.FormatBracket, time.Now())
	m.Metadata.OriginalKey = "C"
	first, err := song.NewTextLine("Hello world again", []song.ChordPlacement{
		{Chord: chord.MustParse("CM7"), Start: 0, End: 0, Placement: song.PlacementInline},
		{Chord: chord.MustParse("G/B"), Start: 6, End: 6, Placement: song.PlacementInline},
		{Chord: chord.MustParse("Am7"), Start: 12, End: 12, Placement: song.PlacementInline},
	})
	require.NoError(t, err)
	m.Append(&song.AnnotationLine{Text: "Verse", Type: song.AnnotationSection})
	m.Append(first)
	m.Append(&song.EmptyLine{Count: 1})
	m.Append(&song.TextLine{Text: "Bye", Chords: []song.ChordPlacement{
		{Chord: chord.MustParse("F"), Start: 0, End: 0, Placement: song.PlacementInline},
	}})
	return m
}

func notationsOf(m *song.Model) []string {
	var out []string
	for _, c := range m.Chords() {
		out = append(out, c.Notation())
	}
	return out
}

func TestKeyCommand_CToDAndBack(t *testing.T) {
	m := testModel(t)

	up, err := NewKeyCommand(m, "C", "D")
	require.NoError(t, err)
	assert.Equal(t, 2, up.Distance())
	require.NoError(t, up.Execute())
	assert.Equal(t, []string{"Dmaj7", "A/C#", "Bm7", "G"}, notationsOf(m))
	assert.Equal(t, "D", m.Metadata.OriginalKey)

	down, err := NewKeyCommand(m, "D", "C")
	require.NoError(t, err)
	require.NoError(t, down.Execute())
	assert.Equal(t, []string{"Cmaj7", "G/B", "Am7", "F"}, notationsOf(m))
	assert.Equal(t, "C", m.Metadata.OriginalKey)
}

func TestKeyCommand_UndoRestoresExactly(t *testing.T) {
	m := testModel(t)
	m.Metadata.DetectedKey = "Am"
	before := m.Chords()
	meta := m.Metadata

	cmd, err := NewKeyCommand(m, "C", "Eb")
	require.NoError(t, err)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Cm", m.Metadata.DetectedKey)
	assert.Equal(t, []string{"Ebmaj7", "Bb/D", "Cm7", "Ab"}, notationsOf(m))
	assert.True(t, cmd.Executed())

	require.NoError(t, cmd.Undo())
	assert.Equal(t, before, m.Chords())
	assert.Equal(t, meta, m.Metadata)
	assert.Equal(t, "CM7", m.Chords()[0].Notation())

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Eb", m.Metadata.OriginalKey)
}

func TestKeyCommand_Misuse(t *testing.T) {
	m := testModel(t)
	cmd, err := NewKeyCommand(m, "C", "G")
	require.NoError(t, err)

	err = cmd.Undo()
	assert.True(t, errors.Is(err, ErrNotExecuted))

	require.NoError(t, cmd.Execute())
	err = cmd.Execute()
	assert.True(t, errors.Is(err, ErrAlreadyExecuted))
	assert.Equal(t, []string{"Gmaj7", "D/F#", "Em7", "C"}, notationsOf(m))

	require.NoError(t, cmd.Undo())
	assert.True(t, errors.Is(cmd.Undo(), ErrNotExecuted))
}

func TestNewKeyCommand_Invalid(t *testing.T) {
	_, err := NewKeyCommand(nil, "C", "D")
	assert.Error(t, err)

	_, err = NewKeyCommand(testModel(t), "C", "X")
	assert.Error(t, err)
}
