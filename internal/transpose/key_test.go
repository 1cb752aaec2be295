package transpose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
)

func TestDescribe(t *testing.T) {
	info, err := Describe("G")
	require.NoError(t, err)
	assert.Equal(t, "G", info.Key)
	assert.False(t, info.Minor)
	assert.Equal(t, "Em", info.Relative)
	assert.Equal(t, "Gm", info.Parallel)
	assert.Equal(t, []string{"G", "A", "B", "C", "D", "E", "F#"}, info.Scale)
	assert.Equal(t, 1, info.Signature.Sharps)
	assert.Equal(t, []string{"F#"}, info.Signature.Accidentals)
	assert.Empty(t, info.Enharmonic)

	info, err = Describe("C#")
	require.NoError(t, err)
	assert.Equal(t, "Db", info.Enharmonic)

	info, err = Describe("Dm")
	require.NoError(t, err)
	assert.Equal(t, "F", info.Relative)
	assert.Equal(t, 1, info.Signature.Flats)

	_, err = Describe("")
	assert.Error(t, err)
}

func TestFunction(t *testing.T) {
	tests := []struct {
		chord string
		key   string
		want  string
		ok    bool
	}{
		{"G7", "C", "V", true},
		{"Am", "C", "vi", true},
		{"Bdim", "C", "vii°", true},
		{"Caug", "C", "I+", true},
		{"F", "C", "IV", true},
		{"Eb", "C", "", false},
		{"C", "nope", "", false},
	}
	for _, tt := range tests {
		got, ok := Function(chord.MustParse(tt.chord), tt.key)
		assert.Equal(t, tt.ok, ok, tt.chord)
		assert.Equal(t, tt.want, got, tt.chord)
	}
}
