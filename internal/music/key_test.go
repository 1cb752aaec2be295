package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		minor bool
	}{
		{"G", "G", false},
		{"Am", "Am", true},
		{"Bbm", "Bbm", true},
		{"F# minor", "F#m", true},
		{"Ebmaj", "Eb", false},
		{"BM", "B", false},
		{"e", "E", false},
		{"C♯m", "C#m", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := ParseKey(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k.String())
			assert.Equal(t, tt.minor, k.Minor)
		})
	}

	for _, bad := range []string{"", "H", "Cx", "G dorian"} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestKeyRelativeAndParallel(t *testing.T) {
	assert.Equal(t, "Am", MustKey("C").Relative().String())
	assert.Equal(t, "C", MustKey("Am").Relative().String())
	assert.Equal(t, "Cm", MustKey("Eb").Relative().String())
	assert.Equal(t, "D#m", MustKey("F#").Relative().String())
	assert.Equal(t, "Gm", MustKey("G").Parallel().String())
	assert.Equal(t, "G", MustKey("Gm").Parallel().String())
}

func TestKeyScale(t *testing.T) {
	assert.Equal(t, []string{"D", "E", "F#", "G", "A", "B", "C#"}, MustKey("D").Scale())
	assert.Equal(t, []string{"F", "G", "A", "Bb", "C", "D", "E"}, MustKey("F").Scale())
	assert.Equal(t, []string{"C", "D", "Eb", "F", "G", "Ab", "Bb"}, MustKey("Cm").Scale())
	assert.Equal(t, []string{"Gb", "Ab", "Bb", "Cb", "Db", "Eb", "F"}, MustKey("Gb").Scale())
}

func TestKeySignature(t *testing.T) {
	d := MustKey("D").Signature()
	assert.True(t, d.Standard)
	assert.Equal(t, 2, d.Sharps)
	assert.Equal(t, []string{"F#", "C#"}, d.Accidentals)

	gm := MustKey("Gm").Signature()
	assert.Equal(t, 2, gm.Flats)
	assert.Equal(t, []string{"Bb", "Eb"}, gm.Accidentals)

	c := MustKey("C").Signature()
	assert.Equal(t, 0, c.Sharps+c.Flats)

	dSharp := MustKey("D#").Signature()
	assert.False(t, dSharp.Standard)
	assert.Equal(t, 9, dSharp.Sharps)
}

func TestKeySuggestEnharmonic(t *testing.T) {
	assert.Equal(t, "Eb", MustKey("D#").SuggestEnharmonic().String())
	assert.Equal(t, "B", MustKey("Cb").SuggestEnharmonic().String())
	assert.Equal(t, "Gb", MustKey("Gb").SuggestEnharmonic().String())
	assert.Equal(t, "F#", MustKey("F#").SuggestEnharmonic().String())
	assert.Equal(t, "G", MustKey("G").SuggestEnharmonic().String())
}

func TestPrefersFlats(t *testing.T) {
	for _, k := range []string{"F", "Bb", "Eb", "Ab", "Db", "Gb", "Cb", "Dm", "Gm", "Cm", "Fm", "Bbm", "Ebm", "Abm"} {
		assert.True(t, PrefersFlats(k), k)
	}
	for _, k := range []string{"C", "G", "D", "A", "E", "B", "F#", "Am", "Em", "nonsense"} {
		assert.False(t, PrefersFlats(k), k)
	}
}

func TestKeyRoot(t *testing.T) {
	assert.Equal(t, "F", MustKey("E#").Root().String())
	assert.Equal(t, "Bb", MustKey("Bbm").Root().String())
	assert.Equal(t, 5, MustKey("D").DegreeOf(MustRoot("A").ChromaticIndex()))
	assert.Equal(t, 0, MustKey("C").DegreeOf(MustRoot("F#").ChromaticIndex()))
}
