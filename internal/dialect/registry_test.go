package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, song.Formats, r.Formats())
	for _, f := range song.Formats {
		assert.True(t, r.Supports(f))
		p, err := r.Parser(f)
		require.NoError(t, err)
		assert.Equal(t, f, p.SupportedFormat())
		rd, err := r.Renderer(f)
		require.NoError(t, err)
		assert.Equal(t, f, rd.SupportedFormat())
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.Parser("musicxml")
	require.Error(t, err)
	assert.True(t, converr.IsKind(err, converr.KindFormat))
	assert.Contains(t, err.Error(), "unsupported source format")

	_, err = r.Renderer("musicxml")
	assert.Contains(t, err.Error(), "unsupported target format")
	assert.False(t, r.Supports("musicxml"))
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Formats())

	err := r.Register(NewLineParser(newBraceStrategy()), newRenderer(song.FormatBold))
	assert.Error(t, err)
	assert.False(t, r.Supports(song.FormatBrace))

	require.NoError(t, r.Register(NewLineParser(newTabStrategy()), newRenderer(song.FormatTab)))
	assert.Equal(t, []song.Format{song.FormatTab}, r.Formats())
}
