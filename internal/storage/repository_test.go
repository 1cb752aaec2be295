package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/chord"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

type savedResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

func TestRepository_Conversions(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore())

	require.NoError(t, repo.SaveConversion(ctx, "req-2", savedResult{Success: true, Output: "[G]Hi"}))
	require.NoError(t, repo.SaveConversion(ctx, "req-1", savedResult{Success: false}))

	var got savedResult
	require.NoError(t, repo.LoadConversion(ctx, "req-2", &got))
	assert.Equal(t, savedResult{Success: true, Output: "[G]Hi"}, got)

	ids, err := repo.ListConversions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-1", "req-2"}, ids)

	raw, err := repo.Store().Read(ctx, "conversions/req-2.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"schema_version":1`)
	assert.Contains(t, string(raw), `"kind":"conversion"`)

	assert.ErrorIs(t, repo.LoadConversion(ctx, "req-9", &got), ErrNotFound)
	assert.ErrorIs(t, repo.SaveConversion(ctx, "../x", got), ErrInvalidKey)
}

func TestRepository_RejectsFutureSchema(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store)

	require.NoError(t, store.Write(ctx, "conversions/new.json",
		[]byte(`{"schema_version":2,"kind":"conversion","saved_at":"2026-01-01T00:00:00Z","data":{}}`)))
	var out savedResult
	assert.ErrorIs(t, repo.LoadConversion(ctx, "new", &out), ErrSchemaVersion)

	require.NoError(t, store.Write(ctx, "conversions/wrong.json",
		[]byte(`{"schema_version":1,"kind":"model","saved_at":"2026-01-01T00:00:00Z","data":{}}`)))
	assert.Error(t, repo.LoadConversion(ctx, "wrong", &out))
}

func TestRepository_InputsAreContentAddressed(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore())

	h1, err := repo.SaveInput(ctx, "[G]Amazing grace")
	require.NoError(t, err)
	h2, err := repo.SaveInput(ctx, "[G]Amazing grace")
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.Equal(t, HashInput("[G]Amazing grace"), h1)
	assert.NotEqual(t, HashInput("[C]Amazing grace"), h1)

	keys, err := repo.Store().List(ctx, "inputs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"inputs/" + h1 + ".json"}, keys)

	text, err := repo.LoadInput(ctx, h1)
	require.NoError(t, err)
	assert.Equal(t, "[G]Amazing grace", text)
}

func TestRepository_ModelAndMetadata(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewCompressedStore(NewMemoryStore()))

	m := song.NewModel("song-7", song.FormatBracket, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	m.Metadata.Title = "Amazing Grace"
	line, err := song.NewTextLine("Amazing", []song.ChordPlacement{
		{Chord: chord.MustParse("G"), Start: 0, End: 0, Placement: song.PlacementInline},
	})
	require.NoError(t, err)
	m.Append(line)

	require.NoError(t, repo.SaveModel(ctx, m))
	loaded, err := repo.LoadModel(ctx, "song-7")
	require.NoError(t, err)
	assert.Equal(t, m.Metadata, loaded.Metadata)
	assert.Equal(t, 1, loaded.Stats().Chords)

	require.NoError(t, repo.SaveMetadata(ctx, "song-7", m.Metadata))
	meta, err := repo.LoadMetadata(ctx, "song-7")
	require.NoError(t, err)
	assert.Equal(t, "Amazing Grace", meta.Title)

	assert.Error(t, repo.SaveModel(ctx, nil))
}
