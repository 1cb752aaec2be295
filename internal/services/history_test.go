package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

func TestNewConversionLog(t *testing.T) {
	started := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	res := engine.Result{
		Success:  true,
		Output:   "[G]Hi",
		Errors:   []*converr.ConversionError{converr.New(converr.KindValidation, "bad chord")},
		Warnings: []string{"one", "two"},
		Metadata: engine.Metadata{
			RequestID:    "req-1",
			SourceFormat: song.FormatBrace,
			TargetFormat: song.FormatBracket,
			Detected:     true,
			Confidence:   0.8,
			FromKey:      "G",
			ToKey:        "A",
			Stats:        song.Stats{Sections: 1, Lines: 3, Chords: 4},
			InputHash:    "abc",
			StartedAt:    started,
			DurationMS:   12,
		},
	}

	row := NewConversionLog(7, res)
	assert.Equal(t, "req-1", row.RequestID)
	assert.Equal(t, uint(7), row.UserID)
	assert.Equal(t, "brace", row.SourceFormat)
	assert.Equal(t, "bracket", row.TargetFormat)
	assert.True(t, row.Detected)
	assert.InDelta(t, 0.8, row.Confidence, 1e-9)
	assert.Equal(t, 4, row.Chords)
	assert.Equal(t, 3, row.Lines)
	assert.Equal(t, 1, row.ErrorCount)
	assert.Equal(t, 2, row.WarningCount)
	assert.Equal(t, int64(12), row.DurationMS)
	assert.Equal(t, started, row.CreatedAt)
	assert.True(t, row.Success)
}

func TestHistoryService_WithoutDatabase(t *testing.T) {
	svc := NewHistoryService(nil)
	assert.False(t, svc.Enabled())

	_, err := svc.Record(1, engine.Result{})
	require.ErrorIs(t, err, ErrNoDatabase)
	_, err = svc.List(1, 10, 0)
	require.ErrorIs(t, err, ErrNoDatabase)
	_, err = svc.Get(1, "x")
	require.ErrorIs(t, err, ErrNoDatabase)
	_, err = svc.Stats(1, time.Time{}, time.Time{})
	require.ErrorIs(t, err, ErrNoDatabase)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultHistoryLimit, ClampLimit(0))
	assert.Equal(t, defaultHistoryLimit, ClampLimit(-3))
	assert.Equal(t, 20, ClampLimit(20))
	assert.Equal(t, maxHistoryLimit, ClampLimit(10000))
}
