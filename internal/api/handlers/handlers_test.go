package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/cloud"
	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/music"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
)

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5.00s", formatUptime(5*time.Second))
	assert.Equal(t, "2m3.50s", formatUptime(2*time.Minute+3500*time.Millisecond))
	assert.Equal(t, "1h0m1.00s", formatUptime(time.Hour+time.Second))
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, resultStatus(engine.Result{Success: true}))
	assert.Equal(t, http.StatusBadRequest, resultStatus(engine.Result{Metadata: engine.Metadata{FailedStage: engine.StageValidate}}))
	assert.Equal(t, http.StatusUnprocessableEntity, resultStatus(engine.Result{Metadata: engine.Metadata{FailedStage: engine.StageParse}}))
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, errorStatus(nil))
	assert.Equal(t, http.StatusBadRequest, errorStatus(converr.New(converr.KindFormat, "x").Fatal()))
	assert.Equal(t, http.StatusUnprocessableEntity, errorStatus(converr.New(converr.KindFormat, "x")))
}

func TestCloudStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, cloudStatus(cloud.ErrUnknownProvider))
	assert.Equal(t, http.StatusNotFound, cloudStatus(storage.ErrNotFound))
	assert.Equal(t, http.StatusUnauthorized, cloudStatus(cloud.ErrNotAuthenticated))
	assert.Equal(t, http.StatusConflict, cloudStatus(cloud.ErrWouldOverwrite))
	assert.Equal(t, http.StatusBadGateway, cloudStatus(errors.New("timeout")))
}

func TestInspectChord(t *testing.T) {
	key := music.MustKey("C")

	resp, err := inspectChord("Am7", &key)
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "letter", resp.Notation)
	assert.Equal(t, "vi", resp.Function)
	require.NotNil(t, resp.Components)
	assert.Equal(t, "A", resp.Components.Root)

	resp, err = inspectChord("Am7", nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Function)
	assert.Empty(t, resp.Nashville)

	resp, err = inspectChord("b7", &key)
	require.NoError(t, err)
	assert.Equal(t, "nashville", resp.Notation)
	assert.True(t, resp.Valid)
	assert.Equal(t, "Bb", resp.Canonical)

	_, err = inspectChord("5/5", nil)
	assert.Error(t, err)

	_, err = inspectChord("xyz", nil)
	assert.Error(t, err)
}
