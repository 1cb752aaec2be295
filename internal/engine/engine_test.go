package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/detect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/dialect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
)

func newEngine(t *testing.T, mutate func(*Deps)) *Engine {
	t.Helper()
	deps := DefaultDeps(nil, nil)
	deps.NewID = func() string { return "req-1" }
	if mutate != nil {
		mutate(&deps)
	}
	e, err := New(deps)
	require.NoError(t, err)
	return e
}

func TestNew_RequiresRegistryAndDetector(t *testing.T) {
	_, err := New(Deps{Detector: detect.Default()})
	assert.Error(t, err)
	_, err = New(Deps{Registry: dialect.DefaultRegistry()})
	assert.Error(t, err)

	e, err := New(Deps{Registry: dialect.DefaultRegistry(), Detector: detect.Default()})
	require.NoError(t, err)
	res := e.Convert(context.Background(), Request{Input: "[G]Hi", TargetFormat: song.FormatBold})
	assert.True(t, res.Success)
	assert.Len(t, res.Metadata.RequestID, 36)
}

func TestConvert_ExplicitSource(t *testing.T) {
	e := newEngine(t, nil)
	res := e.Convert(context.Background(), Request{
		Input:        "[Am7]Hello [G/B]world",
		SourceFormat: song.FormatBracket,
		TargetFormat: song.FormatChordOverLyric,
	})

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, "Am7   G/B\nHello world", res.Output)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "req-1", res.Metadata.RequestID)
	assert.Equal(t, song.FormatBracket, res.Metadata.SourceFormat)
	assert.False(t, res.Metadata.Detected)
	assert.Equal(t, 1.0, res.Metadata.Confidence)
	assert.Equal(t, 2, res.Metadata.Stats.Chords)
	assert.Equal(t, "moderate", res.Metadata.RecoveryMode)
	require.NotNil(t, res.Model)
	assert.Equal(t, "req-1", res.Model.Metadata.ID)
}

func TestConvert_DetectsSource(t *testing.T) {
	e := newEngine(t, nil)
	res := e.Convert(context.Background(), Request{
		Input:        "[Am7]Hello [G/B]world",
		TargetFormat: "BOLD",
	})

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, "**Am7**Hello **G/B**world", res.Output)
	assert.True(t, res.Metadata.Detected)
	assert.Equal(t, song.FormatBracket, res.Metadata.SourceFormat)
	assert.Equal(t, song.FormatBold, res.Metadata.TargetFormat)
	assert.Greater(t, res.Metadata.Confidence, 0.1)
	assert.Len(t, res.Metadata.Candidates, len(song.Formats))
}

func TestConvert_Transposes(t *testing.T) {
	e := newEngine(t, nil)
	res := e.Convert(context.Background(), Request{
		Input:        "[C]Hello [G]world",
		SourceFormat: song.FormatBracket,
		TargetFormat: song.FormatBracket,
		FromKey:      "C",
		ToKey:        "D",
	})

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, "Key: D\n\n[D]Hello [A]world", res.Output)
	assert.True(t, res.Metadata.Transposed)
	assert.Equal(t, 2, res.Metadata.Semitones)
	assert.Equal(t, "D", res.Metadata.Key)
}

func TestConvert_LineErrorsKeepSuccess(t *testing.T) {
	e := newEngine(t, nil)
	res := e.Convert(context.Background(), Request{
		Input:        "Key: G\n\n1 4 8 1\n1 4 5 1",
		SourceFormat: song.FormatNashville,
		TargetFormat: song.FormatChordOverLyric,
	})

	require.True(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, converr.KindValidation, res.Errors[0].Kind)
	assert.Contains(t, res.Output, "1 4 8 1")
	assert.Contains(t, res.Output, "G C D G")
	assert.Empty(t, res.Metadata.FailedStage)
}

func TestConvert_RejectsBadRequests(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		kind  converr.Kind
		stage string
	}{
		{"empty input", Request{Input: "  \n", TargetFormat: song.FormatBold}, converr.KindConversion, StageValidate},
		{"missing target", Request{Input: "[G]Hi"}, converr.KindConversion, StageValidate},
		{"unsupported target", Request{Input: "[G]Hi", TargetFormat: "musicxml"}, converr.KindFormat, StageValidate},
		{"unsupported source", Request{Input: "[G]Hi", SourceFormat: "abc", TargetFormat: song.FormatBold}, converr.KindFormat, StageValidate},
		{"half a key pair", Request{Input: "[G]Hi", TargetFormat: song.FormatBold, FromKey: "G"}, converr.KindTranspose, StageValidate},
		{"unknown recovery mode", Request{Input: "[G]Hi", TargetFormat: song.FormatBold, RecoveryMode: "lenient"}, converr.KindConversion, StageValidate},
		{"undetectable input", Request{Input: "just some words on a line", TargetFormat: song.FormatBold}, converr.KindFormat, StageDetect},
		{"bad key", Request{Input: "[G]Hi", SourceFormat: song.FormatBracket, TargetFormat: song.FormatBold, FromKey: "G", ToKey: "H"}, converr.KindKey, StageTranspose},
	}

	e := newEngine(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Convert(context.Background(), tt.req)
			assert.False(t, res.Success)
			assert.Empty(t, res.Output)
			assert.Equal(t, tt.stage, res.Metadata.FailedStage)
			first := res.FirstError()
			require.NotNil(t, first)
			assert.Equal(t, tt.kind, first.Kind)
		})
	}
}

func TestConvert_RejectedRequestIsNotRecoverable(t *testing.T) {
	res := newEngine(t, nil).Convert(context.Background(), Request{Input: "[G]Hi"})
	require.NotNil(t, res.FirstError())
	assert.False(t, res.FirstError().Recoverable)
	assert.NotEmpty(t, res.FirstError().Suggestion)
}

type panicParser struct{}

func (panicParser) Parse(string, dialect.Options) dialect.Result { panic("parser bug") }
func (panicParser) IsValid(string) bool { return true }
func (panicParser) SupportedFormat() song.Format { return song.FormatBracket }

type panicRenderer struct{}

func (panicRenderer) Render(*song.Model, dialect.RenderOptions) (string, error) { panic("renderer bug") }
func (panicRenderer) SupportedFormat() song.Format { return song.FormatBracket }

func TestConvert_PanicFallsBackToPlainText(t *testing.T) {
	reg := dialect.DefaultRegistry()
	renderer, err := reg.Renderer(song.FormatBracket)
	require.NoError(t, err)
	require.NoError(t, reg.Register(panicParser{}, renderer))

	e := newEngine(t, func(d *Deps) { d.Registry = reg })
	res := e.Convert(context.Background(), Request{
		Input:        "Hello\nworld",
		SourceFormat: song.FormatBracket,
		TargetFormat: song.FormatBracket,
	})

	require.True(t, res.Success)
	assert.Equal(t, "Hello\nworld", res.Output)
	assert.True(t, res.Metadata.Recovered)
	assert.Equal(t, StagePanic, res.Metadata.FailedStage)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "parser bug")
	assert.NotEmpty(t, res.Warnings)
}

func TestConvert_PanicWithoutFallbackSurfacesError(t *testing.T) {
	reg := dialect.DefaultRegistry()
	require.NoError(t, reg.Register(panicParser{}, panicRenderer{}))

	e := newEngine(t, func(d *Deps) { d.Registry = reg })
	var res Result
	assert.NotPanics(t, func() {
		res = e.Convert(context.Background(), Request{
			Input:        "Hello",
			SourceFormat: song.FormatBracket,
			TargetFormat: song.FormatBracket,
		})
	})

	assert.False(t, res.Success)
	assert.False(t, res.Metadata.Recovered)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, converr.KindConversion, res.Errors[0].Kind)
	assert.Contains(t, res.Errors[0].Message, "parser bug")
}

type failingStore struct{}

func (failingStore) SaveInput(context.Context, string) (string, error) { return "", errors.New("disk full") }
func (failingStore) SaveModel(context.Context, *song.Model) error { return nil }
func (failingStore) SaveConversion(context.Context, string, interface{}) error {
	return nil
}

func TestConvert_Persists(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewRepository(storage.NewMemoryStore())
	e := newEngine(t, func(d *Deps) { d.Store = repo })

	res := e.Convert(ctx, Request{
		Input:        "[G]Hello",
		SourceFormat: song.FormatBracket,
		TargetFormat: song.FormatBold,
		Persist:      true,
	})
	require.True(t, res.Success)
	assert.True(t, res.Metadata.Persisted)
	assert.Equal(t, storage.HashInput("[G]Hello"), res.Metadata.InputHash)

	var stored Result
	require.NoError(t, repo.LoadConversion(ctx, "req-1", &stored))
	assert.Equal(t, "**G**Hello", stored.Output)
	assert.True(t, stored.Metadata.Persisted)

	model, err := repo.LoadModel(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, 1, model.Stats().Chords)

	text, err := repo.LoadInput(ctx, res.Metadata.InputHash)
	require.NoError(t, err)
	assert.Equal(t, "[G]Hello", text)
}

func TestConvert_PersistFailureIsAWarning(t *testing.T) {
	req := Request{Input: "[G]Hello", SourceFormat: song.FormatBracket, TargetFormat: song.FormatBold, Persist: true}

	res := newEngine(t, func(d *Deps) { d.Store = failingStore{} }).Convert(context.Background(), req)
	assert.True(t, res.Success)
	assert.False(t, res.Metadata.Persisted)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "disk full")

	res = newEngine(t, nil).Convert(context.Background(), req)
	assert.True(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no storage")
}

func TestConvert_PublishesEvents(t *testing.T) {
	bus := events.NewBus()
	var seen []events.Type
	var last events.Event
	bus.SubscribeAll(func(ev events.Event) {
		seen = append(seen, ev.Type)
		last = ev
	})
	e := newEngine(t, func(d *Deps) { d.Bus = bus })

	e.Convert(context.Background(), Request{Input: "[G]Hi", TargetFormat: song.FormatBold, FromKey: "G", ToKey: "A"})
	assert.Equal(t, []events.Type{
		events.ConversionStarted,
		events.FormatDetected,
		events.ParseCompleted,
		events.TransposeCompleted,
		events.RenderCompleted,
		events.ConversionCompleted,
	}, seen)
	assert.Equal(t, "req-1", last.RequestID)
	assert.Equal(t, "bold", last.Fields["target_format"])

	seen = nil
	e.Convert(context.Background(), Request{Input: "[G]Hi"})
	assert.Equal(t, []events.Type{events.ConversionStarted, events.ConversionFailed}, seen)
	assert.Equal(t, StageValidate, last.Fields["stage"])
	assert.Equal(t, "conversion", last.Fields["error_kind"])
}

func TestParse(t *testing.T) {
	e := newEngine(t, nil)

	res, f, err := e.Parse(ParseRequest{Input: "1 4 5 1", Format: song.FormatNashville, Key: "G"})
	require.NoError(t, err)
	assert.Equal(t, song.FormatNashville, f)
	require.True(t, res.Success)
	var roots []string
	for _, c := range res.Model.Chords() {
		roots = append(roots, c.Root().String())
	}
	assert.Equal(t, []string{"G", "C", "D", "G"}, roots)

	_, f, err = e.Parse(ParseRequest{Input: "{title: Amazing Grace}\n{C}Amazing [grace]"})
	require.NoError(t, err)
	assert.Equal(t, song.FormatBrace, f)

	_, _, err = e.Parse(ParseRequest{Input: ""})
	assert.True(t, converr.IsKind(err, converr.KindConversion))
	_, _, err = e.Parse(ParseRequest{Input: "[G]Hi", Format: "abc"})
	assert.True(t, converr.IsKind(err, converr.KindFormat))
	_, _, err = e.Parse(ParseRequest{Input: "[G]Hi", RecoveryMode: "sloppy"})
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	e := newEngine(t, nil)
	res := e.DetectFormat("")
	assert.Equal(t, song.DefaultFormat, res.Format)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, song.Formats, e.Formats())
}

func TestConvert_DefaultTarget(t *testing.T) {
	e := newEngine(t, func(d *Deps) { d.DefaultTarget = song.FormatBold })
	res := e.Convert(context.Background(), Request{Input: "[G]Hi", SourceFormat: song.FormatBracket})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, song.FormatBold, res.Metadata.TargetFormat)
	assert.Equal(t, "**G**Hi", res.Output)
}
