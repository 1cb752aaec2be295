// Package engine is the conversion facade: it validates a request,
// resolves the source dialect, parses, optionally transposes, renders and
// assembles the result. Everything it talks to is injected through Deps.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/detect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/dialect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
	"github.com/Conceptual-Machines/chordsheet-api/internal/recovery"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// Pipeline stages, reported in Metadata.FailedStage and event fields.
const (
	StageValidate  = "validate"
	StageDetect    = "detect"
	StageParse     = "parse"
	StageTranspose = "transpose"
	StageRender    = "render"
	StagePanic     = "panic"
)

// Engine runs conversions. It holds no per-request state and is safe for
// concurrent use as long as its dependencies are.
type Engine struct {
	deps Deps
	now  func() time.Time
}

// New checks deps and fills in defaults for the optional ones.
func New(deps Deps) (*Engine, error) {
	if deps.Registry == nil {
		return nil, errors.New("engine needs a dialect registry")
	}
	if deps.Detector == nil {
		return nil, errors.New("engine needs a format detector")
	}
	if deps.Recovery == nil {
		deps.Recovery = recovery.ForMode
	}
	if deps.RecoveryMode == "" {
		deps.RecoveryMode = recovery.DefaultMode
	}
	if deps.Transposer == nil {
		deps.Transposer = KeyTransposer{}
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Engine{deps: deps, now: time.Now}, nil
}

// Formats lists the dialects the engine can read.
func (e *Engine) Formats() []song.Format {
	return e.deps.Registry.Formats()
}

// DetectFormat ranks the dialects for text. Confidence 0 means the format
// is only the default guess.
func (e *Engine) DetectFormat(text string) detect.Result {
	return e.deps.Detector.Detect(text)
}

// Convert runs the whole pipeline. It never panics; every failure is
// reported in the result.
func (e *Engine) Convert(ctx context.Context, req Request) (res Result) {
	start := e.now()
	res = Result{
		Errors:   []*converr.ConversionError{},
		Warnings: []string{},
		Metadata: Metadata{
			RequestID:    e.deps.NewID(),
			SourceFormat: req.SourceFormat,
			TargetFormat: req.TargetFormat,
			FromKey:      req.FromKey,
			ToKey:        req.ToKey,
			StartedAt:    start.UTC(),
		},
	}
	e.publish(events.ConversionStarted, res.Metadata.RequestID, 0, events.Fields{
		"source_format": string(req.SourceFormat),
		"target_format": string(req.TargetFormat),
		"input_bytes":   len(req.Input),
		"transpose":     req.Transposes(),
	})

	defer func() {
		if r := recover(); r != nil {
			e.lastResort(req, &res, r)
		}
		res.Metadata.DurationMS = e.now().Sub(start).Milliseconds()
		e.persist(ctx, req, &res)
		e.finish(&res, e.now().Sub(start))
	}()

	e.run(req, &res)
	return res
}

func (e *Engine) run(req Request, res *Result) {
	target, mode, err := e.validate(req)
	if err != nil {
		res.fail(StageValidate, err)
		return
	}
	res.Metadata.TargetFormat = target
	res.Metadata.RecoveryMode = string(mode)

	source, err := e.resolveFormat(req.Input, req.SourceFormat, &res.Metadata)
	if err != nil {
		res.fail(StageDetect, err)
		return
	}
	res.Metadata.SourceFormat = source

	parsed := e.parse(req.Input, source, req.FromKey, mode, res.Metadata.RequestID)
	res.Errors = append(res.Errors, parsed.Errors...)
	res.Warnings = append(res.Warnings, parsed.Warnings...)
	if !parsed.Success || parsed.Model == nil {
		res.fail(StageParse, fmt.Errorf("could not parse input as %s", source))
		return
	}
	m := parsed.Model
	res.Model = m

	if req.FromKey != "" && req.ToKey != "" {
		semitones, err := e.deps.Transposer.Transpose(m, req.FromKey, req.ToKey)
		if err != nil {
			res.fail(StageTranspose, err)
			return
		}
		res.Metadata.Transposed = true
		res.Metadata.Semitones = semitones
		e.publish(events.TransposeCompleted, res.Metadata.RequestID, 0, events.Fields{
			"from_key":  req.FromKey,
			"to_key":    req.ToKey,
			"semitones": semitones,
			"chords":    len(m.Chords()),
		})
	}

	renderer, err := e.deps.Registry.Renderer(target)
	if err != nil {
		res.fail(StageRender, err)
		return
	}
	renderStart := e.now()
	out, err := renderer.Render(m, dialect.RenderOptions{})
	if err != nil {
		res.fail(StageRender, err)
		return
	}
	e.publish(events.RenderCompleted, res.Metadata.RequestID, e.now().Sub(renderStart), events.Fields{
		"target_format": string(target),
		"output_bytes":  len(out),
	})

	res.Success = true
	res.Output = out
	res.Metadata.Stats = m.Stats()
	res.Metadata.Key = m.Metadata.OriginalKey
	res.Metadata.DetectedKey = m.Metadata.DetectedKey
}

// validate rejects requests that cannot run at all. Its errors are fatal.
func (e *Engine) validate(req Request) (song.Format, recovery.Mode, error) {
	if strings.TrimSpace(req.Input) == "" {
		return "", "", converr.New(converr.KindConversion, "input is empty").Fatal()
	}
	requested := req.TargetFormat
	if requested == "" {
		requested = e.deps.DefaultTarget
	}
	if requested == "" {
		return "", "", converr.New(converr.KindConversion, "target format is required").
			WithSuggestion("one of " + joinFormats(e.Formats())).Fatal()
	}
	target, ok := song.ParseFormat(string(requested))
	if !ok || !e.deps.Registry.Supports(target) {
		return "", "", converr.New(converr.KindFormat, "unsupported target format %q", requested).
			WithSuggestion("one of " + joinFormats(e.Formats())).Fatal()
	}
	if req.SourceFormat != "" {
		source, ok := song.ParseFormat(string(req.SourceFormat))
		if !ok || !e.deps.Registry.Supports(source) {
			return "", "", converr.New(converr.KindFormat, "unsupported source format %q", req.SourceFormat).
				WithSuggestion("leave it empty to detect the format").Fatal()
		}
	}
	if (req.FromKey == "") != (req.ToKey == "") {
		return "", "", converr.New(converr.KindTranspose, "transposition needs both from_key and to_key").Fatal()
	}
	mode := e.deps.RecoveryMode
	if req.RecoveryMode != "" {
		m, err := recovery.ParseMode(req.RecoveryMode)
		if err != nil {
			return "", "", converr.Wrap(converr.KindConversion, err).
				WithSuggestion("strict, moderate or permissive").Fatal()
		}
		mode = m
	}
	return target, mode, nil
}

// resolveFormat returns the explicit source dialect or the detector's top
// candidate. A detection with zero confidence is a format error.
func (e *Engine) resolveFormat(input string, explicit song.Format, meta *Metadata) (song.Format, error) {
	if explicit != "" {
		f, _ := song.ParseFormat(string(explicit))
		meta.Confidence = 1
		return f, nil
	}
	det := e.deps.Detector.Detect(input)
	meta.Detected = true
	meta.Confidence = det.Confidence
	meta.Candidates = det.Candidates
	e.publish(events.FormatDetected, meta.RequestID, 0, events.Fields{
		"format":     string(det.Format),
		"confidence": det.Confidence,
	})
	if det.Confidence == 0 {
		return "", converr.New(converr.KindFormat, "could not detect the input format").
			WithSuggestion("set the source format explicitly").Fatal()
	}
	if !e.deps.Registry.Supports(det.Format) {
		return "", converr.New(converr.KindFormat, "detected format %s has no parser", det.Format).Fatal()
	}
	return det.Format, nil
}

func (e *Engine) parse(input string, f song.Format, key string, mode recovery.Mode, id string) dialect.Result {
	parser, err := e.deps.Registry.Parser(f)
	if err != nil {
		return dialect.Result{Errors: []*converr.ConversionError{converr.Wrap(converr.KindFormat, err)}}
	}
	start := e.now()
	pr := parser.Parse(input, dialect.Options{
		ID:       id,
		Key:      key,
		Recovery: e.deps.Recovery(mode, f),
		Now:      start,
	})
	fields := events.Fields{
		"format":   string(f),
		"success":  pr.Success,
		"errors":   len(pr.Errors),
		"warnings": len(pr.Warnings),
	}
	if pr.Model != nil {
		stats := pr.Model.Stats()
		fields["lines"] = stats.Lines
		fields["chords"] = stats.Chords
		fields["sections"] = stats.Sections
	}
	e.publish(events.ParseCompleted, id, e.now().Sub(start), fields)
	return pr
}

// Parse resolves the dialect and parses input without rendering. The
// error is set only for requests that cannot run; parse problems are in
// the dialect result.
func (e *Engine) Parse(req ParseRequest) (dialect.Result, song.Format, error) {
	if strings.TrimSpace(req.Input) == "" {
		return dialect.Result{}, "", converr.New(converr.KindConversion, "input is empty").Fatal()
	}
	mode := e.deps.RecoveryMode
	if req.RecoveryMode != "" {
		m, err := recovery.ParseMode(req.RecoveryMode)
		if err != nil {
			return dialect.Result{}, "", converr.Wrap(converr.KindConversion, err).Fatal()
		}
		mode = m
	}
	var meta Metadata
	if req.Format != "" {
		f, ok := song.ParseFormat(string(req.Format))
		if !ok || !e.deps.Registry.Supports(f) {
			return dialect.Result{}, "", converr.New(converr.KindFormat, "unsupported format %q", req.Format).Fatal()
		}
		req.Format = f
	}
	f, err := e.resolveFormat(req.Input, req.Format, &meta)
	if err != nil {
		return dialect.Result{}, "", err
	}
	return e.parse(req.Input, f, req.Key, mode, e.deps.NewID()), f, nil
}

// lastResort runs after a panic. Every input line goes through the
// recovery chain, which ends in the plain-text fallback, and the result is
// rendered to the target. If that fails too the original error stands.
func (e *Engine) lastResort(req Request, res *Result, cause interface{}) {
	crash := converr.New(converr.KindConversion, "conversion crashed: %v", cause)
	crash.Recoverable = true
	res.Success = false
	res.Output = ""
	res.Errors = append(res.Errors, crash)
	res.Metadata.FailedStage = StagePanic

	out, err := e.fallbackRender(req, res.Metadata, crash)
	if err != nil {
		return
	}
	res.Success = true
	res.Output = out
	res.Metadata.Recovered = true
	res.Warnings = append(res.Warnings, "output degraded to plain text after an internal error")
}

func (e *Engine) fallbackRender(req Request, meta Metadata, crash *converr.ConversionError) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback render panicked: %v", r)
		}
	}()
	target := meta.TargetFormat
	if !target.Valid() {
		return "", errors.New("no target format")
	}
	source := meta.SourceFormat
	if !source.Valid() {
		source = song.DefaultFormat
	}
	mode := recovery.Mode(meta.RecoveryMode)
	if mode == "" {
		mode = e.deps.RecoveryMode
	}
	chain := e.deps.Recovery(mode, source)

	m := song.NewModel(meta.RequestID, source, e.now())
	for i, raw := range strings.Split(strings.ReplaceAll(req.Input, "\r\n", "\n"), "\n") {
		rec, err := chain.Recover(crash, recovery.Input{Line: raw, LineNumber: i + 1, Format: source})
		if err != nil {
			return "", err
		}
		m.Append(rec.Line)
	}
	renderer, err := e.deps.Registry.Renderer(target)
	if err != nil {
		return "", err
	}
	return renderer.Render(m, dialect.RenderOptions{Key: req.ToKey})
}

// persist stores the input, model and result when asked. Failures become
// warnings; the conversion itself already succeeded or failed.
func (e *Engine) persist(ctx context.Context, req Request, res *Result) {
	if !req.Persist {
		return
	}
	if e.deps.Store == nil {
		res.Warnings = append(res.Warnings, "persistence requested but no storage is configured")
		return
	}
	hash, err := e.deps.Store.SaveInput(ctx, req.Input)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("input not persisted: %v", err))
		return
	}
	res.Metadata.InputHash = hash
	if res.Model != nil {
		if err := e.deps.Store.SaveModel(ctx, res.Model); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("model not persisted: %v", err))
		}
	}
	res.Metadata.Persisted = true
	if err := e.deps.Store.SaveConversion(ctx, res.Metadata.RequestID, res); err != nil {
		res.Metadata.Persisted = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("result not persisted: %v", err))
	}
}

func (e *Engine) finish(res *Result, elapsed time.Duration) {
	fields := events.Fields{
		"source_format": string(res.Metadata.SourceFormat),
		"target_format": string(res.Metadata.TargetFormat),
		"confidence":    res.Metadata.Confidence,
		"detected":      res.Metadata.Detected,
		"transposed":    res.Metadata.Transposed,
		"lines":         res.Metadata.Stats.Lines,
		"chords":        res.Metadata.Stats.Chords,
		"errors":        len(res.Errors),
		"warnings":      len(res.Warnings),
		"recovered":     res.Metadata.Recovered,
		"persisted":     res.Metadata.Persisted,
	}
	if res.Success {
		e.publish(events.ConversionCompleted, res.Metadata.RequestID, elapsed, fields)
		return
	}
	fields["stage"] = res.Metadata.FailedStage
	if first := res.FirstError(); first != nil {
		fields["error"] = first.Error()
		fields["error_kind"] = string(first.Kind)
	}
	e.publish(events.ConversionFailed, res.Metadata.RequestID, elapsed, fields)
}

func (e *Engine) publish(t events.Type, id string, d time.Duration, fields events.Fields) {
	e.deps.Bus.Publish(events.Event{Type: t, RequestID: id, Duration: d, Fields: fields})
}

func joinFormats(fs []song.Format) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
