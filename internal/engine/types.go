package engine

import (
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/detect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// Request describes one conversion. SourceFormat may be empty, in which
// case the detector picks it. FromKey and ToKey are set together or not
// at all.
type Request struct {
	Input        string      `json:"input"`
	SourceFormat song.Format `json:"source_format,omitempty"`
	TargetFormat song.Format `json:"target_format"`
	FromKey      string      `json:"from_key,omitempty"`
	ToKey        string      `json:"to_key,omitempty"`
	RecoveryMode string      `json:"recovery_mode,omitempty"`
	Persist      bool        `json:"persist,omitempty"`
}

// Transposes reports whether the request asks for a key change.
func (r Request) Transposes() bool {
	return r.FromKey != "" || r.ToKey != ""
}

// Metadata describes how a conversion ran.
type Metadata struct {
	RequestID    string      `json:"request_id"`
	SourceFormat song.Format `json:"source_format,omitempty"`
	TargetFormat song.Format `json:"target_format,omitempty"`
	// Detected is set when the source dialect came from the detector.
	Detected     bool               `json:"detected"`
	Confidence   float64            `json:"confidence"`
	Candidates   []detect.Candidate `json:"candidates,omitempty"`
	FromKey      string             `json:"from_key,omitempty"`
	ToKey        string             `json:"to_key,omitempty"`
	Transposed   bool               `json:"transposed"`
	Semitones    int                `json:"semitones,omitempty"`
	Key          string             `json:"key,omitempty"`
	DetectedKey  string             `json:"detected_key,omitempty"`
	RecoveryMode string             `json:"recovery_mode,omitempty"`
	Stats        song.Stats         `json:"stats"`
	InputHash    string             `json:"input_hash,omitempty"`
	Persisted    bool               `json:"persisted"`
	// Recovered is set when the pipeline crashed and the output came from
	// the last-resort line fallback.
	Recovered   bool      `json:"recovered,omitempty"`
	FailedStage string    `json:"failed_stage,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// Result is the outcome of Convert. Errors can be present on a successful
// result when individual lines failed; Success is false only when no
// output could be produced.
type Result struct {
	Success  bool                       `json:"success"`
	Output   string                     `json:"output"`
	Errors   []*converr.ConversionError `json:"errors"`
	Warnings []string                   `json:"warnings"`
	Metadata Metadata                   `json:"metadata"`

	// Model is the canonical model after transposition. It is not part of
	// the stored result.
	Model *song.Model `json:"-"`
}

func (r *Result) fail(stage string, err error) {
	r.Success = false
	r.Metadata.FailedStage = stage
	r.Errors = append(r.Errors, converr.Wrap(converr.KindConversion, err))
}

// FirstError returns the first recorded error, or nil.
func (r Result) FirstError() *converr.ConversionError {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// ParseRequest asks for a canonical model without rendering.
type ParseRequest struct {
	Input        string      `json:"input"`
	Format       song.Format `json:"format,omitempty"`
	Key          string      `json:"key,omitempty"`
	RecoveryMode string      `json:"recovery_mode,omitempty"`
}
