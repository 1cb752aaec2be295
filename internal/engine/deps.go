package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/Conceptual-Machines/chordsheet-api/internal/detect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/dialect"
	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
	"github.com/Conceptual-Machines/chordsheet-api/internal/recovery"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
	"github.com/Conceptual-Machines/chordsheet-api/internal/transpose"
)

// Persister stores conversion artifacts. storage.Repository implements it.
type Persister interface {
	SaveInput(ctx context.Context, text string) (string, error)
	SaveModel(ctx context.Context, m *song.Model) error
	SaveConversion(ctx context.Context, id string, result interface{}) error
}

// Transposer changes a model's key in place and returns the upward
// semitone distance applied.
type Transposer interface {
	Transpose(m *song.Model, from, to string) (int, error)
}

// RecoveryPolicy picks the recovery chain for a mode and source dialect.
type RecoveryPolicy func(mode recovery.Mode, f song.Format) *recovery.Chain

// KeyTransposer runs a transpose.KeyCommand.
type KeyTransposer struct{}

func (KeyTransposer) Transpose(m *song.Model, from, to string) (int, error) {
	cmd, err := transpose.NewKeyCommand(m, from, to)
	if err != nil {
		return 0, err
	}
	if err := cmd.Execute(); err != nil {
		return 0, err
	}
	return cmd.Distance(), nil
}

// Deps is everything the engine uses. Registry and Detector are required;
// the rest fall back to the defaults noted on each field.
type Deps struct {
	Registry *dialect.Registry
	Detector *detect.Detector
	// Bus receives pipeline events. Nil drops them.
	Bus *events.Bus
	// Recovery defaults to recovery.ForMode.
	Recovery RecoveryPolicy
	// RecoveryMode applies when a request names none.
	RecoveryMode recovery.Mode
	// DefaultTarget applies when a request names no target. Empty makes
	// the target required.
	DefaultTarget song.Format
	// Transposer defaults to KeyTransposer.
	Transposer Transposer
	// Store persists results on request. Nil turns Persist into a warning.
	Store Persister
	// NewID defaults to uuid.NewString.
	NewID func() string
}

// DefaultDeps wires the built-in dialects and detector to bus and store.
func DefaultDeps(bus *events.Bus, store Persister) Deps {
	return Deps{
		Registry:     dialect.DefaultRegistry(),
		Detector:     detect.Default(),
		Bus:          bus,
		Recovery:     recovery.ForMode,
		RecoveryMode: recovery.DefaultMode,
		Transposer:   KeyTransposer{},
		Store:        store,
		NewID:        uuid.NewString,
	}
}
