package cloud

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// Converter runs a conversion. *engine.Engine implements it.
type Converter interface {
	Convert(ctx context.Context, req engine.Request) engine.Result
}

// ImportRequest names a file on a provider and how to convert it.
type ImportRequest struct {
	Provider     string      `json:"provider"`
	Path         string      `json:"path"`
	SourceFormat song.Format `json:"source_format,omitempty"`
	TargetFormat song.Format `json:"target_format"`
	FromKey      string      `json:"from_key,omitempty"`
	ToKey        string      `json:"to_key,omitempty"`
	RecoveryMode string      `json:"recovery_mode,omitempty"`
	// WriteBack stores the output next to the source as <name><ext>.
	WriteBack bool `json:"write_back,omitempty"`
	Persist   bool `json:"persist,omitempty"`
}

// ImportResult is the conversion plus where its output went.
type ImportResult struct {
	Provider   string        `json:"provider"`
	Source     string        `json:"source"`
	OutputPath string        `json:"output_path,omitempty"`
	Result     engine.Result `json:"result"`
}

// Importer sits above the engine and owns the providers.
type Importer struct {
	conv Converter

	mu        sync.RWMutex
	providers map[string]Provider
}

func NewImporter(conv Converter, providers ...Provider) *Importer {
	im := &Importer{conv: conv, providers: make(map[string]Provider)}
	for _, p := range providers {
		im.Register(p)
	}
	return im
}

// Register adds or replaces a provider under its name.
func (im *Importer) Register(p Provider) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.providers[p.Name()] = p
}

// Provider looks up a provider by name.
func (im *Importer) Provider(name string) (Provider, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	p, ok := im.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Providers lists registered provider names in order.
func (im *Importer) Providers() []string {
	im.mu.RLock()
	defer im.mu.RUnlock()
	names := make([]string, 0, len(im.providers))
	for n := range im.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// List returns the provider's files under prefix.
func (im *Importer) List(ctx context.Context, provider, prefix string) ([]File, error) {
	p, err := im.Provider(provider)
	if err != nil {
		return nil, err
	}
	return p.List(ctx, prefix)
}

// Import reads the file, converts it and optionally writes the output
// back. The source dialect defaults to the one implied by the extension,
// then to detection. Conversion failures are in the result; the error is
// for provider problems.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	out := ImportResult{Provider: req.Provider, Source: req.Path}
	p, err := im.Provider(req.Provider)
	if err != nil {
		return out, err
	}
	data, err := p.Read(ctx, req.Path)
	if err != nil {
		return out, fmt.Errorf("read %s from %s: %w", req.Path, p.Name(), err)
	}

	source := req.SourceFormat
	if source == "" {
		if f, ok := song.FormatForExtension(path.Ext(req.Path)); ok {
			source = f
		}
	}
	out.Result = im.conv.Convert(ctx, engine.Request{
		Input:        string(data),
		SourceFormat: source,
		TargetFormat: req.TargetFormat,
		FromKey:      req.FromKey,
		ToKey:        req.ToKey,
		RecoveryMode: req.RecoveryMode,
		Persist:      req.Persist,
	})
	if !req.WriteBack || !out.Result.Success {
		return out, nil
	}

	target := OutputPath(req.Path, out.Result.Metadata.TargetFormat)
	if target == req.Path {
		return out, fmt.Errorf("%w: %s", ErrWouldOverwrite, req.Path)
	}
	if err := p.Write(ctx, target, []byte(out.Result.Output)); err != nil {
		return out, fmt.Errorf("write %s to %s: %w", target, p.Name(), err)
	}
	out.OutputPath = target
	return out, nil
}

// OutputPath swaps the extension of source for the dialect's.
func OutputPath(source string, f song.Format) string {
	ext := f.FileExtension()
	if ext == "" {
		ext = ".txt"
	}
	return strings.TrimSuffix(source, path.Ext(source)) + ext
}
