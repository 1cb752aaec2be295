package dialect

import (
	"fmt"
	"sync"

	"github.com/Conceptual-Machines/chordsheet-api/internal/converr"
	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// Registry maps dialect ids to parsers and renderers. Register everything
// before sharing it; lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	parsers   map[song.Format]Parser
	renderers map[song.Format]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[song.Format]Parser),
		renderers: make(map[song.Format]Renderer),
	}
}

// DefaultRegistry holds all six dialects.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	strategies := []Strategy{
		newBraceStrategy(),
		newBracketStrategy(),
		newNashvilleStrategy(),
		newChordOverLyricStrategy(),
		newTabStrategy(),
		newBoldStrategy(),
	}
	for _, s := range strategies {
		if err := r.Register(NewLineParser(s), newRenderer(s.Format())); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a dialect. Parser and renderer must agree on the id.
func (r *Registry) Register(p Parser, rd Renderer) error {
	f := p.SupportedFormat()
	if rd != nil && rd.SupportedFormat() != f {
		return fmt.Errorf("parser for %s registered with renderer for %s", f, rd.SupportedFormat())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[f] = p
	if rd != nil {
		r.renderers[f] = rd
	}
	return nil
}

// Parser returns the parser for f.
func (r *Registry) Parser(f song.Format) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[f]
	if !ok {
		return nil, converr.New(converr.KindFormat, "unsupported source format %q", f).Fatal()
	}
	return p, nil
}

// Renderer returns the renderer for f.
func (r *Registry) Renderer(f song.Format) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.renderers[f]
	if !ok {
		return nil, converr.New(converr.KindFormat, "unsupported target format %q", f).Fatal()
	}
	return rd, nil
}

// Supports reports whether f can be parsed.
func (r *Registry) Supports(f song.Format) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.parsers[f]
	return ok
}

// Formats lists registered dialects in declaration order.
func (r *Registry) Formats() []song.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []song.Format
	for _, f := range song.Formats {
		if _, ok := r.parsers[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
