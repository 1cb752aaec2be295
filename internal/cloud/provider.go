// Package cloud reads chord sheets from file providers and converts them
// through the engine. The engine itself never calls a provider.
package cloud

import (
	"context"
	"errors"
	"path"
	"sync"

	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
)

// ErrNotAuthenticated is returned by provider calls made before a
// successful Authenticate.
var ErrNotAuthenticated = errors.New("cloud: provider not authenticated")

// ErrUnknownProvider is returned for provider names nobody registered.
var ErrUnknownProvider = errors.New("cloud: unknown provider")

// ErrWouldOverwrite is returned when a write-back target is the source.
var ErrWouldOverwrite = errors.New("cloud: output would overwrite the source")

// File is one entry of a provider listing.
type File struct {
	Path   string      `json:"path"`
	Name   string      `json:"name"`
	Format song.Format `json:"format,omitempty"`
}

// Provider is a file source. Paths are slash-separated and relative to the
// provider's root.
type Provider interface {
	Name() string
	IsAuthenticated() bool
	Authenticate(ctx context.Context) error
	List(ctx context.Context, prefix string) ([]File, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
}

// storeProvider adapts a storage.Store. check runs on Authenticate.
type storeProvider struct {
	name  string
	store storage.Store
	check func(ctx context.Context) error

	mu     sync.RWMutex
	authed bool
}

func (p *storeProvider) Name() string { return p.name }

func (p *storeProvider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authed
}

func (p *storeProvider) Authenticate(ctx context.Context) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	p.authed = true
	p.mu.Unlock()
	return nil
}

func (p *storeProvider) List(ctx context.Context, prefix string) ([]File, error) {
	if !p.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	keys, err := p.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	files := make([]File, 0, len(keys))
	for _, k := range keys {
		f := File{Path: k, Name: path.Base(k)}
		if format, ok := song.FormatForExtension(path.Ext(k)); ok {
			f.Format = format
		}
		files = append(files, f)
	}
	return files, nil
}

func (p *storeProvider) Read(ctx context.Context, name string) ([]byte, error) {
	if !p.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	return p.store.Read(ctx, name)
}

func (p *storeProvider) Write(ctx context.Context, name string, data []byte) error {
	if !p.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return p.store.Write(ctx, name, data)
}

func (p *storeProvider) Delete(ctx context.Context, name string) error {
	if !p.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return p.store.Delete(ctx, name)
}
