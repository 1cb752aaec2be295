package cloud

import (
	"context"
	"fmt"
	"os"

	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
)

// LocalProviderName is the provider id used in API routes.
const LocalProviderName = "local"

// NewLocalProvider serves files under root. Authenticate succeeds once
// root exists and is a directory.
func NewLocalProvider(root string) Provider {
	return &storeProvider{
		name:  LocalProviderName,
		store: localStore{root: root},
		check: func(context.Context) error {
			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("local provider: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("local provider: %s is not a directory", root)
			}
			return nil
		},
	}
}

// localStore opens the FileStore lazily so a missing root is reported by
// Authenticate instead of being created.
type localStore struct {
	root string
}

func (s localStore) open() (*storage.FileStore, error) {
	return storage.NewFileStore(s.root)
}

func (s localStore) Read(ctx context.Context, key string) ([]byte, error) {
	fs, err := s.open()
	if err != nil {
		return nil, err
	}
	return fs.Read(ctx, key)
}

func (s localStore) Write(ctx context.Context, key string, data []byte) error {
	fs, err := s.open()
	if err != nil {
		return err
	}
	return fs.Write(ctx, key, data)
}

func (s localStore) Exists(ctx context.Context, key string) (bool, error) {
	fs, err := s.open()
	if err != nil {
		return false, err
	}
	return fs.Exists(ctx, key)
}

func (s localStore) Delete(ctx context.Context, key string) error {
	fs, err := s.open()
	if err != nil {
		return err
	}
	return fs.Delete(ctx, key)
}

func (s localStore) List(ctx context.Context, prefix string) ([]string, error) {
	fs, err := s.open()
	if err != nil {
		return nil, err
	}
	return fs.List(ctx, prefix)
}
