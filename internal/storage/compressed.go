package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ulikunitz/xz"
)

const xzSuffix = ".xz"

// CompressedStore xz-compresses values on their way into another store.
// Keys seen by callers never carry the ".xz" suffix.
type CompressedStore struct {
	inner Store
}

func NewCompressedStore(inner Store) *CompressedStore {
	return &CompressedStore{inner: inner}
}

func (s *CompressedStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	packed, err := s.inner.Read(ctx, key+xzSuffix)
	if err != nil {
		return nil, err
	}
	r, err := xz.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("xz reader for %s: %w", key, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", key, err)
	}
	return data, nil
}

func (s *CompressedStore) Write(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("xz writer for %s: %w", key, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to compress %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to compress %s: %w", key, err)
	}
	return s.inner.Write(ctx, key+xzSuffix, buf.Bytes())
}

func (s *CompressedStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	return s.inner.Exists(ctx, key+xzSuffix)
}

func (s *CompressedStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.inner.Delete(ctx, key+xzSuffix)
}

func (s *CompressedStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, xzSuffix) {
			out = append(out, strings.TrimSuffix(k, xzSuffix))
		}
	}
	return out, nil
}
