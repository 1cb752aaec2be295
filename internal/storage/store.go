// Package storage persists conversion inputs, models and results behind a
// small key/value Store with several backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("storage: not found")

// ErrInvalidKey is returned for empty keys or keys that escape their prefix.
var ErrInvalidKey = errors.New("storage: invalid key")

// Store is a flat key/value store. Keys are slash-separated paths such as
// "conversions/<id>.json".
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
