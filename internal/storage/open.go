package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Backend names accepted by New.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Options selects and configures a backend.
type Options struct {
	Backend  string
	Path     string // directory for file, database path for sqlite, key prefix for s3
	Region   string
	Bucket   string
	Compress bool
	DB       *gorm.DB // required by postgres
}

// New builds the store described by opts, wrapped in a CompressedStore
// when Compress is set.
func New(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		s = NewMemoryStore()
	case BackendFile, "dir":
		if opts.Path == "" {
			return nil, fmt.Errorf("file storage needs a path")
		}
		s, err = NewFileStore(opts.Path)
	case BackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite storage needs a path")
		}
		s, err = OpenSQLite(ctx, sqlitePath(opts.Path))
	case BackendPostgres:
		if opts.DB == nil {
			return nil, fmt.Errorf("postgres storage needs a database connection")
		}
		s, err = NewGormStore(opts.DB)
	case BackendS3:
		if opts.Bucket == "" {
			return nil, fmt.Errorf("s3 storage needs a bucket")
		}
		s, err = NewS3Store(opts.Region, opts.Bucket, opts.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	if opts.Compress {
		s = NewCompressedStore(s)
	}
	return s, nil
}

// Open parses a CLI store spec: "memory", "dir:<path>", "sqlite:<path>" or
// "s3://<bucket>/<prefix>".
func Open(ctx context.Context, spec string) (Store, error) {
	switch {
	case spec == "" || spec == BackendMemory:
		return New(ctx, Options{Backend: BackendMemory})
	case strings.HasPrefix(spec, "dir:"):
		return New(ctx, Options{Backend: BackendFile, Path: strings.TrimPrefix(spec, "dir:")})
	case strings.HasPrefix(spec, "sqlite:"):
		return New(ctx, Options{Backend: BackendSQLite, Path: strings.TrimPrefix(spec, "sqlite:")})
	case strings.HasPrefix(spec, "s3://"):
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(spec, "s3://"), "/")
		return New(ctx, Options{Backend: BackendS3, Bucket: bucket, Path: prefix})
	}
	return nil, fmt.Errorf("unrecognised store %q (want memory, dir:<path>, sqlite:<path> or s3://<bucket>/<prefix>)", spec)
}

// Close releases stores that hold resources.
func Close(s Store) error {
	switch v := s.(type) {
	case *SQLiteStore:
		return v.Close()
	case *CompressedStore:
		return Close(v.inner)
	}
	return nil
}
