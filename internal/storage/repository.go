package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/Conceptual-Machines/chordsheet-api/internal/song"
)

// SchemaVersion is written into every envelope. Loading a newer version
// fails with ErrSchemaVersion.
const SchemaVersion = 1

var ErrSchemaVersion = errors.New("storage: unsupported schema version")

// Envelope kinds.
const (
	KindConversion = "conversion"
	KindModel      = "model"
	KindInput      = "input"
	KindMetadata   = "metadata"
)

const (
	conversionsPrefix = "conversions/"
	modelsPrefix      = "models/"
	inputsPrefix      = "inputs/"
	metadataPrefix    = "metadata/"
	jsonSuffix        = ".json"
)

// Envelope wraps every stored JSON document.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Kind          string          `json:"kind"`
	SavedAt       time.Time       `json:"saved_at"`
	Data          json.RawMessage `json:"data"`
}

type storedInput struct {
	Text  string `json:"text"`
	Bytes int    `json:"bytes"`
}

// Repository stores conversion artifacts as enveloped JSON in a Store.
type Repository struct {
	store Store
	now   func() time.Time
}

func NewRepository(s Store) *Repository {
	return &Repository{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Store returns the underlying store.
func (r *Repository) Store() Store { return r.store }

func (r *Repository) put(ctx context.Context, key, kind string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	env, err := json.Marshal(Envelope{SchemaVersion: SchemaVersion, Kind: kind, SavedAt: r.now(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	return r.store.Write(ctx, key, env)
}

func (r *Repository) get(ctx context.Context, key, kind string, out interface{}) (Envelope, error) {
	raw, err := r.store.Read(ctx, key)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope %s: %w", key, err)
	}
	if env.SchemaVersion < 1 || env.SchemaVersion > SchemaVersion {
		return Envelope{}, fmt.Errorf("%w: %d in %s", ErrSchemaVersion, env.SchemaVersion, key)
	}
	if env.Kind != kind {
		return Envelope{}, fmt.Errorf("%s holds a %s, not a %s", key, env.Kind, kind)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return Envelope{}, fmt.Errorf("failed to decode %s: %w", key, err)
		}
	}
	return env, nil
}

func idKey(prefix, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("%w: id %q", ErrInvalidKey, id)
	}
	return prefix + id + jsonSuffix, nil
}

// SaveConversion stores a conversion result under its request id.
func (r *Repository) SaveConversion(ctx context.Context, id string, result interface{}) error {
	key, err := idKey(conversionsPrefix, id)
	if err != nil {
		return err
	}
	return r.put(ctx, key, KindConversion, result)
}

// LoadConversion decodes the stored result into out.
func (r *Repository) LoadConversion(ctx context.Context, id string, out interface{}) error {
	key, err := idKey(conversionsPrefix, id)
	if err != nil {
		return err
	}
	_, err = r.get(ctx, key, KindConversion, out)
	return err
}

// ListConversions returns stored conversion ids in lexical order.
func (r *Repository) ListConversions(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, conversionsPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, jsonSuffix) {
			ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(k, conversionsPrefix), jsonSuffix))
		}
	}
	return ids, nil
}

// SaveModel stores a canonical model under its metadata id.
func (r *Repository) SaveModel(ctx context.Context, m *song.Model) error {
	if m == nil {
		return errors.New("no model to save")
	}
	key, err := idKey(modelsPrefix, m.Metadata.ID)
	if err != nil {
		return err
	}
	return r.put(ctx, key, KindModel, m)
}

func (r *Repository) LoadModel(ctx context.Context, id string) (*song.Model, error) {
	key, err := idKey(modelsPrefix, id)
	if err != nil {
		return nil, err
	}
	var m song.Model
	if _, err := r.get(ctx, key, KindModel, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// HashInput returns the BLAKE3 hex digest that keys a stored input.
func HashInput(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SaveInput stores text content-addressed and returns its hash. Storing
// the same text twice writes once.
func (r *Repository) SaveInput(ctx context.Context, text string) (string, error) {
	hash := HashInput(text)
	key := inputsPrefix + hash + jsonSuffix
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if ok {
		return hash, nil
	}
	return hash, r.put(ctx, key, KindInput, storedInput{Text: text, Bytes: len(text)})
}

func (r *Repository) LoadInput(ctx context.Context, hash string) (string, error) {
	key, err := idKey(inputsPrefix, hash)
	if err != nil {
		return "", err
	}
	var in storedInput
	if _, err := r.get(ctx, key, KindInput, &in); err != nil {
		return "", err
	}
	return in.Text, nil
}

// SaveMetadata stores song metadata under id.
func (r *Repository) SaveMetadata(ctx context.Context, id string, meta song.Metadata) error {
	key, err := idKey(metadataPrefix, id)
	if err != nil {
		return err
	}
	return r.put(ctx, key, KindMetadata, meta)
}

func (r *Repository) LoadMetadata(ctx context.Context, id string) (song.Metadata, error) {
	var meta song.Metadata
	key, err := idKey(metadataPrefix, id)
	if err != nil {
		return meta, err
	}
	_, err = r.get(ctx, key, KindMetadata, &meta)
	return meta, err
}
