package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blob is the row GormStore keeps per key.
type Blob struct {
	Key       string `gorm:"column:blob_key;primaryKey;size:512"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (Blob) TableName() string { return "storage_blobs" }

// GormStore keeps values in the application database, Postgres in
// production.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the blob table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate storage table: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var b Blob
	err := s.db.WithContext(ctx).Where("blob_key = ?", key).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return b.Data, nil
}

func (s *GormStore) Write(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	b := Blob{Key: key, Data: data, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&b).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *GormStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&Blob{}).Where("blob_key = ?", key).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&Blob{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(key)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.WithContext(ctx).Model(&Blob{}).
		Where("blob_key LIKE ?", likePrefix(prefix)).
		Order("blob_key").
		Pluck("blob_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return keys, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
