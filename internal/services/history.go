package services

import (
	"errors"
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/engine"
	"github.com/Conceptual-Machines/chordsheet-api/internal/models"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ErrNoDatabase is returned by a HistoryService built without a database.
var ErrNoDatabase = errors.New("conversion history needs a database")

type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Enabled reports whether history is backed by a database.
func (s *HistoryService) Enabled() bool {
	return s != nil && s.db != nil
}

// NewConversionLog maps a conversion result to a history row.
func NewConversionLog(userID uint, res engine.Result) *models.ConversionLog {
	meta := res.Metadata
	return &models.ConversionLog{
		CreatedAt:    meta.StartedAt,
		RequestID:    meta.RequestID,
		UserID:       userID,
		SourceFormat: string(meta.SourceFormat),
		TargetFormat: string(meta.TargetFormat),
		Detected:     meta.Detected,
		Confidence:   meta.Confidence,
		FromKey:      meta.FromKey,
		ToKey:        meta.ToKey,
		Sections:     meta.Stats.Sections,
		Lines:        meta.Stats.Lines,
		Chords:       meta.Stats.Chords,
		ErrorCount:   len(res.Errors),
		WarningCount: len(res.Warnings),
		DurationMS:   meta.DurationMS,
		Success:      res.Success,
		Recovered:    meta.Recovered,
		FailedStage:  meta.FailedStage,
		InputHash:    meta.InputHash,
	}
}

// Record stores one conversion for userID.
func (s *HistoryService) Record(userID uint, res engine.Result) (*models.ConversionLog, error) {
	if !s.Enabled() {
		return nil, ErrNoDatabase
	}
	row := NewConversionLog(userID, res)
	if err := s.db.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// List returns a user's most recent conversions, newest first.
func (s *HistoryService) List(userID uint, limit, offset int) ([]models.ConversionLog, error) {
	if !s.Enabled() {
		return nil, ErrNoDatabase
	}
	var rows []models.ConversionLog
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(ClampLimit(limit)).
		Offset(max(offset, 0)).
		Find(&rows).Error
	return rows, err
}

// Get looks up one conversion by request id, scoped to userID.
func (s *HistoryService) Get(userID uint, requestID string) (*models.ConversionLog, error) {
	if !s.Enabled() {
		return nil, ErrNoDatabase
	}
	var row models.ConversionLog
	if err := s.db.Where("user_id = ? AND request_id = ?", userID, requestID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Stats aggregates a user's conversions between from and to. Zero times
// leave that side open.
func (s *HistoryService) Stats(userID uint, from, to time.Time) (*HistoryStats, error) {
	if !s.Enabled() {
		return nil, ErrNoDatabase
	}
	var stats HistoryStats

	query := s.db.Model(&models.ConversionLog{}).Where("user_id = ?", userID)
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at <= ?", to)
	}

	if err := query.Select(
		"COUNT(*) as total_conversions",
		"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) as successful",
		"COALESCE(SUM(chords), 0) as total_chords",
		"COALESCE(SUM(error_count), 0) as total_line_errors",
		"COALESCE(AVG(duration_ms), 0) as avg_duration_ms",
	).Scan(&stats).Error; err != nil {
		return nil, err
	}
	stats.Failed = stats.TotalConversions - stats.Successful
	return &stats, nil
}

// ClampLimit applies the default and upper bound for page sizes.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}

type HistoryStats struct {
	TotalConversions int64   `json:"total_conversions"`
	Successful       int64   `json:"successful"`
	Failed           int64   `json:"failed"`
	TotalChords      int64   `json:"total_chords"`
	TotalLineErrors  int64   `json:"total_line_errors"`
	AvgDurationMS    float64 `json:"avg_duration_ms"`
}
