package models

import "time"

// ConversionLog is one row of conversion history.
type ConversionLog struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	RequestID    string    `gorm:"uniqueIndex;size:64;not null" json:"request_id"`
	UserID       uint      `gorm:"index" json:"user_id"`
	SourceFormat string    `gorm:"size:32" json:"source_format"`
	TargetFormat string    `gorm:"size:32;not null" json:"target_format"`
	Detected     bool      `gorm:"default:false" json:"detected"`
	Confidence   float64   `json:"confidence"`
	FromKey      string    `gorm:"size:16" json:"from_key,omitempty"`
	ToKey        string    `gorm:"size:16" json:"to_key,omitempty"`
	Sections     int       `json:"sections"`
	Lines        int       `json:"lines"`
	Chords       int       `json:"chords"`
	ErrorCount   int       `json:"error_count"`
	WarningCount int       `json:"warning_count"`
	DurationMS   int64     `gorm:"not null" json:"duration_ms"`
	Success      bool      `gorm:"index" json:"success"`
	Recovered    bool      `gorm:"default:false" json:"recovered"`
	FailedStage  string    `gorm:"size:32" json:"failed_stage,omitempty"`
	InputHash    string    `gorm:"size:64" json:"input_hash,omitempty"`
}
