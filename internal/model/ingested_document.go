package model

import "time"

// IngestedDocument is the catalog row describing one document of the last ingestion run.
type IngestedDocument struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FileName   string    `gorm:"size:255;not null;uniqueIndex" json:"file_name"`
	FilePath   string    `gorm:"size:1024;not null" json:"file_path"`
	PageCount  int       `gorm:"not null" json:"page_count"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	RunID      string    `gorm:"size:36;not null;index" json:"run_id"`
	IngestedAt time.Time `gorm:"not null" json:"ingested_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
