package model

import "time"

// AMQP message types on the ingest event queue.
const (
	EventDocumentIngested = "document.ingested"
	EventRunCompleted     = "run.completed"
)

// DocumentIngestedEvent is published once per document written to the chunk store.
type DocumentIngestedEvent struct {
	RunID      string    `json:"run_id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

func (e DocumentIngestedEvent) CatalogRow() IngestedDocument {
	return IngestedDocument{
		FileName:   e.FileName,
		FilePath:   e.FilePath,
		PageCount:  e.PageCount,
		ChunkCount: e.ChunkCount,
		RunID:      e.RunID,
		IngestedAt: e.IngestedAt,
	}
}

// IngestRunCompletedEvent follows the last document event of a successful run.
// Catalog rows written by any other run are stale once it arrives.
type IngestRunCompletedEvent struct {
	RunID             string    `json:"run_id"`
	DocumentsIngested int       `json:"documents_ingested"`
	CompletedAt       time.Time `json:"completed_at"`
}
