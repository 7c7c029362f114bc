package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert writes the catalog row for doc.FileName, replacing the previous run's row.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *model.IngestedDocument) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_path", "page_count", "chunk_count", "run_id", "ingested_at", "updated_at"}),
	}).Create(doc).Error
	if err != nil {
		return fmt.Errorf("upsert ingested document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]model.IngestedDocument, error) {
	var list []model.IngestedDocument
	if err := r.db.WithContext(ctx).Order("file_name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list ingested documents failed: %w", err)
	}
	return list, nil
}

// DeleteNotInRun removes rows left over from documents that are no longer in the corpus.
func (r *DocumentRepository) DeleteNotInRun(ctx context.Context, runID string) error {
	if err := r.db.WithContext(ctx).Where("run_id <> ?", runID).Delete(&model.IngestedDocument{}).Error; err != nil {
		return fmt.Errorf("delete stale ingested documents failed: %w", err)
	}
	return nil
}
