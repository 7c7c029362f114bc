package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

type fakeCatalog struct {
	rows      []model.IngestedDocument
	keptRuns  []string
	err       error
	deleteErr error
}

func (f *fakeCatalog) Upsert(ctx context.Context, doc *model.IngestedDocument) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, *doc)
	return nil
}

func (f *fakeCatalog) DeleteNotInRun(ctx context.Context, runID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.keptRuns = append(f.keptRuns, runID)
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.RunID == runID {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func marshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestCatalogWorker_Handle(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	body := marshal(t, model.DocumentIngestedEvent{
		RunID:      "run-1",
		FileName:   "RIPLAY-Autocillin.pdf",
		FilePath:   "/docs/RIPLAY-Autocillin.pdf",
		PageCount:  6,
		ChunkCount: 14,
		IngestedAt: at,
	})

	repo := &fakeCatalog{}
	w := NewCatalogWorker(nil, repo, "ingest.events")
	require.NoError(t, w.handle(context.Background(), model.EventDocumentIngested, body))

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, "RIPLAY-Autocillin.pdf", row.FileName)
	assert.Equal(t, 6, row.PageCount)
	assert.Equal(t, 14, row.ChunkCount)
	assert.Equal(t, "run-1", row.RunID)
	assert.True(t, at.Equal(row.IngestedAt))
}

func TestCatalogWorker_RunCompletedPrunesOlderRuns(t *testing.T) {
	ctx := context.Background()
	repo := &fakeCatalog{}
	w := NewCatalogWorker(nil, repo, "ingest.events")

	doc := func(run, file string) []byte {
		return marshal(t, model.DocumentIngestedEvent{RunID: run, FileName: file, FilePath: "/docs/" + file})
	}
	require.NoError(t, w.handle(ctx, model.EventDocumentIngested, doc("run-1", "Brosur-Motolite.pdf")))
	require.NoError(t, w.handle(ctx, model.EventDocumentIngested, doc("run-1", "RIPLAY-Autocillin.pdf")))
	require.NoError(t, w.handle(ctx, model.EventDocumentIngested, doc("run-2", "RIPLAY-Autocillin.pdf")))

	done := marshal(t, model.IngestRunCompletedEvent{RunID: "run-2", DocumentsIngested: 1, CompletedAt: time.Now()})
	require.NoError(t, w.handle(ctx, model.EventRunCompleted, done))

	assert.Equal(t, []string{"run-2"}, repo.keptRuns)
	require.Len(t, repo.rows, 1)
	assert.Equal(t, "RIPLAY-Autocillin.pdf", repo.rows[0].FileName)
	assert.Equal(t, "run-2", repo.rows[0].RunID)
}

func TestCatalogWorker_HandleErrors(t *testing.T) {
	tests := []struct {
		name        string
		msgType     string
		body        string
		repo        *fakeCatalog
		wantRequeue bool
	}{
		{name: "not json", msgType: model.EventDocumentIngested, body: "{", repo: &fakeCatalog{}},
		{name: "missing file name", msgType: model.EventDocumentIngested, body: `{"run_id":"r"}`, repo: &fakeCatalog{}},
		{name: "completion without run id", msgType: model.EventRunCompleted, body: `{}`, repo: &fakeCatalog{}},
		{name: "unknown type", msgType: "document.deleted", body: `{"run_id":"r"}`, repo: &fakeCatalog{}},
		{
			name:        "repository failure",
			msgType:     model.EventDocumentIngested,
			body:        `{"run_id":"r","file_name":"a.pdf"}`,
			repo:        &fakeCatalog{err: errors.New("db down")},
			wantRequeue: true,
		},
		{
			name:        "prune failure",
			msgType:     model.EventRunCompleted,
			body:        `{"run_id":"r"}`,
			repo:        &fakeCatalog{deleteErr: errors.New("db down")},
			wantRequeue: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewCatalogWorker(nil, tt.repo, "ingest.events")
			err := w.handle(context.Background(), tt.msgType, []byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.wantRequeue, shouldRequeue(err))
			assert.Empty(t, tt.repo.rows)
			assert.Empty(t, tt.repo.keptRuns)
		})
	}
}

func TestCatalogWorker_UntypedMessageIsDocumentEvent(t *testing.T) {
	repo := &fakeCatalog{}
	w := NewCatalogWorker(nil, repo, "ingest.events")
	require.NoError(t, w.handle(context.Background(), "", []byte(`{"run_id":"r","file_name":"a.pdf"}`)))
	assert.Len(t, repo.rows, 1)
}

func TestCatalogWorker_CloseWithoutStart(t *testing.T) {
	w := NewCatalogWorker(nil, &fakeCatalog{}, "ingest.events")
	w.Close()
}
