package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/limglenaldin/ai-insurance-agent/internal/ai"
	"github.com/limglenaldin/ai-insurance-agent/internal/docsource"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
	"github.com/limglenaldin/ai-insurance-agent/internal/pkg/pdfextract"
	"github.com/limglenaldin/ai-insurance-agent/internal/pkg/splitter"
	"github.com/limglenaldin/ai-insurance-agent/internal/pkg/textnorm"
	"github.com/limglenaldin/ai-insurance-agent/internal/vectorstore"
)

var errSkipDocument = errors.New("document skipped")

type Extractor func(r io.Reader) (*pdfextract.Result, error)

// Recorder is notified once per document written to the store.
type Recorder interface {
	Record(ctx context.Context, event model.DocumentIngestedEvent) error
}

type RecorderFunc func(ctx context.Context, event model.DocumentIngestedEvent) error

func (f RecorderFunc) Record(ctx context.Context, event model.DocumentIngestedEvent) error {
	return f(ctx, event)
}

type IngestService struct {
	source    docsource.Source
	store     vectorstore.Store
	embedder  ai.Embedder
	splitter  *splitter.Splitter
	batchSize int

	extract  Extractor
	recorder Recorder
}

type IngestOption func(*IngestService)

func WithExtractor(extract Extractor) IngestOption {
	return func(s *IngestService) { s.extract = extract }
}

func WithRecorder(r Recorder) IngestOption {
	return func(s *IngestService) { s.recorder = r }
}

func NewIngestService(
	source docsource.Source,
	store vectorstore.Store,
	embedder ai.Embedder,
	split *splitter.Splitter,
	batchSize int,
	opts ...IngestOption,
) *IngestService {
	if batchSize <= 0 {
		batchSize = 32
	}
	s := &IngestService{
		source:    source,
		store:     store,
		embedder:  embedder,
		splitter:  split,
		batchSize: batchSize,
		extract:   pdfextract.Extract,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SkippedDocument struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

type IngestReport struct {
	RunID             string            `json:"run_id"`
	DocumentsSeen     int               `json:"documents_seen"`
	DocumentsIngested int               `json:"documents_ingested"`
	ChunksWritten     int               `json:"chunks_written"`
	Skipped           []SkippedDocument `json:"skipped"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
}

// Run replaces the store contents with the documents currently in the source.
// Unreadable documents are skipped; embedding or store failures abort the run.
func (s *IngestService) Run(ctx context.Context) (*IngestReport, error) {
	report := &IngestReport{RunID: uuid.NewString(), StartedAt: time.Now()}

	entries, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	report.DocumentsSeen = len(entries)
	log.Printf("ingest run %s: %d documents found", report.RunID, len(entries))

	if err := s.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset store failed: %w", err)
	}

	for _, entry := range entries {
		n, err := s.ingestOne(ctx, report.RunID, entry)
		if errors.Is(err, errSkipDocument) {
			log.Printf("skip %s: %v", entry.FileName, err)
			report.Skipped = append(report.Skipped, SkippedDocument{FileName: entry.FileName, Reason: err.Error()})
			continue
		}
		if err != nil {
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("ingest %s failed: %w", entry.FileName, err)
		}
		report.DocumentsIngested++
		report.ChunksWritten += n
	}

	report.FinishedAt = time.Now()
	log.Printf("ingest run %s done: %d/%d documents, %d chunks, %d skipped",
		report.RunID, report.DocumentsIngested, report.DocumentsSeen, report.ChunksWritten, len(report.Skipped))
	return report, nil
}

func (s *IngestService) ingestOne(ctx context.Context, runID string, entry docsource.Entry) (int, error) {
	rc, err := s.source.Open(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errSkipDocument, err)
	}
	res, err := s.extract(rc)
	rc.Close()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errSkipDocument, err)
	}
	text := textnorm.Normalize(res.Text)
	if text == "" {
		return 0, fmt.Errorf("%w: no extractable text", errSkipDocument)
	}

	doc := model.Document{FileName: entry.FileName, FilePath: entry.FilePath, PageCount: res.PageCount}
	pieces := s.splitter.Split(text)
	chunks := make([]model.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = model.NewChunk(doc, i, p)
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed chunks failed: %w", err)
		}
		if len(vecs) != len(batch) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = vecs[i]
		}
		if err := s.store.Upsert(ctx, batch); err != nil {
			return 0, fmt.Errorf("store chunks failed: %w", err)
		}
	}
	log.Printf("ingested %s: %d pages, %d chunks", doc.FileName, doc.PageCount, len(chunks))

	if s.recorder != nil {
		event := model.DocumentIngestedEvent{
			RunID:      runID,
			FileName:   doc.FileName,
			FilePath:   doc.FilePath,
			PageCount:  doc.PageCount,
			ChunkCount: len(chunks),
			IngestedAt: time.Now(),
		}
		if err := s.recorder.Record(ctx, event); err != nil {
			log.Printf("record %s in catalog failed: %v", doc.FileName, err)
		}
	}
	return len(chunks), nil
}
