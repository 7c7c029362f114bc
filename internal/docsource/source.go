// Package docsource lists and opens the PDF documents an ingestion run reads.
package docsource

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/limglenaldin/ai-insurance-agent/internal/config"
)

// Entry is one document found in a source.
type Entry struct {
	FileName string
	// FilePath is the local path or an s3:// URI.
	FilePath string
}

type Source interface {
	// List returns the PDF documents sorted by file name.
	List(ctx context.Context) ([]Entry, error)
	Open(ctx context.Context, e Entry) (io.ReadCloser, error)
}

func New(ctx context.Context, cfg *config.Config) (Source, error) {
	switch cfg.Ingest.DocsSource {
	case config.SourceLocal:
		return NewLocal(cfg.Ingest.DocsDir), nil
	case config.SourceS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: unknown docs source %q", config.ErrInvalidConfig, cfg.Ingest.DocsSource)
	}
}

func isPDF(name string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf")
}
