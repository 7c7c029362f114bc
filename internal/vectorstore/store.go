// Package vectorstore persists embedded chunks and answers nearest-neighbour queries.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/limglenaldin/ai-insurance-agent/internal/config"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

var ErrIndexNotFound = errors.New("vector database not found")

// Hit is a retrieved chunk with its similarity score, higher is better.
type Hit struct {
	Chunk model.Chunk
	Score float64
}

type Store interface {
	Upsert(ctx context.Context, chunks []model.Chunk) error
	// Retrieve returns up to k hits in descending score order.
	Retrieve(ctx context.Context, vec []float32, k int) ([]Hit, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

type Mode int

const (
	// ModeServe opens an existing index for querying.
	ModeServe Mode = iota
	// ModeIngest opens or creates an index for writing.
	ModeIngest
)

// Open builds the store selected by cfg.Store.Kind. dims is the embedding
// width, used where the backend needs it to create its schema.
func Open(ctx context.Context, cfg *config.Config, mode Mode, dims int) (Store, error) {
	switch cfg.Store.Kind {
	case config.StoreLocal:
		return OpenLocal(ctx, cfg.Store.PersistDir, mode)
	case config.StoreMongoDB:
		return OpenMongo(ctx, cfg.MongoDB)
	case config.StorePGVector:
		return OpenPGVector(ctx, cfg.Postgres, mode, dims)
	default:
		return nil, fmt.Errorf("%w: unknown store kind %q", config.ErrInvalidConfig, cfg.Store.Kind)
	}
}

func cosine(a []float32, b []float32, normB float64) float64 {
	if len(a) != len(b) || len(a) == 0 || normB == 0 {
		return 0
	}
	var dot, normA float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
	}
	if normA == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
