package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/limglenaldin/ai-insurance-agent/internal/config"
)

var ErrEmptyInput = errors.New("embedding input is empty")

// Embedder turns text into dense vectors. Implementations are safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	// Dimensions is the vector width, 0 until known.
	Dimensions() int
	Close() error
}

// NewEmbedder builds the provider selected by cfg.Provider.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		e = NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions, time.Duration(cfg.TimeoutSeconds)*time.Second)
	case config.ProviderGemini:
		e, err = NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model)
	case config.ProviderONNX:
		e, err = NewONNXEmbedder(cfg.Model, cfg.ONNX)
	default:
		err = fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond > 0 {
		e = WithRateLimit(e, cfg.RequestsPerSecond)
	}
	return e, nil
}

type rateLimited struct {
	Embedder
	limiter *rate.Limiter
}

// WithRateLimit paces calls to e at rps requests per second.
func WithRateLimit(e Embedder, rps float64) Embedder {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{Embedder: e, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for embedding rate limit failed: %w", err)
	}
	return r.Embedder.Embed(ctx, text)
}

func (r *rateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for embedding rate limit failed: %w", err)
	}
	return r.Embedder.EmbedBatch(ctx, texts)
}
