package ai

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini rejects batch requests above this size.
const geminiMaxBatch = 100

// GeminiEmbedder embeds single texts as retrieval queries and batches as
// retrieval documents.
type GeminiEmbedder struct {
	client *genai.Client
	query  *genai.EmbeddingModel
	doc    *genai.EmbeddingModel
	model  string
	dims   atomic.Int64
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client failed: %w", err)
	}
	query := client.EmbeddingModel(model)
	query.TaskType = genai.TaskTypeRetrievalQuery
	doc := client.EmbeddingModel(model)
	doc.TaskType = genai.TaskTypeRetrievalDocument
	return &GeminiEmbedder{client: client, query: query, doc: doc, model: model}, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	res, err := g.query.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	g.dims.Store(int64(len(res.Embedding.Values)))
	return res.Embedding.Values, nil
}

func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := start + geminiMaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch := g.doc.NewBatch()
		for i, t := range texts[start:end] {
			t = strings.TrimSpace(t)
			if t == "" {
				return nil, fmt.Errorf("batch item %d: %w", start+i, ErrEmptyInput)
			}
			batch.AddContent(genai.Text(t))
		}
		res, err := g.doc.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gemini batch embedding request failed: %w", err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(res.Embeddings), end-start)
		}
		for _, e := range res.Embeddings {
			out = append(out, e.Values)
		}
	}
	if len(out) > 0 && len(out[0]) > 0 {
		g.dims.Store(int64(len(out[0])))
	}
	return out, nil
}

func (g *GeminiEmbedder) ModelName() string { return g.model }

func (g *GeminiEmbedder) Dimensions() int { return int(g.dims.Load()) }

func (g *GeminiEmbedder) Close() error {
	return g.client.Close()
}
