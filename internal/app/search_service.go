package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/limglenaldin/ai-insurance-agent/internal/config"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
	"github.com/limglenaldin/ai-insurance-agent/internal/vectorstore"
)

type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, vec []float32, k int) ([]vectorstore.Hit, error)
}

type SearchService struct {
	embedder QueryEmbedder
	store    Retriever
	cfg      config.SearchConfig
}

func NewSearchService(embedder QueryEmbedder, store Retriever, cfg config.SearchConfig) *SearchService {
	return &SearchService{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}
}

type SearchInput struct {
	Query   string
	Profile *model.UserProfile
	// TopK of 0 selects the configured default.
	TopK int
}

type ResultChunk struct {
	Content  string  `json:"content"`
	DocTitle string  `json:"doc_title"`
	Section  string  `json:"section"`
	Source   string  `json:"source"`
	Score    float64 `json:"score"`
}

type SearchOutput struct {
	Chunks []ResultChunk `json:"chunks"`
	// TotalResults counts every retrieved chunk, before vehicle filtering.
	TotalResults int `json:"total_results"`
}

func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	if s == nil || s.store == nil || s.embedder == nil {
		return nil, ErrIndexNotLoaded
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	topK := input.TopK
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK < 1 || topK > s.cfg.MaxTopK {
		return nil, fmt.Errorf("%w: top_k must be between 1 and %d", ErrInvalidInput, s.cfg.MaxTopK)
	}

	enhanced := EnhanceQuery(input.Query, input.Profile)
	log.Printf("search query=%q enhanced=%q top_k=%d", input.Query, enhanced, topK)

	vec, err := s.embedder.Embed(ctx, enhanced)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	hits, err := s.store.Retrieve(ctx, vec, topK*s.cfg.OverfetchMultiplier)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks failed: %w", err)
	}

	vehicleType := ""
	if input.Profile != nil {
		vehicleType = input.Profile.VehicleType
	}

	chunks := make([]ResultChunk, 0, topK)
	for i := 0; i < len(hits) && len(chunks) < topK; i++ {
		hit := hits[i]
		info := ExtractMetadata(s.cfg.DocsBaseURL, hit.Chunk.FileName, hit.Chunk.Text)
		if !KeepForVehicle(hit.Chunk.FileName, info.Title, vehicleType) {
			continue
		}
		chunks = append(chunks, ResultChunk{
			Content:  truncateRunes(hit.Chunk.Text, s.cfg.ContentMaxChars),
			DocTitle: info.Title,
			Section:  info.Section,
			Source:   info.Source,
			Score:    hit.Score,
		})
	}
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	log.Printf("search found %d chunks from %d retrieved", len(chunks), len(hits))
	return &SearchOutput{Chunks: chunks, TotalResults: len(hits)}, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
