package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limglenaldin/ai-insurance-agent/internal/config"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
	"github.com/limglenaldin/ai-insurance-agent/internal/vectorstore"
)

type fakeQueryEmbedder struct {
	queries []string
	err     error
}

func (f *fakeQueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type fakeRetriever struct {
	hits  []vectorstore.Hit
	err   error
	gotK  int
	calls int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, vec []float32, k int) ([]vectorstore.Hit, error) {
	f.calls++
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func searchConfig() config.SearchConfig {
	return config.SearchConfig{
		DocsBaseURL:         "http://localhost:3000/docs",
		OverfetchMultiplier: 3,
		DefaultTopK:         5,
		MaxTopK:             50,
		ContentMaxChars:     1000,
	}
}

func hit(file string, idx int, score float64, text string) vectorstore.Hit {
	return vectorstore.Hit{
		Chunk: model.Chunk{ID: fmt.Sprintf("%s-%d", file, idx), FileName: file, ChunkIndex: idx, Text: text},
		Score: score,
	}
}

func TestSearch_FilteredStreamKeepsRankOrder(t *testing.T) {
	var hits []vectorstore.Hit
	for i := 0; i < 3; i++ {
		hits = append(hits, hit("Brosur-Motopro.pdf", i, 0.99-float64(i)*0.01, "motor"))
	}
	for i := 0; i < 12; i++ {
		hits = append(hits, hit("RIPLAY-Autocillin.pdf", i, 0.9-float64(i)*0.01, fmt.Sprintf("chunk %d", i)))
	}
	retriever := &fakeRetriever{hits: hits}
	embedder := &fakeQueryEmbedder{}
	svc := NewSearchService(embedder, retriever, searchConfig())

	out, err := svc.Search(context.Background(), SearchInput{
		Query:   "asuransi",
		Profile: &model.UserProfile{VehicleType: "car"},
		TopK:    5,
	})
	require.NoError(t, err)

	assert.Equal(t, 15, retriever.gotK)
	assert.Equal(t, 15, out.TotalResults)
	require.Len(t, out.Chunks, 5)
	for i, c := range out.Chunks {
		assert.Equal(t, fmt.Sprintf("chunk %d", i), c.Content)
		assert.Equal(t, "RIPLAY Autocillin", c.DocTitle)
		assert.Equal(t, "http://localhost:3000/docs/RIPLAY-Autocillin.pdf", c.Source)
		assert.InDelta(t, 0.9-float64(i)*0.01, c.Score, 1e-9)
	}
	assert.Equal(t, []string{"asuransi mobil autocillin"}, embedder.queries)
}

func TestSearch_DefaultTopKAndNoProfile(t *testing.T) {
	var hits []vectorstore.Hit
	for i := 0; i < 20; i++ {
		hits = append(hits, hit("Brosur-Motopro.pdf", i, 1, "premi"))
	}
	retriever := &fakeRetriever{hits: hits}
	svc := NewSearchService(&fakeQueryEmbedder{}, retriever, searchConfig())

	out, err := svc.Search(context.Background(), SearchInput{Query: "premi"})
	require.NoError(t, err)

	assert.Equal(t, 15, retriever.gotK)
	assert.Equal(t, 15, out.TotalResults)
	require.Len(t, out.Chunks, 5)
	assert.Equal(t, "Premi dan Tarif", out.Chunks[0].Section)
}

func TestSearch_FewerSurvivorsThanTopK(t *testing.T) {
	retriever := &fakeRetriever{hits: []vectorstore.Hit{
		hit("Brosur-Motopro.pdf", 0, 0.9, "a"),
		hit("RIPLAY-Autocillin.pdf", 0, 0.8, "b"),
	}}
	svc := NewSearchService(&fakeQueryEmbedder{}, retriever, searchConfig())

	out, err := svc.Search(context.Background(), SearchInput{
		Query:   "q",
		Profile: &model.UserProfile{VehicleType: "motorcycle"},
		TopK:    3,
	})
	require.NoError(t, err)
	require.Len(t, out.Chunks, 1)
	assert.Equal(t, "Brosur Motopro", out.Chunks[0].DocTitle)
	assert.Equal(t, 2, out.TotalResults)
}

func TestSearch_EmptyRetrieval(t *testing.T) {
	svc := NewSearchService(&fakeQueryEmbedder{}, &fakeRetriever{}, searchConfig())

	out, err := svc.Search(context.Background(), SearchInput{Query: "q", TopK: 2})
	require.NoError(t, err)
	assert.NotNil(t, out.Chunks)
	assert.Empty(t, out.Chunks)
	assert.Zero(t, out.TotalResults)
}

func TestSearch_TruncatesContentByRunes(t *testing.T) {
	long := strings.Repeat("é", 1500)
	svc := NewSearchService(&fakeQueryEmbedder{}, &fakeRetriever{hits: []vectorstore.Hit{hit("a.pdf", 0, 1, long)}}, searchConfig())

	out, err := svc.Search(context.Background(), SearchInput{Query: "q", TopK: 1})
	require.NoError(t, err)
	require.Len(t, out.Chunks, 1)
	assert.Equal(t, 1000, utf8.RuneCountInString(out.Chunks[0].Content))
	assert.True(t, utf8.ValidString(out.Chunks[0].Content))
}

func TestSearch_OverfetchMultiplierIsConfigurable(t *testing.T) {
	cfg := searchConfig()
	cfg.OverfetchMultiplier = 2
	retriever := &fakeRetriever{}
	svc := NewSearchService(&fakeQueryEmbedder{}, retriever, cfg)

	_, err := svc.Search(context.Background(), SearchInput{Query: "q", TopK: 4})
	require.NoError(t, err)
	assert.Equal(t, 8, retriever.gotK)
}

func TestSearch_Errors(t *testing.T) {
	t.Run("index not loaded", func(t *testing.T) {
		svc := NewSearchService(&fakeQueryEmbedder{}, nil, searchConfig())
		_, err := svc.Search(context.Background(), SearchInput{Query: "q"})
		assert.ErrorIs(t, err, ErrIndexNotLoaded)
	})

	t.Run("empty query", func(t *testing.T) {
		svc := NewSearchService(&fakeQueryEmbedder{}, &fakeRetriever{}, searchConfig())
		_, err := svc.Search(context.Background(), SearchInput{Query: "  "})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("top k out of range", func(t *testing.T) {
		svc := NewSearchService(&fakeQueryEmbedder{}, &fakeRetriever{}, searchConfig())
		for _, k := range []int{-1, 51} {
			_, err := svc.Search(context.Background(), SearchInput{Query: "q", TopK: k})
			assert.ErrorIs(t, err, ErrInvalidInput)
		}
	})

	t.Run("embedding failure", func(t *testing.T) {
		retriever := &fakeRetriever{}
		svc := NewSearchService(&fakeQueryEmbedder{err: errors.New("provider down")}, retriever, searchConfig())
		_, err := svc.Search(context.Background(), SearchInput{Query: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider down")
		assert.Zero(t, retriever.calls)
	})

	t.Run("retrieval failure", func(t *testing.T) {
		svc := NewSearchService(&fakeQueryEmbedder{}, &fakeRetriever{err: errors.New("store down")}, searchConfig())
		out, err := svc.Search(context.Background(), SearchInput{Query: "q"})
		require.Error(t, err)
		assert.Nil(t, out)
		assert.Contains(t, err.Error(), "store down")
	})
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "", truncateRunes("abc", 0))
	assert.Equal(t, "éé", truncateRunes("ééé", 2))
}
