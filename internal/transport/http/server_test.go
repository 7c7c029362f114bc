package http

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limglenaldin/ai-insurance-agent/internal/app"
	"github.com/limglenaldin/ai-insurance-agent/internal/bootstrap"
	"github.com/limglenaldin/ai-insurance-agent/internal/config"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
	"github.com/limglenaldin/ai-insurance-agent/internal/vectorstore"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "mobil") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = s.Embed(ctx, t)
	}
	return out, nil
}

func (stubEmbedder) ModelName() string { return "stub-embedding" }
func (stubEmbedder) Dimensions() int   { return 2 }
func (stubEmbedder) Close() error      { return nil }

func testConfig() *config.Config {
	return &config.Config{
		App:   config.AppConfig{GinMode: gin.TestMode},
		Store: config.StoreConfig{Kind: config.StoreLocal},
		Search: config.SearchConfig{
			DocsBaseURL:         "http://localhost:3000/docs",
			OverfetchMultiplier: 3,
			DefaultTopK:         5,
			MaxTopK:             50,
			ContentMaxChars:     1000,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newLoadedApp(t *testing.T) *bootstrap.App {
	t.Helper()
	ctx := context.Background()
	store, err := vectorstore.OpenLocal(ctx, t.TempDir(), vectorstore.ModeIngest)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	car := model.NewChunk(model.Document{FileName: "RIPLAY-Autocillin.pdf"}, 0, "Manfaat tambahan mobil banjir.")
	car.Embedding = []float32{1, 0}
	moto := model.NewChunk(model.Document{FileName: "Brosur-Motopro.pdf"}, 0, "Klaim motor cepat.")
	moto.Embedding = []float32{0.9, 0.1}
	require.NoError(t, store.Upsert(ctx, []model.Chunk{car, moto}))

	cfg := testConfig()
	embedder := stubEmbedder{}
	return &bootstrap.App{
		Config:    cfg,
		Embedder:  embedder,
		Store:     store,
		Search:    app.NewSearchService(embedder, store, cfg.Search),
		StartedAt: time.Now(),
	}
}

func newUnloadedApp() *bootstrap.App {
	cfg := testConfig()
	embedder := stubEmbedder{}
	return &bootstrap.App{
		Config:    cfg,
		Embedder:  embedder,
		Search:    app.NewSearchService(embedder, nil, cfg.Search),
		StartedAt: time.Now(),
	}
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearchEndpoint(t *testing.T) {
	router := NewRouter(newLoadedApp(t))

	w := do(router, nethttp.MethodPost, "/search",
		`{"query":"banjir","profile":{"vehicleType":"car","city":"jakarta","floodRisk":true},"top_k":3}`)
	require.Equal(t, nethttp.StatusOK, w.Code, w.Body.String())

	var out app.SearchOutput
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 2, out.TotalResults)
	require.Len(t, out.Chunks, 1)
	assert.Equal(t, "RIPLAY Autocillin", out.Chunks[0].DocTitle)
	assert.Equal(t, "Manfaat Tambahan", out.Chunks[0].Section)
	assert.Equal(t, "http://localhost:3000/docs/RIPLAY-Autocillin.pdf", out.Chunks[0].Source)
	assert.InDelta(t, 1.0, out.Chunks[0].Score, 1e-6)
}

func TestSearchEndpoint_NullProfileUsesDefaultTopK(t *testing.T) {
	router := NewRouter(newLoadedApp(t))

	w := do(router, nethttp.MethodPost, "/search", `{"query":"klaim","profile":null}`)
	require.Equal(t, nethttp.StatusOK, w.Code)

	var out app.SearchOutput
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out.Chunks, 2)
}

func TestSearchEndpoint_Unprocessable(t *testing.T) {
	router := NewRouter(newLoadedApp(t))

	tests := []struct {
		name string
		body string
	}{
		{name: "missing query", body: `{"top_k":3}`},
		{name: "blank query", body: `{"query":"   "}`},
		{name: "malformed json", body: `{"query":`},
		{name: "top_k zero", body: `{"query":"premi","top_k":0}`},
		{name: "top_k above max", body: `{"query":"premi","top_k":51}`},
		{name: "top_k wrong type", body: `{"query":"premi","top_k":"five"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, nethttp.MethodPost, "/search", tt.body)
			assert.Equal(t, nethttp.StatusUnprocessableEntity, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestSearchEndpoint_IndexNotLoaded(t *testing.T) {
	router := NewRouter(newUnloadedApp())

	w := do(router, nethttp.MethodPost, "/search", `{"query":"premi"}`)
	assert.Equal(t, nethttp.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Search index not loaded"}`, w.Body.String())
}

func TestRoot(t *testing.T) {
	router := NewRouter(newUnloadedApp())

	w := do(router, nethttp.MethodGet, "/", "")
	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Insurance Document Search API","status":"healthy","store":"local"}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		w := do(NewRouter(newLoadedApp(t)), nethttp.MethodGet, "/health", "")
		assert.Equal(t, nethttp.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, true, body["index_loaded"])
		assert.Equal(t, true, body["store_reachable"])
		assert.Equal(t, "stub-embedding", body["embedding_model"])
	})

	t.Run("not loaded", func(t *testing.T) {
		w := do(NewRouter(newUnloadedApp()), nethttp.MethodGet, "/health", "")
		assert.Equal(t, nethttp.StatusServiceUnavailable, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body["status"])
		assert.Equal(t, false, body["index_loaded"])
	})
}

func TestDocumentsRouteRequiresCatalog(t *testing.T) {
	w := do(NewRouter(newUnloadedApp()), nethttp.MethodGet, "/documents", "")
	assert.Equal(t, nethttp.StatusNotFound, w.Code)
}

func TestSearchEndpoint_CORS(t *testing.T) {
	router := NewRouter(newLoadedApp(t))

	req := httptest.NewRequest(nethttp.MethodPost, "/search", strings.NewReader(`{"query":"premi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
