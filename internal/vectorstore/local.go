package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

const localIndexFile = "index.db"

// LocalStore keeps chunks in a SQLite file and serves similarity queries from
// an in-memory copy.
type LocalStore struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	chunks []model.Chunk
	norms  []float64
	byID   map[string]int
}

func OpenLocal(ctx context.Context, dir string, mode Mode) (*LocalStore, error) {
	path := filepath.Join(dir, localIndexFile)
	if mode == ModeServe {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w at %s", ErrIndexNotFound, dir)
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir failed: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open local index failed: %w", err)
	}
	s := &LocalStore{db: db, path: path, byID: make(map[string]int)}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chunks (
			id          TEXT PRIMARY KEY,
			file_name   TEXT NOT NULL,
			file_path   TEXT NOT NULL,
			page_count  INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			text        TEXT NOT NULL,
			embedding   TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chunks table failed: %w", err)
	}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, file_path, page_count, chunk_index, text, embedding
		FROM chunks ORDER BY file_name, chunk_index`)
	if err != nil {
		return fmt.Errorf("load chunks failed: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	for rows.Next() {
		var (
			c   model.Chunk
			raw string
		)
		if err := rows.Scan(&c.ID, &c.FileName, &c.FilePath, &c.PageCount, &c.ChunkIndex, &c.Text, &raw); err != nil {
			return fmt.Errorf("scan chunk failed: %w", err)
		}
		vec, err := model.DecodeEmbedding(raw)
		if err != nil {
			return fmt.Errorf("load chunk %s failed: %w", c.ID, err)
		}
		c.Embedding = vec
		s.put(c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate chunks failed: %w", err)
	}
	return nil
}

func (s *LocalStore) Upsert(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert failed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, file_name, file_path, page_count, chunk_index, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			file_path = excluded.file_path,
			page_count = excluded.page_count,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare upsert failed: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		raw, err := model.EncodeEmbedding(c.Embedding)
		if err != nil {
			return fmt.Errorf("upsert chunk %s failed: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.FileName, c.FilePath, c.PageCount, c.ChunkIndex, c.Text, raw); err != nil {
			return fmt.Errorf("upsert chunk %s failed: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert failed: %w", err)
	}

	s.mu.Lock()
	for _, c := range chunks {
		s.put(c)
	}
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) Retrieve(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	hits := make([]Hit, len(s.chunks))
	for i, c := range s.chunks {
		hits[i] = Hit{Chunk: c, Score: cosine(vec, c.Embedding, s.norms[i])}
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *LocalStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("reset local index failed: %w", err)
	}
	s.mu.Lock()
	s.reset()
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("%w at %s", ErrIndexNotFound, filepath.Dir(s.path))
	}
	return s.db.PingContext(ctx)
}

// Len reports how many chunks are loaded.
func (s *LocalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *LocalStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// reset and put require s.mu to be held.
func (s *LocalStore) reset() {
	s.chunks = nil
	s.norms = nil
	s.byID = make(map[string]int)
}

func (s *LocalStore) put(c model.Chunk) {
	if i, ok := s.byID[c.ID]; ok {
		s.chunks[i] = c
		s.norms[i] = norm(c.Embedding)
		return
	}
	s.byID[c.ID] = len(s.chunks)
	s.chunks = append(s.chunks, c)
	s.norms = append(s.norms, norm(c.Embedding))
}
