package vectorstore

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/limglenaldin/ai-insurance-agent/internal/config"
	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

// PGVectorStore keeps chunks in a Postgres table with a pgvector column and
// ranks them by cosine distance.
type PGVectorStore struct {
	pool  *pgxpool.Pool
	table string
}

func OpenPGVector(ctx context.Context, cfg config.PostgresConfig, mode Mode, dims int) (*PGVectorStore, error) {
	if mode == ModeIngest {
		// the extension has to exist before the pool registers the vector type
		if err := ensureExtension(ctx, cfg.URL); err != nil {
			log.Printf("create pgvector extension failed: %v", err)
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url failed: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres failed: %w", err)
	}

	s := &PGVectorStore{pool: pool, table: pgx.Identifier{cfg.Table}.Sanitize()}
	if mode == ModeIngest {
		if err := s.createTable(ctx, dims); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

func ensureExtension(ctx context.Context, url string) error {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	return err
}

func (s *PGVectorStore) createTable(ctx context.Context, dims int) error {
	column := "vector"
	if dims > 0 {
		column = fmt.Sprintf("vector(%d)", dims)
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          UUID PRIMARY KEY,
			file_name   TEXT NOT NULL,
			file_path   TEXT NOT NULL,
			page_count  INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			text        TEXT NOT NULL,
			embedding   %s NOT NULL
		)`, s.table, column)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create chunk table failed: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Upsert(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, file_name, file_path, page_count, chunk_index, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_path = EXCLUDED.file_path,
			page_count = EXCLUDED.page_count,
			chunk_index = EXCLUDED.chunk_index,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding`, s.table)

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(query, c.ID, c.FileName, c.FilePath, c.PageCount, c.ChunkIndex, c.Text, pgvector.NewVector(c.Embedding))
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert chunks failed: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Retrieve(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id::text, file_name, file_path, page_count, chunk_index, text,
			1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks failed: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		c := &h.Chunk
		if err := rows.Scan(&c.ID, &c.FileName, &c.FilePath, &c.PageCount, &c.ChunkIndex, &c.Text, &h.Score); err != nil {
			return nil, fmt.Errorf("scan similar chunk failed: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar chunks failed: %w", err)
	}
	return hits, nil
}

func (s *PGVectorStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE "+s.table); err != nil {
		return fmt.Errorf("reset chunk table failed: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}
