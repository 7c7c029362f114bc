package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Document is a source PDF read during ingestion.
type Document struct {
	FileName  string `json:"file_name"`
	FilePath  string `json:"file_path"`
	PageCount int    `json:"page_count"`
}

// Chunk is a piece of document text together with its embedding.
type Chunk struct {
	ID         string    `json:"id" bson:"_id"`
	Text       string    `json:"text" bson:"text"`
	Embedding  []float32 `json:"-" bson:"embedding"`
	FileName   string    `json:"file_name" bson:"file_name"`
	FilePath   string    `json:"file_path" bson:"file_path"`
	PageCount  int       `json:"page_count" bson:"page_count"`
	ChunkIndex int       `json:"chunk_index" bson:"chunk_index"`
}

// ChunkID derives a stable id so re-ingesting the same file yields the same ids.
func ChunkID(fileName string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", fileName, index))).String()
}

func NewChunk(doc Document, index int, text string) Chunk {
	return Chunk{
		ID:         ChunkID(doc.FileName, index),
		Text:       text,
		FileName:   doc.FileName,
		FilePath:   doc.FilePath,
		PageCount:  doc.PageCount,
		ChunkIndex: index,
	}
}

// EncodeEmbedding stores the embedding as a JSON array of float32.
func EncodeEmbedding(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("encode embedding failed: %w", err)
	}
	return string(b), nil
}

func DecodeEmbedding(raw string) ([]float32, error) {
	if raw == "" {
		return nil, fmt.Errorf("decode embedding failed: empty value")
	}
	var v []float32
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode embedding failed: %w", err)
	}
	return v, nil
}
