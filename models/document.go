package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document types as written by the ingestion pipeline.
const (
	DocTypePDF  = "pdf"
	DocTypeText = "txt"
)

// Document represents an ingested source document. Documents are immutable
// once written; this service only reads them.
type Document struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url"`
	DocType   string    `json:"doc_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a bounded span of document text stored with a precomputed,
// L2-normalized embedding. Chunks are immutable once stored.
type Chunk struct {
	ID         uuid.UUID       `json:"id"`
	DocumentID uuid.UUID       `json:"document_id"`
	ChunkIndex int             `json:"chunk_index"`
	Content    string          `json:"content"`
	Embedding  []float32       `json:"-"`
	Lang       string          `json:"lang"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Context is a single retrieval result: a chunk joined with its owning
// document, scored against the query vector. It exists only for the duration
// of one request and is never persisted.
type Context struct {
	Title     string  `json:"title"`
	SourceURL string  `json:"source_url"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}
