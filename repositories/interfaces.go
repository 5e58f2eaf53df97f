package repositories

import (
	"context"

	"github.com/saclay-assistant/backend/models"
)

// ChunkRepository provides read access to the ingested chunk corpus.
// Writes happen out-of-process in the ingestion pipeline.
type ChunkRepository interface {
	// SearchSimilar runs a cosine-similarity query against the stored chunk
	// embeddings and returns up to k contexts ordered by descending score.
	// A nil lang disables the language filter; ties keep store order.
	SearchSimilar(ctx context.Context, embedding []float32, k int, lang *string) ([]models.Context, error)

	// CountChunks returns the number of stored chunks, optionally restricted
	// to one language.
	CountChunks(ctx context.Context, lang *string) (int64, error)
}
