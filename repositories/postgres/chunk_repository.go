package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/saclay-assistant/backend/models"
	"github.com/saclay-assistant/backend/repositories"
	"go.uber.org/zap"
)

// ChunkRepository implements repositories.ChunkRepository over pgvector.
type ChunkRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewChunkRepository creates a new ChunkRepository
func NewChunkRepository(db *sql.DB, logger *zap.Logger) *ChunkRepository {
	return &ChunkRepository{
		db:     db,
		logger: logger,
	}
}

var _ repositories.ChunkRepository = (*ChunkRepository)(nil)

// searchSimilarQuery ranks chunks by cosine distance to the query vector.
// Similarity is reported as 1 - distance, so both the stored embeddings and
// the query vector must be unit-norm. The language predicate is a single
// conditional so filtered and unfiltered queries share one plan; ties keep
// the store's natural order.
const searchSimilarQuery = `
	SELECT d.title, d.source_url, c.content,
	       1 - (c.embedding <=> $1) AS score
	FROM chunks c
	JOIN documents d ON d.id = c.document_id
	WHERE ($2::text IS NULL OR c.lang = $2)
	ORDER BY c.embedding <=> $1
	LIMIT $3`

// SearchSimilar returns up to k contexts ordered by descending similarity.
func (r *ChunkRepository) SearchSimilar(ctx context.Context, embedding []float32, k int, lang *string) ([]models.Context, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding cannot be empty")
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}

	rows, err := r.db.QueryContext(ctx, searchSimilarQuery, pgvector.NewVector(embedding), lang, k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity query: %w", err)
	}
	defer rows.Close()

	contexts := make([]models.Context, 0, k)
	for rows.Next() {
		var c models.Context
		if err := rows.Scan(&c.Title, &c.SourceURL, &c.Content, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan context row: %w", err)
		}
		contexts = append(contexts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating context rows: %w", err)
	}

	r.logger.Debug("similarity search completed",
		zap.Int("k", k),
		zap.Int("results", len(contexts)))

	return contexts, nil
}

// CountChunks returns the number of stored chunks, optionally per language.
func (r *ChunkRepository) CountChunks(ctx context.Context, lang *string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE ($1::text IS NULL OR lang = $1)",
		lang,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
