package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockRepository(t *testing.T) (*ChunkRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewChunkRepository(db, zap.NewNop()), mock
}

func contextRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"title", "source_url", "content", "score"})
}

func TestSearchSimilarReturnsRankedContexts(t *testing.T) {
	repo, mock := newMockRepository(t)

	rows := contextRows().
		AddRow("Scolarité", "https://example.fr/scolarite", "Le certificat s'obtient via le portail étudiant.", 0.92).
		AddRow("Inscriptions", "https://example.fr/inscriptions", "Les inscriptions ouvrent en juillet.", 0.81)

	mock.ExpectQuery(searchSimilarQuery).
		WithArgs(sqlmock.AnyArg(), "fr", 2).
		WillReturnRows(rows)

	lang := "fr"
	contexts, err := repo.SearchSimilar(context.Background(), []float32{0.6, 0.8}, 2, &lang)
	require.NoError(t, err)
	require.Len(t, contexts, 2)

	// Rows arrive ordered by descending similarity; the projection keeps
	// that order.
	assert.Equal(t, "Scolarité", contexts[0].Title)
	assert.InDelta(t, 0.92, contexts[0].Score, 1e-9)
	assert.Equal(t, "Inscriptions", contexts[1].Title)
	assert.GreaterOrEqual(t, contexts[0].Score, contexts[1].Score)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchSimilarNilLang(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(searchSimilarQuery).
		WithArgs(sqlmock.AnyArg(), nil, 5).
		WillReturnRows(contextRows())

	contexts, err := repo.SearchSimilar(context.Background(), []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, contexts)
	assert.NotNil(t, contexts)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchSimilarFewerRowsThanK(t *testing.T) {
	repo, mock := newMockRepository(t)

	rows := contextRows().
		AddRow("Seul document", "https://example.fr/doc", "contenu", 0.5)

	mock.ExpectQuery(searchSimilarQuery).
		WithArgs(sqlmock.AnyArg(), nil, 10).
		WillReturnRows(rows)

	contexts, err := repo.SearchSimilar(context.Background(), []float32{1}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, contexts, 1)
}

func TestSearchSimilarValidation(t *testing.T) {
	repo, _ := newMockRepository(t)

	_, err := repo.SearchSimilar(context.Background(), nil, 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding")

	_, err = repo.SearchSimilar(context.Background(), []float32{1}, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "k must be at least 1")
}

func TestSearchSimilarQueryError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(searchSimilarQuery).
		WithArgs(sqlmock.AnyArg(), nil, 5).
		WillReturnError(assert.AnError)

	_, err := repo.SearchSimilar(context.Background(), []float32{1}, 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity query")
}

func TestCountChunks(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT COUNT(*) FROM chunks WHERE ($1::text IS NULL OR lang = $1)").
		WithArgs("fr").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	lang := "fr"
	count, err := repo.CountChunks(context.Background(), &lang)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}
