package ask

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/saclay-assistant/backend/models"
	"github.com/saclay-assistant/backend/repositories"
	"github.com/saclay-assistant/backend/services"
	"github.com/saclay-assistant/backend/services/prompt"
	"go.uber.org/zap"
)

// Embedder turns question text into a unit-norm vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, p prompt.Bundle) (string, error)
}

// Result is the outcome of one answered question: the generated answer and
// the contexts it was grounded on, in retrieval order.
type Result struct {
	Answer   string
	Contexts []models.Context
}

// Service coordinates the answer pipeline: embed the question, retrieve the
// nearest contexts, assemble the prompt, generate. Stages run strictly in
// sequence and the first failure aborts the question.
type Service struct {
	embedder  Embedder
	chunks    repositories.ChunkRepository
	generator Generator
	logger    *zap.Logger
}

// NewService creates a new ask service
func NewService(embedder Embedder, chunks repositories.ChunkRepository, generator Generator, logger *zap.Logger) *Service {
	return &Service{
		embedder:  embedder,
		chunks:    chunks,
		generator: generator,
		logger:    logger,
	}
}

// Ask answers question using up to k retrieved contexts. A nil lang disables
// the language filter. An empty retrieval result is not an error: the prompt
// carries a placeholder and the model is instructed to refuse.
func (s *Service) Ask(ctx context.Context, question string, k int, lang *string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, services.ErrEmptyQuestion
	}
	if k < 1 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "k must be at least 1", nil).WithDetail("k", k)
	}

	questionID := uuid.New()
	logger := s.logger.With(zap.String("question_id", questionID.String()))
	logger.Info("answering question",
		zap.Int("k", k),
		zap.Stringp("lang", lang))

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		logger.Error("embedding failed", zap.Error(err))
		return nil, services.WrapExternal("embedding failed", err)
	}

	contexts, err := s.chunks.SearchSimilar(ctx, embedding, k, lang)
	if err != nil {
		logger.Error("similarity search failed", zap.Error(err))
		return nil, services.WrapInternal("similarity search failed", err)
	}
	if contexts == nil {
		contexts = make([]models.Context, 0)
	}
	logger.Debug("contexts retrieved", zap.Int("count", len(contexts)))

	bundle := prompt.Assemble(question, contexts)

	answer, err := s.generator.Generate(ctx, bundle)
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		return nil, err
	}

	logger.Info("question answered",
		zap.Int("contexts", len(contexts)),
		zap.Int("answer_len", len(answer)))

	return &Result{
		Answer:   answer,
		Contexts: contexts,
	}, nil
}
