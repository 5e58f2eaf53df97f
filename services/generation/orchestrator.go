package generation

import (
	"context"
	"strings"

	"github.com/saclay-assistant/backend/services"
	"github.com/saclay-assistant/backend/services/prompt"
	"go.uber.org/zap"
)

// Orchestrator drives the tiered fallback across the backend's calling
// conventions: chat completion first, then the conversational task, then
// plain text generation. The tiers are the retry strategy; no tier is ever
// attempted twice. Unclassified tier errors fall through with a warning
// rather than aborting, trading diagnostic precision for availability.
type Orchestrator struct {
	backend Backend
	params  Params
	logger  *zap.Logger
}

// NewOrchestrator creates a new generation orchestrator
func NewOrchestrator(backend Backend, params Params, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		params:  params,
		logger:  logger,
	}
}

// Generate returns the trimmed text of the first tier that succeeds. When
// all three tiers fail, it returns an external-provider error carrying the
// last backend failure.
func (o *Orchestrator) Generate(ctx context.Context, p prompt.Bundle) (string, error) {
	// Tier 1: turn-based chat completion.
	text, err := o.backend.ChatCompletion(ctx, p.Messages, o.params)
	if err == nil {
		return strings.TrimSpace(text), nil
	}
	if IsChatUnsupported(err) {
		o.logger.Debug("model not mapped to the chat task, falling back to conversational",
			zap.Error(err))
	} else {
		// Auth and connectivity failures also land here and fall through.
		o.logger.Warn("chat completion failed, falling back to conversational",
			zap.Error(err))
	}

	// Tier 2: conversational task with empty prior history.
	text, err = o.backend.Conversational(ctx, prompt.LastUserText(p.Messages), o.params)
	if err == nil {
		return strings.TrimSpace(text), nil
	}
	o.logger.Warn("conversational call failed, falling back to text generation",
		zap.Error(err))

	// Tier 3: plain text completion over the flat prompt.
	text, err = o.backend.TextGeneration(ctx, p.Flat, o.params)
	if err == nil {
		return strings.TrimSpace(text), nil
	}

	o.logger.Error("all generation tiers exhausted", zap.Error(err))
	return "", services.WrapExternal("text generation error", err)
}
