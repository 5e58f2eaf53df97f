package generation

import (
	"context"
	"errors"
	"strings"

	"github.com/saclay-assistant/backend/services/prompt"
)

// Params holds the sampling parameters shared by every fallback tier, kept
// constant across tiers so intent stays comparable whichever one answers.
type Params struct {
	// MaxNewTokens bounds the generated length.
	MaxNewTokens int

	// Temperature controls randomness; low for grounded answers.
	Temperature float64

	// TopP controls nucleus sampling where the task supports it.
	TopP float64

	// RepetitionPenalty discourages loops in free text completion.
	RepetitionPenalty float64
}

// DefaultParams returns the production generation parameters.
func DefaultParams() Params {
	return Params{
		MaxNewTokens:      350,
		Temperature:       0.2,
		TopP:              0.9,
		RepetitionPenalty: 1.1,
	}
}

// Backend exposes the three calling conventions a generation provider may
// support. A given deployment typically supports only a subset; the
// orchestrator probes them in order.
type Backend interface {
	// ChatCompletion performs a turn-based completion over role-tagged
	// messages.
	ChatCompletion(ctx context.Context, messages []prompt.Message, params Params) (string, error)

	// Conversational performs a single-turn conversational call with empty
	// prior history.
	Conversational(ctx context.Context, text string, params Params) (string, error)

	// TextGeneration performs a plain text completion over a flat prompt.
	TextGeneration(ctx context.Context, promptText string, params Params) (string, error)
}

// ProviderError represents an error from a generation backend
type ProviderError struct {
	// Task identifies the calling convention that failed.
	Task string

	// StatusCode is the HTTP status code (if applicable).
	StatusCode int

	// Message is the provider's error message.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Task + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Task + ": " + e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(task, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Task:       task,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// chatUnsupportedSignatures are the known provider error fragments meaning
// "this model is not mapped to the chat task".
var chatUnsupportedSignatures = []string{
	"not a chat model",
	"model_not_supported",
}

// IsChatUnsupported reports whether err is a classified "backend does not
// support turn-based calls" rejection, as opposed to an arbitrary failure.
func IsChatUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	msg := strings.ToLower(provErr.Message)
	for _, sig := range chatUnsupportedSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
