package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saclay-assistant/backend/services/generation"
	"github.com/saclay-assistant/backend/services/prompt"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api-inference.huggingface.co"

// Config holds the Hugging Face generation client configuration.
type Config struct {
	// Token is the Hugging Face API token used as a bearer credential.
	Token string

	// BaseURL of the inference API (optional override).
	BaseURL string

	// Model is the generation model identifier.
	Model string

	// Timeout for requests.
	Timeout time.Duration
}

// Client implements generation.Backend against the Hugging Face inference
// API. One model identifier serves all three tasks; which tasks the provider
// accepts for it is discovered at call time by the orchestrator's fallback.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new generation client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

var _ generation.Backend = (*Client)(nil)

// chatRequest is the OpenAI-compatible chat completion request body.
type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []prompt.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	TopP        float64          `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatCompletion calls the OpenAI-compatible chat endpoint.
func (c *Client) ChatCompletion(ctx context.Context, messages []prompt.Message, params generation.Params) (string, error) {
	const task = "chat_completion"

	body := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   params.MaxNewTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
	}

	url := fmt.Sprintf("%s/models/%s/v1/chat/completions", c.config.BaseURL, c.config.Model)
	respBody, err := c.post(ctx, task, url, body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", generation.NewProviderError(task, "malformed chat response", 0, err)
	}
	if len(parsed.Choices) == 0 {
		return "", generation.NewProviderError(task, "chat response contained no choices", 0, nil)
	}
	return parsed.Choices[0].Message.Content, nil
}

// conversationalRequest is the legacy conversational task body. Prior history
// is always empty: every question is answered statelessly.
type conversationalRequest struct {
	Inputs struct {
		PastUserInputs     []string `json:"past_user_inputs"`
		GeneratedResponses []string `json:"generated_responses"`
		Text               string   `json:"text"`
	} `json:"inputs"`
	Parameters taskParameters `json:"parameters"`
}

type conversationalResponse struct {
	GeneratedText string `json:"generated_text"`
	Conversation  struct {
		GeneratedResponses []string `json:"generated_responses"`
	} `json:"conversation"`
}

// Conversational calls the conversational task with an empty history.
func (c *Client) Conversational(ctx context.Context, text string, params generation.Params) (string, error) {
	const task = "conversational"

	var body conversationalRequest
	body.Inputs.PastUserInputs = []string{}
	body.Inputs.GeneratedResponses = []string{}
	body.Inputs.Text = text
	body.Parameters = newTaskParameters(params)

	url := fmt.Sprintf("%s/models/%s", c.config.BaseURL, c.config.Model)
	respBody, err := c.post(ctx, task, url, body)
	if err != nil {
		return "", err
	}

	var parsed conversationalResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", generation.NewProviderError(task, "malformed conversational response", 0, err)
	}
	return extractConversational(parsed), nil
}

// extractConversational picks the reply out of a conversational response:
// the top-level generated_text when present, otherwise the last entry of the
// conversation history, otherwise empty.
func extractConversational(resp conversationalResponse) string {
	if resp.GeneratedText != "" {
		return resp.GeneratedText
	}
	if n := len(resp.Conversation.GeneratedResponses); n > 0 {
		return resp.Conversation.GeneratedResponses[n-1]
	}
	return ""
}

// taskParameters carries the sampling knobs for the raw model endpoints.
type taskParameters struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	DoSample          bool    `json:"do_sample"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

func newTaskParameters(params generation.Params) taskParameters {
	return taskParameters{
		MaxNewTokens:      params.MaxNewTokens,
		Temperature:       params.Temperature,
		DoSample:          true,
		RepetitionPenalty: params.RepetitionPenalty,
	}
}

type textGenerationRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters taskParameters `json:"parameters"`
}

type textGenerationItem struct {
	GeneratedText string `json:"generated_text"`
}

// TextGeneration calls the plain text-generation task with the flat prompt.
func (c *Client) TextGeneration(ctx context.Context, promptText string, params generation.Params) (string, error) {
	const task = "text_generation"

	body := textGenerationRequest{
		Inputs:     promptText,
		Parameters: newTaskParameters(params),
	}

	url := fmt.Sprintf("%s/models/%s", c.config.BaseURL, c.config.Model)
	respBody, err := c.post(ctx, task, url, body)
	if err != nil {
		return "", err
	}

	// The task answers with either a one-item array or a bare object.
	var items []textGenerationItem
	if err := json.Unmarshal(respBody, &items); err == nil {
		if len(items) == 0 {
			return "", generation.NewProviderError(task, "text generation response was empty", 0, nil)
		}
		return items[0].GeneratedText, nil
	}

	var single textGenerationItem
	if err := json.Unmarshal(respBody, &single); err != nil {
		return "", generation.NewProviderError(task, "malformed text generation response", 0, err)
	}
	return single.GeneratedText, nil
}

// post sends a JSON request and returns the raw body of a 200 response.
// Non-200 statuses become ProviderErrors carrying the provider's message so
// the orchestrator can classify them.
func (c *Client) post(ctx context.Context, task, url string, body interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, generation.NewProviderError(task, "failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, generation.NewProviderError(task, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, generation.NewProviderError(task, "request failed", 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, generation.NewProviderError(task, "failed to read response", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := extractErrorMessage(respBody)
		c.logger.Debug("generation provider rejected request",
			zap.String("task", task),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return nil, generation.NewProviderError(task, msg, resp.StatusCode, nil)
	}

	return respBody, nil
}

// extractErrorMessage pulls a human-readable message out of a provider error
// body. The API uses both {"error": "..."} and {"error": {"message": "..."}};
// anything else is reported truncated as-is.
func extractErrorMessage(body []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	return truncate(string(body), 200)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
