package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"

	// normEpsilon keeps the division defined for a near-zero vector.
	normEpsilon = 1e-10
)

// Config holds the Hugging Face feature-extraction client configuration.
type Config struct {
	// Token is the Hugging Face API token used as a bearer credential.
	Token string

	// BaseURL of the inference API (optional override).
	BaseURL string

	// Model is the sentence-embedding model identifier.
	Model string

	// Dimension is the expected vector dimension (0 disables the check).
	Dimension int

	// Timeout for requests.
	Timeout time.Duration
}

// Client turns question text into unit-norm embedding vectors via the
// Hugging Face feature-extraction task. It performs a single attempt per
// call; provider errors propagate to the caller unmodified.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new embedding client
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

// Embed returns the L2-normalized embedding of text. The provider may answer
// with a flat vector or a single-item batch; both are accepted.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", c.config.BaseURL, c.config.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding provider returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	vec, err := decodeVector(body)
	if err != nil {
		return nil, err
	}

	if c.config.Dimension > 0 && len(vec) != c.config.Dimension {
		c.logger.Warn("unexpected embedding dimension",
			zap.Int("expected", c.config.Dimension),
			zap.Int("got", len(vec)))
	}

	return Normalize(vec), nil
}

// decodeVector accepts either a flat vector or a batch-shaped response
// holding exactly one vector, as returned by providers whose batch API is
// invoked with a single-item batch.
func decodeVector(body []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, fmt.Errorf("embedding provider returned an empty batch")
		}
		return nested[0], nil
	}

	return nil, fmt.Errorf("embedding provider returned non-numeric data: %s", truncate(string(body), 200))
}

// Normalize scales v to unit Euclidean norm. A small epsilon keeps the
// result defined for a zero vector.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + normEpsilon

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
