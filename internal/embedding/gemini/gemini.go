package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	"docrag/internal/domain"
)

const defaultModel = "text-embedding-004"

// Config configures the Gemini embeddings client.
type Config struct {
	APIKeyEnv string
	Model     string
	TaskType  string
}

// Client embeds text through the Gemini API.
type Client struct {
	model    string
	taskType string
	client   *genai.Client
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &Client{model: cfg.Model, taskType: cfg.TaskType, client: client}, nil
}

func (c *Client) Name() string { return "gemini/" + c.model }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var config *genai.EmbedContentConfig
	if c.taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: c.taskType}
	}
	resp, err := c.client.Models.EmbedContent(
		ctx,
		c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

// classify marks quota errors as rate limits. The API reports them as
// HTTP 429 with status RESOURCE_EXHAUSTED; errors that lost their type are
// matched by message.
func classify(err error) error {
	if isRateLimitAPIError(err) || isRateLimitMessage(err.Error()) {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return err
}

func isRateLimitAPIError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isRateLimitStatus(apiErr.Code, apiErr.Status)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return isRateLimitStatus(apiErrPtr.Code, apiErrPtr.Status)
	}
	return false
}

func isRateLimitStatus(code int, status string) bool {
	return code == http.StatusTooManyRequests || strings.EqualFold(status, "RESOURCE_EXHAUSTED")
}

func isRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "error 429") ||
		strings.Contains(lower, "rate limit")
}
