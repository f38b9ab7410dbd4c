package embedding

import (
	"context"
	"fmt"
	"time"

	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding/gemini"
	"docrag/internal/embedding/openai"
)

// New builds the provider client selected by cfg.Type. The returned client
// performs a single call per Embed; wrap it with NewRetrying for backoff.
func New(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini embedder config missing")
		}
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKeyEnv: cfg.Gemini.APIKeyEnv,
			Model:     cfg.Gemini.Model,
			TaskType:  cfg.Gemini.TaskType,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
