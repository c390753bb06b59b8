package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"justdraft/internal/config"
)

// CreateModel creates a model.ToolCallingChatModel from a provider config.
func CreateModel(ctx context.Context, cfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	switch strings.ToLower(cfg.Driver) {
	case "gemini":
		key, err := ResolveAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve credential: %w", err)
		}
		return NewGemini(ctx, cfg, key)
	case "openai":
		key, err := ResolveAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve credential: %w", err)
		}
		return NewOpenAI(ctx, cfg, key)
	case "claude":
		key, err := ResolveAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve credential: %w", err)
		}
		return NewClaude(ctx, cfg, key)
	case "ollama":
		return NewOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}
