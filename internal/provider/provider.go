package provider

import (
	"context"
	"fmt"

	"github.com/gipl/gipl-assistant/internal"
	"github.com/gipl/gipl-assistant/internal/config"
)

// ChatProvider is the completion service: it answers an ordered list of
// role/content messages with the text of its first choice.
type ChatProvider interface {
	Model() string
	Complete(ctx context.Context, messages []internal.Message) (string, error)
}

// New builds the provider named by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (ChatProvider, error) {
	switch cfg.Provider {
	case "groq":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
		return NewOpenAIProvider(cfg.APIKey, baseURL, cfg.Model)
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "mock":
		return MockProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Fallback provider (mock) that answers without an external API.
type MockProvider struct{}

func (m MockProvider) Model() string { return "mock-gipl-assistant" }

func (m MockProvider) Complete(ctx context.Context, messages []internal.Message) (string, error) {
	// simple echo for offline development
	var last string
	for _, msg := range messages {
		if msg.Role == internal.RoleUser {
			last = msg.Content
		}
	}
	return "Understood. (mock) You asked: \"" + last + "\"", nil
}
