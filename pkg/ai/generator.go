package ai

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (Gemini, Ollama, OpenAI-compatible) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderConfig selects and configures a TextGenerator.
type ProviderConfig struct {
	Provider string // gemini | openai | ollama
	Model    string
	APIKey   string
	BaseURL  string
}

// NewTextGenerator builds the generator named by cfg.Provider.
func NewTextGenerator(cfg ProviderConfig) (TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gemini":
		return NewGeminiGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "openai", "openai-compat":
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
