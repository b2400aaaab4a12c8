package factory

import (
	"fmt"
	"time"

	"loan-insights-be/pkg/llm"
	"loan-insights-be/pkg/llm/gemini"
	"loan-insights-be/pkg/llm/ollama"
	"loan-insights-be/pkg/llm/openai"
)

type ProviderConfig struct {
	Provider      string // "gemini", "ollama", "openai"
	Model         string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OllamaBaseURL string
	Timeout       time.Duration // per-request HTTP timeout
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewGeminiProvider(cfg.GeminiAPIKey, cfg.Model, cfg.Timeout), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return openai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
