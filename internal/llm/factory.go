package llm

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ppiankov/chronosight/internal/model"
)

// NewResolver creates the text provider named in the configuration
func NewResolver(config Config, httpClient *http.Client, logger *slog.Logger) (Resolver, error) {
	switch config.Provider {
	case "gemini", "":
		return NewGeminiProvider(withModel(config, defaultTextModel(config.Provider)), httpClient, logger)

	case "openai":
		return NewOpenAIProvider(withModel(config, defaultTextModel(config.Provider)), httpClient, logger)

	case "ollama":
		return NewOllamaProvider(config, httpClient, logger)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: gemini, openai, ollama)", config.Provider)
	}
}

// NewGenerator creates the image provider named in the configuration
func NewGenerator(config Config, httpClient *http.Client, logger *slog.Logger) (Generator, error) {
	switch config.Provider {
	case "gemini", "":
		return NewGeminiProvider(withModel(config, defaultImageModel(config.Provider)), httpClient, logger)

	case "openai":
		return NewOpenAIProvider(withModel(config, defaultImageModel(config.Provider)), httpClient, logger)

	case "ollama":
		return nil, fmt.Errorf("ollama cannot generate images (set llm.image_provider to gemini or openai)")

	default:
		return nil, fmt.Errorf("unknown image provider: %s (supported: gemini, openai)", config.Provider)
	}
}

func withModel(config Config, fallback string) Config {
	if config.Model == "" {
		config.Model = fallback
	}
	return config
}

func defaultTextModel(provider string) string {
	switch provider {
	case "openai":
		return model.DefaultOpenAITextModel
	case "ollama":
		return model.DefaultOllamaTextModel
	default:
		return model.DefaultGeminiTextModel
	}
}

func defaultImageModel(provider string) string {
	if provider == "openai" {
		return model.DefaultOpenAIImageModel
	}
	return model.DefaultGeminiImageModel
}
