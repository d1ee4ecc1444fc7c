package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/chronosight/internal/model"
)

// Resolver turns a location request into a validated historical context
type Resolver interface {
	Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error)
}

// Generator turns a text prompt into an image encoded as a data URI
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds the settings for one provider role (text or image)
type Config struct {
	// Provider name: "gemini", "openai", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for Gemini/OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, test servers)
	BaseURL string

	// MaxTokens limits the text response length
	MaxTokens int
}

// TextConfig extracts the resolver settings from the application config
func TextConfig(c model.LLMConfig) Config {
	return Config{
		Provider:  strings.ToLower(c.Provider),
		Model:     c.TextModel,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		MaxTokens: c.MaxTokens,
	}
}

// ImageConfig extracts the generator settings from the application config.
// BaseURL only carries over when both roles use the same provider.
func ImageConfig(c model.LLMConfig) Config {
	cfg := Config{
		Provider: strings.ToLower(c.ImageProviderName()),
		Model:    c.ImageModel,
		APIKey:   c.APIKey,
	}
	if cfg.Provider == strings.ToLower(c.Provider) {
		cfg.BaseURL = c.BaseURL
	}
	return cfg
}

// DataURI encodes an inline image payload
func DataURI(mimeType, b64 string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, b64)
}

// checkPrompt rejects blank prompts before any network call
func checkPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return &model.Error{
			Kind: model.KindEmptyPrompt,
			Op:   "generate image",
			Msg:  "Image generation prompt is missing or invalid.",
		}
	}
	return nil
}

// textFailure wraps a resolver failure. Validation failures pass through
// untouched; everything else is an upstream failure.
func textFailure(provider string, err error) error {
	if model.KindOf(err) == model.KindMalformedResponse {
		return err
	}
	return &model.Error{
		Kind: model.KindUpstream,
		Op:   "resolve location",
		Msg:  fmt.Sprintf("%s API Error (Text Generation): Failed to get historical context. %s", provider, err.Error()),
		Err:  err,
	}
}

// imageFailure wraps a generator failure, naming the model when the
// provider reports it missing
func imageFailure(provider, modelName string, err error) error {
	if model.KindOf(err) == model.KindEmptyPrompt {
		return err
	}
	if isNotFound(err) {
		return &model.Error{
			Kind: model.KindUpstream,
			Op:   "generate image",
			Msg: fmt.Sprintf("%s API Error: The model '%s' was not found. The model name may be incorrect or you may not have access.",
				provider, modelName),
			Err: err,
		}
	}
	kind := model.KindOf(err)
	if kind != model.KindNoImageData {
		kind = model.KindUpstream
	}
	return &model.Error{
		Kind: kind,
		Op:   "generate image",
		Msg:  fmt.Sprintf("%s API Error (Image Generation): %s", provider, err.Error()),
		Err:  err,
	}
}

var errNoImageData = &model.Error{
	Kind: model.KindNoImageData,
	Op:   "generate image",
	Msg:  "AI image generation failed. The model did not return any image data in the stream.",
}

// statusError is a non-2xx answer from a provider
type statusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *statusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func isNotFound(err error) bool {
	var se *statusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NOT_FOUND") || strings.Contains(msg, "not found")
}
