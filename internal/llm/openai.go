package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/validate"
)

// OpenAIProvider implements Resolver (chat completions in JSON mode) and
// Generator (image generations) on the OpenAI API
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config, httpClient *http.Client, logger *slog.Logger) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, missingKey("openai")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     config.Model,
		maxTokens: config.MaxTokens,
		logger:    logger.With("provider", "openai", "model", config.Model),
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Resolve asks the chat model for a historical context in JSON mode
func (p *OpenAIProvider) Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error) {
	modelName := p.model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: BuildLocationPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxTokens: p.maxTokens,
	}

	p.logger.Debug("resolving location", "kind", req.Kind, "identifier", req.Identifier())

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, textFailure("OpenAI", normalizeOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, textFailure("OpenAI", fmt.Errorf("no response from OpenAI"))
	}

	return validate.Context(resp.Choices[0].Message.Content).Unwrap()
}

// Generate creates one image and returns it as a PNG data URI
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}

	modelName := p.model
	if modelName == "" {
		modelName = openai.CreateImageModelDallE3
	}

	p.logger.Debug("generating image", "prompt_chars", len(prompt))

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          modelName,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", imageFailure("OpenAI", modelName, normalizeOpenAIError(err))
	}

	for _, img := range resp.Data {
		if strings.TrimSpace(img.B64JSON) != "" {
			return DataURI("image/png", img.B64JSON), nil
		}
	}
	return "", imageFailure("OpenAI", modelName, errNoImageData)
}

// normalizeOpenAIError maps client errors onto statusError so status
// checks work the same for every provider
func normalizeOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &statusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &statusError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return err
}
