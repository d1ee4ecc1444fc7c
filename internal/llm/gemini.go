package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/validate"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiProvider implements Resolver and Generator on the Gemini REST API
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// Gemini API structures
type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config, httpClient *http.Client, logger *slog.Logger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, missingKey("gemini")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("gemini model must be specified")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GeminiProvider{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      config.Model,
		maxTokens:  config.MaxTokens,
		httpClient: httpClient,
		logger:     logger.With("provider", "gemini", "model", config.Model),
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Resolve asks the text model for a historical context in JSON mode
func (p *GeminiProvider) Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error) {
	apiReq := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: SystemInstruction}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: BuildLocationPrompt(req)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			MaxOutputTokens:  p.maxTokens,
		},
	}

	p.logger.Debug("resolving location", "kind", req.Kind, "identifier", req.Identifier())

	resp, err := p.post(ctx, "generateContent", apiReq)
	if err != nil {
		return nil, textFailure("Gemini", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var apiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, textFailure("Gemini", fmt.Errorf("unmarshal response: %w", err))
	}

	text := apiResp.text()
	return validate.Context(text).Unwrap()
}

// Generate streams the image model's answer and returns the first inline
// image payload as a data URI
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}

	apiReq := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	p.logger.Debug("generating image", "prompt_chars", len(prompt))

	resp, err := p.post(ctx, "streamGenerateContent?alt=sse", apiReq)
	if err != nil {
		return "", imageFailure("Gemini", p.model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	uri, err := firstInlineImage(resp.Body)
	if err != nil {
		return "", imageFailure("Gemini", p.model, err)
	}
	return uri, nil
}

// firstInlineImage reads server-sent events until a chunk carries inline
// image data
func firstInlineImage(body io.Reader) (string, error) {
	reader := bufio.NewReader(body)
	for {
		line, readErr := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)

		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			var chunk geminiResponse
			if err := json.Unmarshal(bytes.TrimSpace(data), &chunk); err != nil {
				return "", fmt.Errorf("unmarshal stream chunk: %w", err)
			}
			if chunk.Error != nil {
				return "", &statusError{StatusCode: chunk.Error.Code, Status: chunk.Error.Status, Message: chunk.Error.Message}
			}
			if inline := chunk.inlineImage(); inline != nil {
				return DataURI(inline.MimeType, inline.Data), nil
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return "", errNoImageData
			}
			return "", fmt.Errorf("read stream: %w", readErr)
		}
	}
}

// post sends a request to the model endpoint and checks the status
func (p *GeminiProvider) post(ctx context.Context, method string, apiReq geminiRequest) (*http.Response, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:%s", p.baseURL, p.model, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer func() { _ = httpResp.Body.Close() }()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 64<<10))

		var apiResp geminiResponse
		if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Error != nil {
			return nil, &statusError{StatusCode: httpResp.StatusCode, Status: apiResp.Error.Status, Message: apiResp.Error.Message}
		}
		return nil, &statusError{StatusCode: httpResp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	return httpResp, nil
}

// text concatenates the text parts of the first candidate
func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// inlineImage returns the first complete inline payload of the first candidate
func (r geminiResponse) inlineImage() *geminiInlineData {
	if len(r.Candidates) == 0 {
		return nil
	}
	for _, part := range r.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" && part.InlineData.MimeType != "" {
			return part.InlineData
		}
	}
	return nil
}

func missingKey(provider string) error {
	return &model.Error{
		Kind: model.KindConfiguration,
		Op:   "configure " + provider,
		Msg: fmt.Sprintf("API key is missing. Set CHRONOSIGHT_API_KEY (or API_KEY / %s_API_KEY).",
			strings.ToUpper(provider)),
	}
}
