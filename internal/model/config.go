package model

import "time"

// Config is the complete ChronoSight configuration
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	HTTP        HTTPConfig        `yaml:"http"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Cache       CacheConfig       `yaml:"cache"`
	Limits      LimitsConfig      `yaml:"limits"`
	Session     SessionConfig     `yaml:"session"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// LLMConfig selects the text and image providers
type LLMConfig struct {
	Provider      string `yaml:"provider"`       // gemini, openai, ollama
	ImageProvider string `yaml:"image_provider"` // gemini, openai (empty = same as provider)
	TextModel     string `yaml:"text_model"`
	ImageModel    string `yaml:"image_model"`
	APIKey        string `yaml:"api_key,omitempty"`
	BaseURL       string `yaml:"base_url,omitempty"`
	Timeout       int    `yaml:"timeout"`    // seconds
	MaxTokens     int    `yaml:"max_tokens"` // 0 = no cap
}

// HTTPConfig controls the outbound HTTP client
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent"`
	HTTPProxy  string `yaml:"proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// BreakerConfig controls the circuit breaker around provider calls
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// CacheConfig controls caching of resolved contexts
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Dir     string        `yaml:"dir,omitempty"` // empty = memory only
}

// LimitsConfig controls outbound request pacing per provider endpoint
type LimitsConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SessionConfig controls the orchestration state machine
type SessionConfig struct {
	StaleResults string `yaml:"stale_results"` // last-writer-wins, latest-request
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
	Color   bool `yaml:"color"`
}

// Default model names
const (
	DefaultGeminiTextModel  = "gemini-2.5-flash-preview-04-17"
	DefaultGeminiImageModel = "gemini-2.0-flash-preview-image-generation"
	DefaultOpenAITextModel  = "gpt-4o-mini"
	DefaultOpenAIImageModel = "dall-e-3"
	DefaultOllamaTextModel  = "llama3.1:8b"
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Timeout:  120,
		},
		HTTP: HTTPConfig{
			UserAgent: "ChronoSight/0.1 (+https://github.com/ppiankov/chronosight)",
		},
		Breaker: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Limits: LimitsConfig{
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Session: SessionConfig{
			StaleResults: "last-writer-wins",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Color: true,
		},
	}
}

// ImageProviderName returns the effective image provider
func (c LLMConfig) ImageProviderName() string {
	if c.ImageProvider != "" {
		return c.ImageProvider
	}
	return c.Provider
}
