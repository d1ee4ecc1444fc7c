package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/chronosight/internal/model"
)

// setDefaults registers every config key with its default so that
// AutomaticEnv can override keys missing from the config file
func setDefaults() {
	d := model.DefaultConfig()

	viper.SetDefault("llm.provider", d.LLM.Provider)
	viper.SetDefault("llm.image_provider", d.LLM.ImageProvider)
	viper.SetDefault("llm.text_model", d.LLM.TextModel)
	viper.SetDefault("llm.image_model", d.LLM.ImageModel)
	viper.SetDefault("llm.api_key", d.LLM.APIKey)
	viper.SetDefault("llm.base_url", d.LLM.BaseURL)
	viper.SetDefault("llm.timeout", d.LLM.Timeout)
	viper.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	viper.SetDefault("http.user_agent", d.HTTP.UserAgent)
	viper.SetDefault("http.proxy", d.HTTP.HTTPProxy)
	viper.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	viper.SetDefault("http.no_proxy", d.HTTP.NoProxy)

	viper.SetDefault("breaker.enabled", d.Breaker.Enabled)
	viper.SetDefault("breaker.max_failures", d.Breaker.MaxFailures)
	viper.SetDefault("breaker.open_timeout", d.Breaker.OpenTimeout)

	viper.SetDefault("cache.enabled", d.Cache.Enabled)
	viper.SetDefault("cache.ttl", d.Cache.TTL)
	viper.SetDefault("cache.dir", d.Cache.Dir)

	viper.SetDefault("limits.requests_per_second", d.Limits.RequestsPerSecond)
	viper.SetDefault("limits.burst", d.Limits.Burst)

	viper.SetDefault("session.stale_results", d.Session.StaleResults)
	viper.SetDefault("concurrency.workers", d.Concurrency.Workers)

	viper.SetDefault("output.verbose", d.Output.Verbose)
	viper.SetDefault("output.color", d.Output.Color)
}

// loadConfig assembles the effective configuration from defaults, the
// config file, the environment and flags
func loadConfig(cmd *cobra.Command) *model.Config {
	cfg := &model.Config{
		LLM: model.LLMConfig{
			Provider:      strings.ToLower(viper.GetString("llm.provider")),
			ImageProvider: strings.ToLower(viper.GetString("llm.image_provider")),
			TextModel:     viper.GetString("llm.text_model"),
			ImageModel:    viper.GetString("llm.image_model"),
			APIKey:        viper.GetString("llm.api_key"),
			BaseURL:       viper.GetString("llm.base_url"),
			Timeout:       viper.GetInt("llm.timeout"),
			MaxTokens:     viper.GetInt("llm.max_tokens"),
		},
		HTTP: model.HTTPConfig{
			UserAgent:  viper.GetString("http.user_agent"),
			HTTPProxy:  viper.GetString("http.proxy"),
			HTTPSProxy: viper.GetString("http.https_proxy"),
			NoProxy:    viper.GetString("http.no_proxy"),
		},
		Breaker: model.BreakerConfig{
			Enabled:     viper.GetBool("breaker.enabled"),
			MaxFailures: viper.GetUint32("breaker.max_failures"),
			OpenTimeout: viper.GetDuration("breaker.open_timeout"),
		},
		Cache: model.CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			TTL:     viper.GetDuration("cache.ttl"),
			Dir:     viper.GetString("cache.dir"),
		},
		Limits: model.LimitsConfig{
			RequestsPerSecond: viper.GetFloat64("limits.requests_per_second"),
			Burst:             viper.GetInt("limits.burst"),
		},
		Session: model.SessionConfig{
			StaleResults: viper.GetString("session.stale_results"),
		},
		Concurrency: model.ConcurrencyConfig{
			Workers: viper.GetInt("concurrency.workers"),
		},
		Output: model.OutputConfig{
			Verbose: viper.GetBool("output.verbose"),
			Color:   viper.GetBool("output.color"),
		},
	}

	if cmd != nil {
		if noCache, err := cmd.Flags().GetBool("no-cache"); err == nil && noCache {
			cfg.Cache.Enabled = false
		}
		if noColor, err := cmd.Flags().GetBool("no-color"); err == nil && noColor {
			cfg.Output.Color = false
		}
	}
	if os.Getenv("NO_COLOR") != "" {
		cfg.Output.Color = false
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM)
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	return cfg
}

// apiKeyFromEnv looks up the key under the generic names first, then under
// the vendor name of a provider that needs one
func apiKeyFromEnv(c model.LLMConfig) string {
	for _, name := range []string{"CHRONOSIGHT_API_KEY", "API_KEY"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	for _, provider := range []string{c.ImageProviderName(), c.Provider} {
		switch provider {
		case "gemini", "":
			if v := os.Getenv("GEMINI_API_KEY"); v != "" {
				return v
			}
		case "openai":
			if v := os.Getenv("OPENAI_API_KEY"); v != "" {
				return v
			}
		}
	}
	return ""
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ChronoSight configuration",
	Long: `Manage ChronoSight configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CHRONOSIGHT_*, .env file)
3. Config file (~/.chronosight/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, environment and flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		cfg.LLM.APIKey = maskKey(cfg.LLM.APIKey)

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, string(yamlData))
		fmt.Fprintln(out, "Configuration hierarchy (highest to lowest priority):")
		fmt.Fprintln(out, "  1. CLI flags")
		fmt.Fprintln(out, "  2. Environment variables (CHRONOSIGHT_*, API_KEY, GEMINI_API_KEY, OPENAI_API_KEY)")
		fmt.Fprintln(out, "  3. Config file (~/.chronosight/config.yaml)")
		fmt.Fprintln(out, "  4. Defaults")

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.chronosight/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath := filepath.Join(home, ".chronosight", "config.yaml")
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(out, "\nTo view the configuration:\n")
		fmt.Fprintf(out, "  chronosight config show\n")
		return nil
	},
}

// writeDefaultConfig writes the documented default configuration to path.
// An existing file is never overwritten.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'chronosight config show' to view it, or delete it first to recreate", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# ChronoSight Configuration File\n")
	sb.WriteString("#\n")
	sb.WriteString("# Configuration hierarchy (highest to lowest priority):\n")
	sb.WriteString("#   1. CLI flags\n")
	sb.WriteString("#   2. Environment variables (CHRONOSIGHT_*)\n")
	sb.WriteString("#   3. This config file\n")
	sb.WriteString("#   4. Built-in defaults\n\n")
	sb.Write(yamlData)
	sb.WriteString("\n# API keys (recommended to use environment variables instead):\n")
	sb.WriteString("#   export CHRONOSIGHT_API_KEY=...\n")
	sb.WriteString("#   export GEMINI_API_KEY=...\n")
	sb.WriteString("#   export OPENAI_API_KEY=sk-...\n")
	sb.WriteString("#   export OLLAMA_BASE_URL=http://localhost:11434\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
