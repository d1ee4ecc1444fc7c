package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ppiankov/chronosight/internal/cache"
	"github.com/ppiankov/chronosight/internal/llm"
	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/session"
	"github.com/ppiankov/chronosight/internal/util"
	"github.com/ppiankov/chronosight/internal/worker"
)

// providers is the fully wrapped provider stack for one command
type providers struct {
	resolver  llm.Resolver
	generator llm.Generator
	textName  string
	imageName string

	textClient  *http.Client
	imageClient *http.Client
}

// buildProviders creates the resolver and generator named in cfg, each on
// its own HTTP client and breaker, and wraps them with the rate limiter and
// context cache
func buildProviders(cfg *model.Config, logger *slog.Logger) (*providers, error) {
	timeout := time.Duration(cfg.LLM.Timeout) * time.Second
	textClient := util.NewHTTPClient("llm-text", cfg.HTTP, cfg.Breaker, timeout, logger)
	imageClient := util.NewHTTPClient("llm-image", cfg.HTTP, cfg.Breaker, timeout, logger)

	textCfg := llm.TextConfig(cfg.LLM)
	imageCfg := llm.ImageConfig(cfg.LLM)

	resolver, err := llm.NewResolver(textCfg, textClient, logger)
	if err != nil {
		return nil, err
	}
	generator, err := llm.NewGenerator(imageCfg, imageClient, logger)
	if err != nil {
		return nil, err
	}

	limiter := worker.NewLimiter(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)
	textKey := providerName(textCfg.Provider) + ":text"
	imageKey := providerName(imageCfg.Provider) + ":image"

	resolver = llm.NewRateLimitedResolver(resolver, limiter, textKey)
	generator = llm.NewRateLimitedGenerator(generator, limiter, imageKey)

	// The cache sits outside the limiter so hits never wait for a token
	if c := cache.New(cfg.Cache.Enabled, cfg.Cache.TTL, cfg.Cache.Dir); c != nil {
		scope := fmt.Sprintf("%s/%s", providerName(textCfg.Provider), textCfg.Model)
		resolver = llm.NewCachedResolver(resolver, c, scope, cfg.Cache.TTL, logger)
	}

	logger.Debug("providers ready", "text", textKey, "image", imageKey,
		"cache", cfg.Cache.Enabled, "breaker", cfg.Breaker.Enabled)

	return &providers{
		resolver:  resolver,
		generator: generator,
		textName:  providerName(textCfg.Provider),
		imageName: providerName(imageCfg.Provider),

		textClient:  textClient,
		imageClient: imageClient,
	}, nil
}

func providerName(p string) string {
	if p == "" {
		return "gemini"
	}
	return p
}

// newSession builds a session from cfg. Provider construction failures do
// not abort: the session starts unconfigured and reports the error.
func newSession(cfg *model.Config, logger *slog.Logger, opts ...session.Option) (*session.Session, error) {
	policy, err := session.ParseStalePolicy(cfg.Session.StaleResults)
	if err != nil {
		return nil, err
	}

	opts = append([]session.Option{
		session.WithStalePolicy(policy),
		session.WithLogger(logger),
	}, opts...)

	p, err := buildProviders(cfg, logger)
	if err != nil {
		logger.Debug("provider setup failed", "error", err)
		opts = append(opts, session.WithConfigurationError(err))
		return session.New(nil, nil, opts...), nil
	}
	return session.New(p.resolver, p.generator, opts...), nil
}
