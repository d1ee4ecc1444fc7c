package util

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ppiankov/chronosight/internal/model"
)

// ErrBreakerOpen is returned while the breaker rejects calls
var ErrBreakerOpen = errors.New("provider temporarily unavailable (circuit breaker open)")

var errRetryableStatus = errors.New("retryable upstream status")

// NewHTTPClient builds a provider client: proxy settings, a user agent and,
// when enabled, a circuit breaker named after the client. Build one client
// per provider role so failures of one role never open the other's breaker.
// Requests are never retried.
func NewHTTPClient(name string, httpCfg model.HTTPConfig, breakerCfg model.BreakerConfig, timeout time.Duration, logger *slog.Logger) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy:               NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	if httpCfg.UserAgent != "" {
		transport = &userAgentTransport{next: transport, userAgent: httpCfg.UserAgent}
	}
	if breakerCfg.Enabled {
		transport = NewBreakerTransport(name, transport, breakerCfg, logger)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(clone)
}

// BreakerTransport trips after consecutive transport errors, 5xx or 429
// answers and fails fast while open
type BreakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerTransport wraps next with a circuit breaker
func NewBreakerTransport(name string, next http.RoundTripper, cfg model.BreakerConfig, logger *slog.Logger) *BreakerTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = "llm-http"
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerTransport{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// RoundTrip implements http.RoundTripper
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := t.cb.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return resp, errRetryableStatus
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	}

	// Failing statuses still reach the caller so providers can read the
	// error body
	if resp, ok := out.(*http.Response); ok && resp != nil {
		return resp, nil
	}
	return nil, err
}

// State reports the breaker state for diagnostics
func (t *BreakerTransport) State() string {
	return t.cb.State().String()
}
