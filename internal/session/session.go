// Package session implements the ChronoSight orchestration state machine:
// it turns location and era picks into resolver and generator calls and
// folds their results into one view state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ppiankov/chronosight/internal/llm"
	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/validate"
)

// StalePolicy decides what happens to a fetch result that lands after a
// newer fetch for the same field was started
type StalePolicy int

const (
	// LastWriterWins applies every result in arrival order, so a slow
	// fetch for an older pick can overwrite a newer one
	LastWriterWins StalePolicy = iota
	// LatestRequestWins tags fetches with per-field sequence numbers and
	// drops results that are not the latest for their field
	LatestRequestWins
)

func (p StalePolicy) String() string {
	if p == LatestRequestWins {
		return "latest-request"
	}
	return "last-writer-wins"
}

// ParseStalePolicy reads the session.stale_results setting
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch s {
	case "", "last-writer-wins":
		return LastWriterWins, nil
	case "latest-request":
		return LatestRequestWins, nil
	default:
		return LastWriterWins, fmt.Errorf("unknown stale result policy %q (supported: last-writer-wins, latest-request)", s)
	}
}

// Option configures a Session
type Option func(*Session)

// WithStalePolicy sets the stale-result policy
func WithStalePolicy(p StalePolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers a callback that receives a snapshot after every
// transition. It runs with the session lock held, so it sees transitions
// in order and must not call back into the Session.
func WithObserver(fn func(State)) Option {
	return func(s *Session) { s.observer = fn }
}

// WithConfigurationError starts the session unconfigured. Every location
// and era action is then refused with this error.
func WithConfigurationError(err error) Option {
	return func(s *Session) { s.configErr = err }
}

// Session owns one view state. Events are applied one at a time under a
// mutex; each outbound call runs on its own goroutine and is never
// cancelled by a newer pick, only by Close.
type Session struct {
	id        string
	resolver  llm.Resolver
	generator llm.Generator
	policy    StalePolicy
	logger    *slog.Logger
	observer  func(State)
	configErr error

	mu    sync.Mutex
	state State

	// Per-field fetch sequence numbers
	contextSeq    uint64
	modernSeq     uint64
	historicalSeq uint64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a session. A nil resolver or generator without an explicit
// configuration error also leaves the session unconfigured.
func New(resolver llm.Resolver, generator llm.Generator, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        uuid.NewString(),
		resolver:  resolver,
		generator: generator,
		logger:    slog.Default(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)

	if s.configErr == nil && (resolver == nil || generator == nil) {
		s.configErr = &model.Error{Kind: model.KindConfiguration, Op: "configure session", Msg: "AI providers are not configured."}
	}

	if s.configErr != nil {
		e := model.AsError(s.configErr, model.KindConfiguration)
		e = &model.Error{Kind: model.KindConfiguration, Op: e.Op, Msg: e.Msg, Err: e.Err}
		s.configErr = e
		s.state.Err = e
		s.logger.Warn("session unconfigured", "error", e.Msg)
	} else {
		s.state.Configured = true
	}

	return s
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id
}

// Policy returns the stale-result policy in effect
func (s *Session) Policy() StalePolicy {
	return s.policy
}

// State returns a snapshot of the view state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Search submits free text: "lat, lng" becomes a coordinate request,
// anything else a named search
func (s *Session) Search(text string) error {
	if err := s.checkConfigured(); err != nil {
		return err
	}
	req, err := model.ParseQuery(text)
	if err != nil {
		return err
	}
	return s.Submit(req)
}

// SelectLocation submits a map click
func (s *Session) SelectLocation(c model.Coordinates) error {
	return s.Submit(model.NewCoordinatesRequest(c))
}

// Submit starts a new location request. Invalid input and a missing
// configuration are returned without touching the state. A request already
// in flight is not cancelled.
func (s *Session) Submit(req model.LocationRequest) error {
	if err := s.checkConfigured(); err != nil {
		return err
	}
	if err := validate.Request(req); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.beginRequest(req)
	s.contextSeq++
	s.modernSeq++
	s.historicalSeq++
	seq := s.contextSeq
	s.wg.Add(1)
	s.notify()
	s.mu.Unlock()

	s.logger.Info("location submitted", "kind", req.Kind, "location", req.DisplayName(), "seq", seq)

	go s.resolve(seq, req)
	return nil
}

// SelectEra makes era current and starts its historical image. It reports
// false and changes nothing when no context is loaded, the era is not
// among the context's suggestions, or the session is unconfigured.
func (s *Session) SelectEra(era model.EraData) bool {
	if s.checkConfigured() != nil {
		return false
	}

	s.mu.Lock()
	prompt, ok := s.state.beginEra(era)
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("era selection ignored", "era", era.EraName)
		return false
	}
	s.historicalSeq++
	seq := s.historicalSeq
	s.wg.Add(1)
	s.notify()
	s.mu.Unlock()

	s.logger.Info("era selected", "era", era.EraName, "seq", seq)

	go func() {
		defer s.wg.Done()
		uri, err := s.generator.Generate(s.ctx, prompt)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stale(seq, s.historicalSeq, "historical image") {
			return
		}
		s.state.applyHistoricalImage(uri, err)
		s.logResult("historical image", err)
		s.notify()
	}()
	return true
}

// SelectEraByName selects the era of the current context with that name
func (s *Session) SelectEraByName(name string) bool {
	return s.SelectEra(model.EraData{EraName: name})
}

// Wait blocks until every fetch started so far has landed
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight calls and waits for their goroutines
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// resolve runs the context fetch and, on success, the dependent modern
// image fetch. The two are strictly sequential.
func (s *Session) resolve(seq uint64, req model.LocationRequest) {
	defer s.wg.Done()

	hc, err := s.resolver.Resolve(s.ctx, req)
	if err == nil && hc == nil {
		err = &model.Error{Kind: model.KindMalformedResponse, Op: "resolve location", Msg: "The AI provided data in an unexpected format. Details: empty context."}
	}

	s.mu.Lock()
	if s.stale(seq, s.contextSeq, "context") {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.state.applyContextError(err)
		s.logResult("context", err)
		s.notify()
		s.mu.Unlock()
		return
	}

	prompt := s.state.applyContext(req, hc.Clone())
	s.logResult("context", nil)
	var modernSeq uint64
	if prompt != "" {
		s.modernSeq++
		modernSeq = s.modernSeq
	}
	s.notify()
	s.mu.Unlock()

	if prompt == "" {
		return
	}

	uri, err := s.generator.Generate(s.ctx, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(modernSeq, s.modernSeq, "modern image") {
		return
	}
	s.state.applyModernImage(uri, err)
	s.logResult("modern image", err)
	s.notify()
}

// stale reports whether a result must be dropped under the current policy.
// Callers hold mu.
func (s *Session) stale(seq, latest uint64, field string) bool {
	if s.policy != LatestRequestWins || seq == latest {
		return false
	}
	s.logger.Debug("dropping stale result", "field", field, "seq", seq, "latest", latest)
	return true
}

func (s *Session) checkConfigured() error {
	if s.configErr != nil {
		return s.configErr
	}
	return nil
}

func (s *Session) logResult(field string, err error) {
	if err != nil {
		s.logger.Warn("fetch failed", "field", field, "kind", model.KindOf(err).String(), "error", err)
		return
	}
	s.logger.Debug("fetch succeeded", "field", field)
}

// notify hands a snapshot to the observer. Callers hold mu.
func (s *Session) notify() {
	if s.observer != nil {
		s.observer(s.state.Clone())
	}
}
