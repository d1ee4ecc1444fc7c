package session

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/ppiankov/chronosight/internal/model"
)

func testContext(resolved *model.Coordinates) *model.HistoricalContext {
	return &model.HistoricalContext{
		Narrative: "The island was a military post.\n\nThe statue arrived in 1885.",
		SuggestedEras: []model.EraData{
			{EraName: "Dedication, 1886", HistoricalImagePrompt: "crowds at the dedication", KeyImageInsights: []string{"copper was brown"}},
			{EraName: "Ellis Island, 1910", HistoricalImagePrompt: "immigrant ships in the harbor", KeyImageInsights: []string{"patina forming"}},
		},
		ModernImagePrompt:   "the statue today",
		ResolvedCoordinates: resolved,
	}
}

func imageFor(prompt string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(prompt))
}

// staticResolver answers immediately and records requests
type staticResolver struct {
	mu    sync.Mutex
	ctx   *model.HistoricalContext
	err   error
	calls []model.LocationRequest
}

func (r *staticResolver) Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	if r.err != nil {
		return nil, r.err
	}
	return r.ctx.Clone(), nil
}

func (r *staticResolver) Calls() []model.LocationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.LocationRequest(nil), r.calls...)
}

// staticGenerator answers immediately with an image derived from the
// prompt, or fails for prompts listed in failures
type staticGenerator struct {
	mu       sync.Mutex
	failures map[string]error
	prompts  []string
}

func (g *staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if err, ok := g.failures[prompt]; ok {
		return "", err
	}
	return imageFor(prompt), nil
}

func (g *staticGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// pendingResolve is one blocked resolver call
type pendingResolve struct {
	req   model.LocationRequest
	reply chan resolveReply
}

type resolveReply struct {
	ctx *model.HistoricalContext
	err error
}

// gatedResolver blocks every call until the test replies
type gatedResolver struct {
	started chan *pendingResolve
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{started: make(chan *pendingResolve, 16)}
}

func (r *gatedResolver) Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error) {
	p := &pendingResolve{req: req, reply: make(chan resolveReply, 1)}
	r.started <- p
	select {
	case rep := <-p.reply:
		return rep.ctx, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pendingGenerate is one blocked generator call
type pendingGenerate struct {
	prompt string
	reply  chan generateReply
}

type generateReply struct {
	uri string
	err error
}

func (p *pendingGenerate) succeed() {
	p.reply <- generateReply{uri: imageFor(p.prompt)}
}

// gatedGenerator blocks every call until the test replies
type gatedGenerator struct {
	started chan *pendingGenerate
}

func newGatedGenerator() *gatedGenerator {
	return &gatedGenerator{started: make(chan *pendingGenerate, 16)}
}

func (g *gatedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	p := &pendingGenerate{prompt: prompt, reply: make(chan generateReply, 1)}
	g.started <- p
	select {
	case rep := <-p.reply:
		return rep.uri, rep.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
