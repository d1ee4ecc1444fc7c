package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/chronosight/internal/model"
)

// MockResolver implements Resolver
type MockResolver struct {
	ShouldError bool
	Calls       int32
}

func (m *MockResolver) Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error) {
	atomic.AddInt32(&m.Calls, 1)
	time.Sleep(5 * time.Millisecond) // Simulate work
	if m.ShouldError {
		return nil, &model.Error{Kind: model.KindUpstream, Msg: "resolve error"}
	}
	return &model.HistoricalContext{
		Narrative: "History of " + req.DisplayName(),
		SuggestedEras: []model.EraData{
			{EraName: "Era", HistoricalImagePrompt: "old", KeyImageInsights: []string{"fact"}},
		},
		ModernImagePrompt: "modern " + req.DisplayName(),
	}, nil
}

// MockGenerator implements Generator
type MockGenerator struct {
	ShouldError bool
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if m.ShouldError {
		return "", errors.New("image error")
	}
	return "data:image/png;base64,AAAA", nil
}

func TestBatchProcessor_Process(t *testing.T) {
	resolver := &MockResolver{}
	processor := NewBatchProcessor(resolver, nil, 2, nil)

	queries := []string{"Paris", "40.6892, -74.0445", "Kyoto"}
	results := processor.Process(context.Background(), queries)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Query != queries[i] {
			t.Errorf("result %d: expected query %q, got %q", i, queries[i], res.Query)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Query, res.Error)
		}
		if res.Context == nil {
			t.Errorf("expected context for %s", res.Query)
		}
		if res.ModernImage != "" {
			t.Errorf("expected no image without generator")
		}
	}

	if results[1].Request.Kind != model.ByCoordinates {
		t.Errorf("expected coordinate request, got %v", results[1].Request.Kind)
	}
}

func TestBatchProcessor_Process_Error(t *testing.T) {
	resolver := &MockResolver{ShouldError: true}
	processor := NewBatchProcessor(resolver, nil, 2, nil)

	results := processor.Process(context.Background(), []string{"Paris"})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Context != nil {
		t.Error("expected nil context on error")
	}
}

func TestBatchProcessor_InvalidQueriesSkipResolver(t *testing.T) {
	resolver := &MockResolver{}
	processor := NewBatchProcessor(resolver, nil, 2, nil)

	results := processor.Process(context.Background(), []string{"95, 10", "   "})

	for _, res := range results {
		if model.KindOf(res.Error) != model.KindInvalidInput {
			t.Errorf("expected invalid input for %q, got %v", res.Query, res.Error)
		}
	}
	if calls := atomic.LoadInt32(&resolver.Calls); calls != 0 {
		t.Errorf("expected no resolver calls, got %d", calls)
	}
}

func TestBatchProcessor_Images(t *testing.T) {
	processor := NewBatchProcessor(&MockResolver{}, &MockGenerator{}, 2, nil)
	results := processor.Process(context.Background(), []string{"Paris"})

	if results[0].ModernImage == "" {
		t.Error("expected modern image")
	}

	failing := NewBatchProcessor(&MockResolver{}, &MockGenerator{ShouldError: true}, 2, nil)
	results = failing.Process(context.Background(), []string{"Paris"})

	if results[0].GetError() != nil {
		t.Errorf("image failure should not fail the query: %v", results[0].GetError())
	}
	if results[0].ImageError == nil {
		t.Error("expected image error")
	}
	if results[0].Context == nil {
		t.Error("expected context despite image failure")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockResolver{}, nil, 2, nil)
	if results := processor.Process(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&MockResolver{}, nil, 2, nil)
	results := processor.Process(ctx, []string{"Paris", "Rome"})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected context.Canceled for %s, got %v", res.Query, res.Error)
		}
	}
}

func TestReadQueriesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	content := "# landmarks\nParis\n\n  Kyoto  \nParis\n48.8584, 2.2945\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	queries, err := ReadQueriesFromFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	want := []string{"Paris", "Kyoto", "48.8584, 2.2945"}
	if len(queries) != len(want) {
		t.Fatalf("expected %d queries, got %d: %v", len(want), len(queries), queries)
	}
	for i := range want {
		if queries[i] != want[i] {
			t.Errorf("query %d: expected %q, got %q", i, want[i], queries[i])
		}
	}

	if _, err := ReadQueriesFromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
