package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/chronosight/internal/model"
)

func TestOllamaProvider_Resolve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Format != "json" || req.Stream {
			t.Errorf("Expected non-streaming JSON request, got format=%q stream=%v", req.Format, req.Stream)
		}
		if req.System != SystemInstruction {
			t.Error("Expected system instruction")
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: req.Model, Response: contextJSON, Done: true})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1"}, server.Client(), nil)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	hc, err := provider.Resolve(context.Background(), model.NewCoordinatesRequest(model.Coordinates{Lat: 40.6892, Lng: -74.0445}))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if hc.ModernImagePrompt == "" {
		t.Error("Expected modern image prompt")
	}
}

func TestOllamaProvider_Resolve_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "model not loaded"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL}, server.Client(), nil)

	_, err := provider.Resolve(context.Background(), model.NewNameRequest("Rome"))
	if model.KindOf(err) != model.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestOllamaProvider_Defaults(t *testing.T) {
	provider, err := NewOllamaProvider(Config{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.baseURL != "http://localhost:11434" {
		t.Errorf("unexpected base URL: %s", provider.baseURL)
	}
	if provider.model != model.DefaultOllamaTextModel {
		t.Errorf("unexpected model: %s", provider.model)
	}
}
