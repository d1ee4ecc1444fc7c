package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/output"
	"github.com/ppiankov/chronosight/internal/session"
	"github.com/ppiankov/chronosight/internal/worker"
)

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error) {
	return &model.HistoricalContext{
		Narrative: "A fort stood here. Then came the statue.",
		SuggestedEras: []model.EraData{
			{EraName: "Fort Wood, 1812", HistoricalImagePrompt: "a star fort", KeyImageInsights: []string{"Granite walls"}},
			{EraName: "Dedication, 1886", HistoricalImagePrompt: "the dedication", KeyImageInsights: []string{"Brown copper"}},
		},
		ModernImagePrompt:   "the statue today",
		ResolvedCoordinates: &model.Coordinates{Lat: 40.6892, Lng: -74.0445},
	}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "data:image/png;base64,aGVsbG8=", nil
}

func TestApiKeyFromEnv(t *testing.T) {
	t.Setenv("CHRONOSIGHT_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")

	if got := apiKeyFromEnv(model.LLMConfig{Provider: "gemini"}); got != "gem-key" {
		t.Errorf("expected gemini key, got %q", got)
	}
	if got := apiKeyFromEnv(model.LLMConfig{Provider: "openai"}); got != "oai-key" {
		t.Errorf("expected openai key, got %q", got)
	}
	if got := apiKeyFromEnv(model.LLMConfig{Provider: "ollama", ImageProvider: "openai"}); got != "oai-key" {
		t.Errorf("expected image provider key, got %q", got)
	}

	t.Setenv("API_KEY", "generic")
	if got := apiKeyFromEnv(model.LLMConfig{Provider: "openai"}); got != "generic" {
		t.Errorf("expected generic key first, got %q", got)
	}

	t.Setenv("CHRONOSIGHT_API_KEY", "prefixed")
	if got := apiKeyFromEnv(model.LLMConfig{Provider: "openai"}); got != "prefixed" {
		t.Errorf("expected prefixed key first, got %q", got)
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"short":             "****",
		"AIzaSyExample1234": "AIza****1234",
	}
	for in, want := range tests {
		if got := maskKey(in); got != want {
			t.Errorf("maskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "stale_results: last-writer-wins") {
		t.Errorf("expected defaults in config file:\n%s", data)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error for existing config file")
	}
}

func TestParseClick(t *testing.T) {
	c, err := parseClick("40.6892, -74.0445")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.Lat != 40.6892 || c.Lng != -74.0445 {
		t.Errorf("unexpected coordinates %+v", c)
	}

	for _, bad := range []string{"", "40.1", "north 10", "1 2 3"} {
		if _, err := parseClick(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestNewSession_UnconfiguredOnProviderError(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "gemini"
	cfg.LLM.APIKey = ""
	t.Setenv("CHRONOSIGHT_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	s, err := newSession(cfg, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	st := s.State()
	if st.Configured {
		t.Fatal("expected unconfigured session")
	}
	if st.Err == nil || st.Err.Kind != model.KindConfiguration {
		t.Errorf("expected configuration error, got %v", st.Err)
	}
}

func TestNewSession_BadStalePolicy(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Session.StaleResults = "random"

	if _, err := newSession(cfg, logger); err == nil {
		t.Error("expected error for unknown stale policy")
	}
}

func TestSelectEra(t *testing.T) {
	s := session.New(stubResolver{}, stubGenerator{})
	defer s.Close()

	if err := selectEra(s, "1"); err == nil {
		t.Error("expected error without a loaded location")
	}

	if err := s.Search("Statue of Liberty"); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	for _, bad := range []string{"0", "3", "Bronze Age"} {
		if err := selectEra(s, bad); err == nil {
			t.Errorf("expected error for era %q", bad)
		}
	}

	if err := selectEra(s, "dedication, 1886"); err != nil {
		t.Fatalf("select by name failed: %v", err)
	}
	s.Wait()
	if st := s.State(); st.CurrentEra == nil || st.CurrentEra.EraName != "Dedication, 1886" {
		t.Errorf("unexpected current era %+v", st.CurrentEra)
	}

	if err := selectEra(s, "1"); err != nil {
		t.Fatalf("select by number failed: %v", err)
	}
	s.Wait()
	if st := s.State(); st.CurrentEra == nil || st.CurrentEra.EraName != "Fort Wood, 1812" {
		t.Errorf("unexpected current era %+v", st.CurrentEra)
	}
}

func TestRunInteractive(t *testing.T) {
	s := session.New(stubResolver{}, stubGenerator{})
	defer s.Close()

	var out bytes.Buffer
	term := output.NewTerminal(&out, false)
	dir := t.TempDir()
	in := strings.NewReader(strings.Join([]string{
		"help",
		"era 1",
		"Statue of Liberty",
		"wait",
		"era 2",
		"wait",
		"save " + dir,
		"quit",
	}, "\n"))

	if err := runInteractive(s, in, &out, term); err != nil {
		t.Fatalf("interactive failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		output.WelcomeTitle,
		"click <lat> <lng>",
		"Error: no location loaded yet",
		"History of Statue of Liberty",
		"* 2. Dedication, 1886",
		"✓ Saved",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "statue-of-liberty.json")); err != nil {
		t.Errorf("expected saved JSON: %v", err)
	}
}

func TestRunInteractive_Unconfigured(t *testing.T) {
	cfgErr := errors.New("API key is missing.")
	s := session.New(nil, nil, session.WithConfigurationError(cfgErr))
	defer s.Close()

	var out bytes.Buffer
	err := runInteractive(s, strings.NewReader("Paris\n"), &out, output.NewTerminal(&out, false))
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !strings.Contains(out.String(), "Error: API key is missing.") {
		t.Errorf("expected error in output:\n%s", out.String())
	}
}

func TestBatchState(t *testing.T) {
	hc, _ := stubResolver{}.Resolve(context.Background(), model.NewNameRequest("Statue of Liberty"))
	res := &worker.BatchResult{
		Query:       "Statue of Liberty",
		Request:     model.NewNameRequest("Statue of Liberty"),
		Context:     hc,
		ModernImage: "data:image/png;base64,aGVsbG8=",
		ImageError:  nil,
	}

	st := batchState(res)
	if st.LocationName != "Statue of Liberty" || st.Coordinates == nil || st.Coordinates.Lat != 40.6892 {
		t.Errorf("unexpected state %+v", st)
	}
	if st.Err != nil {
		t.Errorf("expected no error, got %v", st.Err)
	}

	res.Request = model.NewCoordinatesRequest(model.Coordinates{Lat: 1, Lng: 2})
	res.ImageError = errors.New("boom")
	st = batchState(res)
	if st.Coordinates == nil || st.Coordinates.Lat != 1 {
		t.Errorf("expected clicked coordinates, got %+v", st.Coordinates)
	}
	if st.Err == nil || st.Err.Kind != model.KindUpstream {
		t.Errorf("expected upstream image error, got %v", st.Err)
	}
}

func TestRunInteractive_PlaceNamesStartingWithCommands(t *testing.T) {
	s := session.New(stubResolver{}, stubGenerator{})
	defer s.Close()

	var out bytes.Buffer
	in := strings.NewReader("Show Low, Arizona\nwait\nQuit Creek\nwait\nquit\n")
	if err := runInteractive(s, in, &out, output.NewTerminal(&out, false)); err != nil {
		t.Fatalf("interactive failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"History of Show Low, Arizona", "History of Quit Creek"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
	if got := s.State().LocationName; got != "Quit Creek" {
		t.Errorf("expected last search to be loaded, got %q", got)
	}
}

func TestCommandOf(t *testing.T) {
	tests := []struct {
		line, verb, rest string
	}{
		{"show", "show", ""},
		{"WAIT", "wait", ""},
		{"Show Low, Arizona", "", "Show Low, Arizona"},
		{"help desk", "", "help desk"},
		{"era 2", "era", "2"},
		{"era", "", "era"},
		{"save", "", "save"},
		{"click 1 2", "click", "1 2"},
		{"Paris", "", "Paris"},
	}
	for _, tt := range tests {
		verb, rest := commandOf(tt.line)
		if verb != tt.verb || rest != tt.rest {
			t.Errorf("commandOf(%q) = (%q, %q), want (%q, %q)", tt.line, verb, rest, tt.verb, tt.rest)
		}
	}
}

func TestWriteBatchResults_CollidingNames(t *testing.T) {
	ctx := context.Background()
	result := func(req model.LocationRequest) *worker.BatchResult {
		hc, _ := stubResolver{}.Resolve(ctx, req)
		return &worker.BatchResult{
			Query:       req.DisplayName(),
			Request:     req,
			Context:     hc,
			ModernImage: "data:image/png;base64,aGVsbG8=",
		}
	}

	dir := t.TempDir()
	var out bytes.Buffer
	ok, failed := writeBatchResults(&out, dir, []*worker.BatchResult{
		result(model.NewNameRequest("Springfield")),
		result(model.NewNameRequest("springfield")),
		result(model.NewCoordinatesRequest(model.Coordinates{Lat: 40.6892, Lng: -74.0445})),
		result(model.NewCoordinatesRequest(model.Coordinates{Lat: 40.6892, Lng: 74.0445})),
	})
	if ok != 4 || failed != 0 {
		t.Fatalf("expected 4 saved results, got %d ok %d failed:\n%s", ok, failed, out.String())
	}

	for _, name := range []string{
		"springfield.json",
		"springfield-2.json",
		"lat-40-6892-lon-m74-0445.json",
		"lat-40-6892-lon-74-0445.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestBuildProviders_SeparateClientsPerRole(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "k"

	p, err := buildProviders(cfg, logger)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if p.textClient == p.imageClient {
		t.Fatal("expected separate HTTP clients for text and image calls")
	}
	if p.textClient.Transport == p.imageClient.Transport {
		t.Error("expected separate breaker transports for text and image calls")
	}
}
