package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/chronosight/internal/model"
)

func TestContextKey_NameNormalization(t *testing.T) {
	a := ContextKey(model.NewNameRequest("Statue of Liberty"), "gemini")
	b := ContextKey(model.NewNameRequest("  statue   OF liberty "), "gemini")
	if a != b {
		t.Errorf("expected equal keys for equivalent names, got %s and %s", a, b)
	}
	if !strings.HasPrefix(a, keyPrefix) {
		t.Errorf("expected key prefix %q, got %s", keyPrefix, a)
	}

	c := ContextKey(model.NewNameRequest("Statue of Liberty"), "openai")
	if a == c {
		t.Error("expected different scopes to produce different keys")
	}
}

func TestContextKey_Coordinates(t *testing.T) {
	a := ContextKey(model.NewCoordinatesRequest(model.Coordinates{Lat: 40.68921, Lng: -74.04451}), "s")
	b := ContextKey(model.NewCoordinatesRequest(model.Coordinates{Lat: 40.68924, Lng: -74.04449}), "s")
	if a != b {
		t.Error("expected coordinates equal to 4 decimals to share a key")
	}

	name := ContextKey(model.NewNameRequest("Lat: 40.6892, Lon: -74.0445"), "s")
	if a == name {
		t.Error("expected name and coordinate requests never to collide")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Paris", "paris"},
		{"  New   York  ", "new york"},
		{"STRASSE", "strasse"},
		{"Café", "café"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Errorf("expected hit with v, got %q %v", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)

	if _, ok := c.Get("k"); ok {
		t.Error("expected miss on empty cache")
	}
	if err := c.Set("k", []byte("value"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "value" {
		t.Errorf("expected hit with value, got %q %v", got, ok)
	}

	if err := c.Delete("k"); err != nil {
		t.Errorf("delete failed: %v", err)
	}
	if err := c.Delete("k"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestDiskCache_ExpiredAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	_ = c.Set("old", []byte("x"), -time.Second)
	if _, ok := c.Get("old"); ok {
		t.Error("expected expired entry to miss")
	}
	if _, err := os.Stat(c.path("old")); !os.IsNotExist(err) {
		t.Error("expected expired entry file to be removed")
	}

	if err := os.WriteFile(c.path("bad"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("expected corrupt entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	_ = disk.Set("k", []byte("from-disk"), 0)

	c := NewLayeredCache(time.Hour, dir, time.Hour)
	got, ok := c.Get("k")
	if !ok || string(got) != "from-disk" {
		t.Fatalf("expected disk hit, got %q %v", got, ok)
	}
	if _, ok := c.memory.Get("k"); !ok {
		t.Error("expected disk hit to be promoted to memory")
	}

	if err := c.Clear(); err != nil {
		t.Errorf("clear failed: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after clear")
	}
}

func TestNew(t *testing.T) {
	if c := New(false, time.Hour, ""); c != nil {
		t.Error("expected nil cache when disabled")
	}
	if _, ok := New(true, time.Hour, "").(*MemoryCache); !ok {
		t.Error("expected memory cache without a directory")
	}
	if _, ok := New(true, time.Hour, t.TempDir()).(*LayeredCache); !ok {
		t.Error("expected layered cache with a directory")
	}
}
