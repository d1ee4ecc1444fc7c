package llm

import (
	"strings"
	"testing"

	"github.com/ppiankov/chronosight/internal/model"
)

func TestBuildLocationPrompt(t *testing.T) {
	byName := BuildLocationPrompt(model.NewNameRequest("Eiffel Tower"))
	if !strings.Contains(byName, `"Eiffel Tower"`) {
		t.Error("expected prompt to quote the location name")
	}
	if !strings.Contains(byName, "best estimate of its coordinates") {
		t.Error("expected name prompt to ask for coordinates")
	}

	byCoords := BuildLocationPrompt(model.NewCoordinatesRequest(model.Coordinates{Lat: 48.8584, Lng: 2.2945}))
	if !strings.Contains(byCoords, "latitude 48.8584, longitude 2.2945") {
		t.Error("expected prompt to carry the coordinates")
	}
	if !strings.Contains(byCoords, "already gives precise coordinates") {
		t.Error("expected coordinate prompt to echo coordinates")
	}

	for _, section := range []string{"historicalNarrative", "suggestedEras", "keyImageInsights", "modernImagePrompt"} {
		if !strings.Contains(byName, section) {
			t.Errorf("expected prompt to mention %s", section)
		}
	}
}
