package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/chronosight/internal/model"
)

// Result is the outcome of the validation gate: exactly one of Context
// and Err is set
type Result struct {
	Context *model.HistoricalContext
	Err     *model.Error
}

// OK reports whether the payload was accepted
func (r Result) OK() bool {
	return r.Err == nil && r.Context != nil
}

// Unwrap returns the result in the usual (value, error) form
func (r Result) Unwrap() (*model.HistoricalContext, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Context, nil
}

var fencePattern = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

// StripCodeFence removes a surrounding markdown code fence, if any
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(s); m != nil && m[2] != "" {
		return strings.TrimSpace(m[2])
	}
	return s
}

// Context validates raw resolver output and converts it into the typed
// model. Any structural problem rejects the whole payload.
func Context(raw string) Result {
	doc, err := decode(raw)
	if err != nil {
		return malformed(err.Error())
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return malformed("AI response was not a valid JSON object after parsing.")
	}

	schema, err := loadSchema()
	if err != nil {
		return Result{Err: &model.Error{Kind: model.KindMalformedResponse, Op: "validate context", Msg: err.Error(), Err: err}}
	}
	if err := schema.Validate(obj); err != nil {
		return malformed(describe(err))
	}

	rawCoords := obj["resolvedCoordinates"]
	delete(obj, "resolvedCoordinates")

	payload, err := json.Marshal(obj)
	if err != nil {
		return malformed(fmt.Sprintf("re-encode response: %v", err))
	}
	var ctx model.HistoricalContext
	if err := json.Unmarshal(payload, &ctx); err != nil {
		return malformed(fmt.Sprintf("decode response: %v", err))
	}

	seen := make(map[string]bool, len(ctx.SuggestedEras))
	for _, era := range ctx.SuggestedEras {
		if seen[era.EraName] {
			return malformed(fmt.Sprintf("AI response 'suggestedEras' contains duplicate era '%s'.", era.EraName))
		}
		seen[era.EraName] = true
	}

	ctx.ResolvedCoordinates = resolvedCoordinates(rawCoords)

	return Result{Context: &ctx}
}

// decode parses the payload, tolerating a code fence or prose around the
// JSON object
func decode(raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("AI response was empty or not in the expected format.")
	}

	text := StripCodeFence(raw)

	var doc any
	err := json.Unmarshal([]byte(text), &doc)
	if err == nil {
		return doc, nil
	}

	// Prose around the object: take the outermost braces
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if json.Unmarshal([]byte(text[start:end+1]), &doc) == nil {
				return doc, nil
			}
		}
	}

	return nil, fmt.Errorf("Invalid JSON response from AI: %v. Ensure the AI is strictly returning JSON.", err)
}

// resolvedCoordinates keeps a well-formed, in-range value and drops
// anything else
func resolvedCoordinates(v any) *model.Coordinates {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	lat, latOK := obj["lat"].(float64)
	lng, lngOK := obj["lng"].(float64)
	if !latOK || !lngOK {
		return nil
	}
	c := model.Coordinates{Lat: lat, Lng: lng}
	if Coordinates(c) != nil {
		return nil
	}
	return &c
}

func malformed(reason string) Result {
	return Result{Err: &model.Error{
		Kind: model.KindMalformedResponse,
		Op:   "validate context",
		Msg:  "The AI provided data in an unexpected format. Details: " + reason,
	}}
}
