package validate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const contextSchemaURL = "https://chronosight.schemas.local/historical-context.schema.json"

// contextSchema describes the resolver payload. resolvedCoordinates is
// deliberately absent: a malformed value is dropped, not rejected.
const contextSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["historicalNarrative", "suggestedEras", "modernImagePrompt"],
  "properties": {
    "historicalNarrative": {"type": "string", "minLength": 1},
    "modernImagePrompt": {"type": "string", "minLength": 1},
    "suggestedEras": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["eraName", "historicalImagePrompt", "keyImageInsights"],
        "properties": {
          "eraName": {"type": "string", "minLength": 1},
          "historicalImagePrompt": {"type": "string", "minLength": 1},
          "keyImageInsights": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(contextSchemaURL, strings.NewReader(contextSchema)); err != nil {
			schemaErr = fmt.Errorf("context schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(contextSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("context schema compile failed: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// describe turns a schema failure into a one-line reason pointing at the
// first offending field
func describe(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if field == "" {
		return fmt.Sprintf("AI response is invalid: %s", leaf.Message)
	}
	return fmt.Sprintf("AI response field '%s' is invalid: %s", field, leaf.Message)
}
