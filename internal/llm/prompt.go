package llm

import (
	"fmt"

	"github.com/ppiankov/chronosight/internal/model"
)

// SystemInstruction pins the resolver to a single JSON object
const SystemInstruction = `You are ChronoSight, an AI historian and visualizer. You provide structured historical context and image generation prompts for a geographical location.
Respond ONLY with a single valid JSON object. Do not add explanatory text, conversational filler or markdown fences around it.
The JSON object must follow this schema:
{
  "historicalNarrative": "string (250-450 words)",
  "suggestedEras": [
    {
      "eraName": "string (e.g. 'Victorian Era, circa 1880')",
      "historicalImagePrompt": "string (detailed prompt, 60-120 words)",
      "keyImageInsights": ["string (fact, max 25 words)", "string (fact, max 25 words)"]
    }
  ],
  "modernImagePrompt": "string (detailed prompt, 60-120 words)",
  "resolvedCoordinates": { "lat": number, "lng": number } (optional)
}`

// BuildLocationPrompt constructs the user prompt for a location request
func BuildLocationPrompt(req model.LocationRequest) string {
	id := req.Identifier()

	coordsRule := fmt.Sprintf("The input %q already gives precise coordinates; repeat them as `resolvedCoordinates`.", id)
	if req.Kind == model.ByName {
		coordsRule = fmt.Sprintf("The input %q is a name or address. Give your best estimate of its coordinates as "+
			"`resolvedCoordinates: { \"lat\": number, \"lng\": number }`. If you cannot determine them, omit the field or set it to null.", id)
	}

	return fmt.Sprintf(`For the location identified as %q:

1. resolvedCoordinates: %s

2. historicalNarrative: a concise narrative (250-450 words) about this specific location. Cover key historical events, architectural evolution where applicable, and significant social or cultural shifts. For generic locations (open ocean, remote desert) describe the general human activity or natural history of such an area over time. Separate paragraphs with a blank line.

3. suggestedEras: 2 to 3 unique, historically significant and visually distinct eras for the location, e.g. "Victorian Era, circa 1880", "Roman Settlement, AD 150", "Art Deco Period, 1930s". For each era give:
   a. eraName: the name of the era.
   b. historicalImagePrompt: a 60-120 word prompt for an image model showing how THE EXACT SPOT may have looked in this era: architecture, structures, activities, transport, attire, vegetation, landscape, atmosphere and time of day. For natural scenes emphasise flora, fauna, geology and weather of the era.
   c. keyImageInsights: 2-3 brief facts (max 25 words each) about visual elements or context of the era at this location.

4. modernImagePrompt: a 60-120 word prompt for a photorealistic present-day street-level or landscape view of THE EXACT SPOT, describing current architecture, environment and typical elements.

Make every prompt descriptive enough to produce compelling, distinct and historically plausible images. For very generic locations adapt the prompts (a period sailing ship, a modern research vessel, natural phenomena).
Answer strictly in the JSON format given in the system instruction.`, id, coordsRule)
}
