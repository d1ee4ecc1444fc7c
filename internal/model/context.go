package model

// HistoricalContext is one validated resolver answer. It is replaced
// wholesale on every new location request and never mutated in place.
type HistoricalContext struct {
	Narrative           string       `json:"historicalNarrative"`
	SuggestedEras       []EraData    `json:"suggestedEras"`
	ModernImagePrompt   string       `json:"modernImagePrompt"`
	ResolvedCoordinates *Coordinates `json:"resolvedCoordinates,omitempty"`
}

// EraData is a named period with its image prompt and facts
type EraData struct {
	EraName               string   `json:"eraName"`
	HistoricalImagePrompt string   `json:"historicalImagePrompt"`
	KeyImageInsights      []string `json:"keyImageInsights"`
}

// FindEra returns the era with the given name
func (c *HistoricalContext) FindEra(name string) (EraData, bool) {
	if c == nil {
		return EraData{}, false
	}
	for _, era := range c.SuggestedEras {
		if era.EraName == name {
			return era, true
		}
	}
	return EraData{}, false
}

// Clone returns a deep copy so callers can't reach session-owned slices
func (c *HistoricalContext) Clone() *HistoricalContext {
	if c == nil {
		return nil
	}
	out := &HistoricalContext{
		Narrative:         c.Narrative,
		ModernImagePrompt: c.ModernImagePrompt,
		SuggestedEras:     make([]EraData, len(c.SuggestedEras)),
	}
	for i, era := range c.SuggestedEras {
		out.SuggestedEras[i] = era.Clone()
	}
	if c.ResolvedCoordinates != nil {
		rc := *c.ResolvedCoordinates
		out.ResolvedCoordinates = &rc
	}
	return out
}

// Clone returns a deep copy of the era
func (e EraData) Clone() EraData {
	e.KeyImageInsights = append([]string(nil), e.KeyImageInsights...)
	return e
}
