package session

import (
	"strings"

	"github.com/ppiankov/chronosight/internal/model"
)

// Phase is the coarse view of a State derived from its flags
type Phase int

const (
	Idle Phase = iota
	ResolvingContext
	ContextReady
	EraSelected
	Failed
	Unconfigured
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case ResolvingContext:
		return "ResolvingContext"
	case ContextReady:
		return "ContextReady"
	case EraSelected:
		return "EraSelected"
	case Failed:
		return "Failed"
	case Unconfigured:
		return "Unconfigured"
	default:
		return "Unknown"
	}
}

// State is the session view state. The three loading flags are
// independent; any combination can be observed while fetches overlap.
type State struct {
	Configured bool

	LocationName string
	Coordinates  *model.Coordinates // nil while a named search is unresolved

	Context    *model.HistoricalContext
	CurrentEra *model.EraData

	ModernImageURL     string
	HistoricalImageURL string

	LoadingContext         bool
	LoadingModernImage     bool
	LoadingHistoricalImage bool

	Err *model.Error
}

// Busy is the OR of the loading flags. It gates era selection in the
// presentation layer, never new location requests.
func (s State) Busy() bool {
	return s.LoadingContext || s.LoadingModernImage || s.LoadingHistoricalImage
}

// Phase summarizes the flags. An error wins over everything but a
// missing configuration; committed partial data stays readable.
func (s State) Phase() Phase {
	switch {
	case !s.Configured:
		return Unconfigured
	case s.Err != nil:
		return Failed
	case s.LoadingContext:
		return ResolvingContext
	case s.CurrentEra != nil:
		return EraSelected
	case s.Context != nil:
		return ContextReady
	default:
		return Idle
	}
}

// Clone returns a deep copy safe to hand out of the session
func (s State) Clone() State {
	out := s
	if s.Coordinates != nil {
		c := *s.Coordinates
		out.Coordinates = &c
	}
	out.Context = s.Context.Clone()
	if s.CurrentEra != nil {
		era := s.CurrentEra.Clone()
		out.CurrentEra = &era
	}
	if s.Err != nil {
		e := *s.Err
		out.Err = &e
	}
	return out
}

// beginRequest resets the state for a new location. Coordinates and the
// display name are set before any network call so the pick shows at once.
func (s *State) beginRequest(req model.LocationRequest) {
	s.Context = nil
	s.CurrentEra = nil
	s.ModernImageURL = ""
	s.HistoricalImageURL = ""
	s.Err = nil
	s.LoadingContext = true
	s.LoadingModernImage = false
	s.LoadingHistoricalImage = false

	s.LocationName = req.DisplayName()
	if req.Kind == model.ByCoordinates {
		c := req.Coordinates
		s.Coordinates = &c
	} else {
		s.Coordinates = nil
	}
}

// applyContext stores a resolver answer and returns the modern image
// prompt to generate next, or "" when there is none. Applying the same
// answer twice leaves the same state.
func (s *State) applyContext(req model.LocationRequest, hc *model.HistoricalContext) string {
	s.Context = hc
	s.LoadingContext = false

	// The explicit name keeps priority for display.
	if req.Kind == model.ByName && hc.ResolvedCoordinates != nil && !hc.ResolvedCoordinates.IsZero() {
		c := *hc.ResolvedCoordinates
		s.Coordinates = &c
	}

	prompt := hc.ModernImagePrompt
	if strings.TrimSpace(prompt) == "" {
		return ""
	}
	s.LoadingModernImage = true
	return prompt
}

// applyContextError records a resolver failure. Coordinates and name stay
// as set by beginRequest.
func (s *State) applyContextError(err error) {
	s.Err = model.AsError(err, model.KindUpstream)
	s.LoadingContext = false
	s.LoadingModernImage = false
}

func (s *State) applyModernImage(uri string, err error) {
	s.LoadingModernImage = false
	if err != nil {
		s.Err = model.AsError(err, model.KindUpstream)
		return
	}
	s.ModernImageURL = uri
}

// beginEra makes era current and returns the prompt to render. It reports
// false, leaving the state untouched, when no context is loaded or the era
// is not one of its suggestions.
func (s *State) beginEra(era model.EraData) (string, bool) {
	found, ok := s.Context.FindEra(era.EraName)
	if !ok {
		return "", false
	}
	s.CurrentEra = &found
	s.HistoricalImageURL = ""
	s.Err = nil
	s.LoadingHistoricalImage = true
	return found.HistoricalImagePrompt, true
}

func (s *State) applyHistoricalImage(uri string, err error) {
	s.LoadingHistoricalImage = false
	if err != nil {
		s.Err = model.AsError(err, model.KindUpstream)
		return
	}
	s.HistoricalImageURL = uri
}

// StateFromResult is the state a session reaches when req resolves to hc
// and the modern image fetch returns uri or err. Batch runs use it to fold
// their results through the same transitions as a live session.
func StateFromResult(req model.LocationRequest, hc *model.HistoricalContext, uri string, err error) State {
	st := State{Configured: true}
	st.beginRequest(req)
	if hc == nil {
		st.LoadingContext = false
		return st
	}
	if prompt := st.applyContext(req, hc.Clone()); prompt != "" {
		st.applyModernImage(uri, err)
	}
	return st
}
