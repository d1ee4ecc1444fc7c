package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/chronosight/internal/narrative"
	"github.com/ppiankov/chronosight/internal/session"
)

const (
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiRed   = "\033[31m"
	ansiCyan  = "\033[36m"
	ansiReset = "\033[0m"
)

const (
	WelcomeTitle  = "Welcome to ChronoSight!"
	WelcomeHint   = "Enter a location or click on the map to begin your journey through time."
	Disclaimer    = "Note: Historical depictions are AI-generated interpretations and may not be perfectly accurate."
	noNarrative   = "No narrative available for this location."
	selectEraHint = "Select an era to visualize the past."
)

// Terminal renders session state as plain or ANSI-styled text
type Terminal struct {
	w     io.Writer
	color bool
}

// NewTerminal creates a terminal renderer
func NewTerminal(w io.Writer, color bool) *Terminal {
	return &Terminal{w: w, color: color}
}

func (t *Terminal) style(code, s string) string {
	if !t.color || s == "" {
		return s
	}
	return code + s + ansiReset
}

// RenderState prints the whole view: location, progress, error, narrative,
// era list and image slots
func (t *Terminal) RenderState(st session.State) {
	w := t.w

	if st.Err != nil {
		fmt.Fprintf(w, "%s %s\n\n", t.style(ansiRed, "Error:"), st.Err.Error())
	}
	if !st.Configured {
		return
	}

	if st.LocationName == "" && st.Context == nil && !st.LoadingContext {
		fmt.Fprintln(w, t.style(ansiBold, WelcomeTitle))
		fmt.Fprintln(w, WelcomeHint)
		return
	}

	fmt.Fprintf(w, "%s %s\n", t.style(ansiCyan, "Location:"), st.LocationName)
	if st.Coordinates != nil {
		fmt.Fprintf(w, "%s %.4f, %.4f\n", t.style(ansiCyan, "Coordinates:"), st.Coordinates.Lat, st.Coordinates.Lng)
	}
	if st.LoadingContext {
		fmt.Fprintln(w, t.style(ansiDim, "Fetching History..."))
		return
	}
	if st.Context == nil {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, t.style(ansiBold, "History of "+st.LocationName))
	fmt.Fprintln(w)
	t.renderNarrative(st.Context.Narrative)

	if st.CurrentEra != nil && len(st.CurrentEra.KeyImageInsights) > 0 {
		fmt.Fprintln(w, t.style(ansiBold, "Key Insights for this Era:"))
		for _, insight := range st.CurrentEra.KeyImageInsights {
			fmt.Fprintf(w, "  • %s\n", insight)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, t.style(ansiBold, "Select an Era:"))
	for i, era := range st.Context.SuggestedEras {
		marker := " "
		if st.CurrentEra != nil && st.CurrentEra.EraName == era.EraName {
			marker = "*"
		}
		fmt.Fprintf(w, "  %s %d. %s\n", marker, i+1, era.EraName)
	}
	if st.Busy() {
		fmt.Fprintln(w, t.style(ansiDim, "  (era selection unavailable while images are generating)"))
	} else if st.CurrentEra == nil {
		fmt.Fprintf(w, "  %s\n", t.style(ansiDim, selectEraHint))
	}
	fmt.Fprintln(w)

	t.renderImageSlot("Modern View", st.ModernImageURL, st.LoadingModernImage)
	if st.CurrentEra != nil || st.HistoricalImageURL != "" || st.LoadingHistoricalImage {
		title := "Historical View"
		if st.CurrentEra != nil {
			title = st.CurrentEra.EraName
		}
		t.renderImageSlot(title, st.HistoricalImageURL, st.LoadingHistoricalImage)
	}
}

func (t *Terminal) renderNarrative(text string) {
	paras := narrative.Format(text)
	if len(paras) == 0 {
		fmt.Fprintln(t.w, noNarrative)
		fmt.Fprintln(t.w)
		return
	}
	for _, p := range paras {
		fmt.Fprintf(t.w, "%s%s\n\n", t.style(ansiBold, p.Lead), p.Rest)
	}
}

func (t *Terminal) renderImageSlot(title, uri string, loading bool) {
	switch {
	case loading:
		fmt.Fprintf(t.w, "%s %s\n", t.style(ansiCyan, title+":"), t.style(ansiDim, "Generating "+title+"..."))
	case uri != "":
		fmt.Fprintf(t.w, "%s %s\n", t.style(ansiCyan, title+":"), DescribeDataURI(uri))
	default:
		fmt.Fprintf(t.w, "%s %s\n", t.style(ansiCyan, title+":"), "none")
	}
}

// DescribeDataURI summarizes an image reference as "image/png, 12.3 KB"
func DescribeDataURI(uri string) string {
	mimeType, data, err := DecodeDataURI(uri)
	if err != nil {
		return "unreadable image data"
	}
	return fmt.Sprintf("%s, %s", mimeType, humanBytes(len(data)))
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// RenderMarkdown renders the state as a Markdown document with first
// sentences in bold
func RenderMarkdown(st session.State, images map[string]string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", st.LocationName)
	if st.Coordinates != nil {
		fmt.Fprintf(&sb, "**Coordinates:** %.4f, %.4f\n\n", st.Coordinates.Lat, st.Coordinates.Lng)
	}

	if st.Context != nil {
		sb.WriteString("## History\n\n")
		paras := narrative.Format(st.Context.Narrative)
		if len(paras) == 0 {
			sb.WriteString(noNarrative + "\n\n")
		}
		for _, p := range paras {
			if p.HasLead() {
				fmt.Fprintf(&sb, "**%s**%s\n\n", p.Lead, p.Rest)
			} else {
				sb.WriteString(p.Rest + "\n\n")
			}
		}

		sb.WriteString("## Eras\n\n")
		for _, era := range st.Context.SuggestedEras {
			current := ""
			if st.CurrentEra != nil && st.CurrentEra.EraName == era.EraName {
				current = " (selected)"
			}
			fmt.Fprintf(&sb, "### %s%s\n\n", era.EraName, current)
			for _, insight := range era.KeyImageInsights {
				fmt.Fprintf(&sb, "- %s\n", insight)
			}
			sb.WriteString("\n")
		}
	}

	if path, ok := images["modern"]; ok {
		fmt.Fprintf(&sb, "## Modern View\n\n![Modern View](%s)\n\n", path)
	}
	if path, ok := images["historical"]; ok {
		title := "Historical View"
		if st.CurrentEra != nil {
			title = st.CurrentEra.EraName
		}
		fmt.Fprintf(&sb, "## %s\n\n![%s](%s)\n\n", title, title, path)
	}

	if st.Err != nil {
		fmt.Fprintf(&sb, "> **Error:** %s\n\n", st.Err.Error())
	}

	sb.WriteString("---\n\n*" + Disclaimer + "*\n")
	return sb.String()
}
