package cli

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/output"
	"github.com/ppiankov/chronosight/internal/session"
)

var (
	exploreLat         float64
	exploreLng         float64
	exploreEra         string
	exploreOutDir      string
	exploreInteractive bool
)

// exploreCmd represents the explore command
var exploreCmd = &cobra.Command{
	Use:   "explore [place name | \"lat, lng\"]",
	Short: "Explore the history of one location",
	Long: `Explore resolves a location into a historical narrative and a set of eras,
then generates a present-day image and, for a chosen era, a historical one.

Without a query or coordinates explore starts an interactive session.

Example:
  chronosight explore "Statue of Liberty"
  chronosight explore "48.8584, 2.2945" --era 2
  chronosight explore --lat 41.8902 --lng 12.4922 --era "Roman Empire" --out-dir ./colosseum
  chronosight explore -i`,
	RunE: runExplore,
}

func init() {
	rootCmd.AddCommand(exploreCmd)

	exploreCmd.Flags().Float64Var(&exploreLat, "lat", 0, "latitude of a map click")
	exploreCmd.Flags().Float64Var(&exploreLng, "lng", 0, "longitude of a map click")
	exploreCmd.Flags().StringVar(&exploreEra, "era", "", "era to visualize, by number or name")
	exploreCmd.Flags().StringVar(&exploreOutDir, "out-dir", "", "write JSON, Markdown and images to this directory")
	exploreCmd.Flags().BoolVarP(&exploreInteractive, "interactive", "i", false, "start an interactive session")
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	query := strings.TrimSpace(strings.Join(args, " "))

	latSet, lngSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
	if latSet != lngSet {
		return fmt.Errorf("--lat and --lng must be given together")
	}
	if latSet && query != "" {
		return fmt.Errorf("give either a query or --lat/--lng, not both")
	}

	out := &lockedWriter{w: cmd.OutOrStdout()}
	term := output.NewTerminal(out, cfg.Output.Color)

	if exploreInteractive || (query == "" && !latSet) {
		live := &liveRenderer{term: term, w: out}
		s, err := newSession(cfg, logger, session.WithObserver(live.observe))
		if err != nil {
			return err
		}
		defer s.Close()
		return runInteractive(s, cmd.InOrStdin(), out, term)
	}

	s, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if st := s.State(); !st.Configured {
		term.RenderState(st)
		return st.Err
	}

	if latSet {
		err = s.SelectLocation(model.Coordinates{Lat: exploreLat, Lng: exploreLng})
	} else {
		err = s.Search(query)
	}
	if err != nil {
		return err
	}
	s.Wait()

	if exploreEra != "" && s.State().Context != nil {
		if err := selectEra(s, exploreEra); err != nil {
			return err
		}
		s.Wait()
	}

	st := s.State()
	term.RenderState(st)
	fmt.Fprintf(out, "\n%s\n", output.Disclaimer)

	if exploreOutDir != "" && st.Context != nil {
		if err := saveState(out, exploreOutDir, st); err != nil {
			return err
		}
	}

	if st.Context == nil && st.Err != nil {
		return st.Err
	}
	return nil
}

// selectEra picks an era of the loaded context by 1-based number or by
// case-insensitive name
func selectEra(s *session.Session, arg string) error {
	st := s.State()
	if st.Context == nil {
		return fmt.Errorf("no location loaded yet")
	}
	if st.Busy() {
		return fmt.Errorf("please wait for the current request to finish before selecting an era")
	}

	eras := st.Context.SuggestedEras
	var era *model.EraData
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(eras) {
			return fmt.Errorf("era %d out of range (1-%d)", n, len(eras))
		}
		era = &eras[n-1]
	} else {
		for i := range eras {
			if strings.EqualFold(eras[i].EraName, strings.TrimSpace(arg)) {
				era = &eras[i]
				break
			}
		}
	}
	if era == nil {
		return fmt.Errorf("unknown era %q", arg)
	}

	if !s.SelectEra(*era) {
		return fmt.Errorf("era %q cannot be selected now", era.EraName)
	}
	return nil
}

func saveState(w io.Writer, dir string, st session.State) error {
	base := output.Slug(st.LocationName)
	images, err := output.SaveState(dir, base, st)
	if err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	fmt.Fprintf(w, "✓ Saved %s (%d images)\n", filepath.Join(dir, base+".json"), len(images))
	return nil
}

const interactiveHelp = `Commands:
  <place name>          search for a place, e.g. "Machu Picchu"
  <lat>, <lng>          search by coordinates, e.g. "40.6892, -74.0445"
  click <lat> <lng>     pick a point as if clicked on the map
  era <number|name>     visualize one of the suggested eras
  show                  print the current view
  wait                  wait for pending requests, then print the view
  save <dir>            write JSON, Markdown and images to dir
  help                  show this help
  quit                  leave`

func runInteractive(s *session.Session, in io.Reader, out io.Writer, term *output.Terminal) error {
	term.RenderState(s.State())
	if st := s.State(); !st.Configured {
		return st.Err
	}
	fmt.Fprintf(out, "\nType 'help' for commands.\n")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		verb, rest := commandOf(line)

		var err error
		switch verb {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			fmt.Fprintln(out, interactiveHelp)
		case "show":
			term.RenderState(s.State())
		case "wait":
			s.Wait()
			term.RenderState(s.State())
		case "era":
			err = selectEra(s, rest)
		case "click":
			var c model.Coordinates
			if c, err = parseClick(rest); err == nil {
				err = s.SelectLocation(c)
			}
		case "save":
			if st := s.State(); st.Context == nil {
				err = fmt.Errorf("nothing to save yet")
			} else {
				err = saveState(out, rest, st)
			}
		default:
			err = s.Search(line)
		}

		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}

	s.Wait()
	return scanner.Err()
}

// commandOf splits an interactive line into a command and its argument.
// Bare commands only match a line with nothing after them and argument
// commands only match when an argument follows, so place names such as
// "Show Low, Arizona" fall through as searches.
func commandOf(line string) (verb, rest string) {
	first, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb = strings.ToLower(first); verb {
	case "quit", "exit", "q", "help", "?", "show", "wait":
		if rest == "" {
			return verb, ""
		}
	case "era", "click", "save":
		if rest != "" {
			return verb, rest
		}
	}
	return "", line
}

func parseClick(arg string) (model.Coordinates, error) {
	fields := strings.Fields(strings.ReplaceAll(arg, ",", " "))
	if len(fields) != 2 {
		return model.Coordinates{}, fmt.Errorf("usage: click <lat> <lng>")
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("invalid latitude %q", fields[0])
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("invalid longitude %q", fields[1])
	}
	return model.Coordinates{Lat: lat, Lng: lng}, nil
}

// liveRenderer prints progress as the session moves through its phases and
// the full view once nothing is loading anymore. It runs as a session
// observer, so calls arrive one at a time.
type liveRenderer struct {
	term *output.Terminal
	w    io.Writer
	prev session.State
}

func (r *liveRenderer) observe(st session.State) {
	prev := r.prev
	r.prev = st

	switch {
	case st.LoadingContext && !prev.LoadingContext:
		fmt.Fprintln(r.w, "\nFetching History...")
	case st.LoadingHistoricalImage && !prev.LoadingHistoricalImage && st.CurrentEra != nil:
		fmt.Fprintf(r.w, "\nGenerating %s...\n", st.CurrentEra.EraName)
	}

	if st.Context != nil && prev.LoadingContext && !st.LoadingContext {
		fmt.Fprintln(r.w)
		r.term.RenderState(st)
		return
	}
	if prev.Busy() && !st.Busy() {
		fmt.Fprintln(r.w)
		r.term.RenderState(st)
		fmt.Fprint(r.w, "> ")
	}
}

// lockedWriter serializes writes from the prompt loop and the observer
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
