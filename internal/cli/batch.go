package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/output"
	"github.com/ppiankov/chronosight/internal/session"
	"github.com/ppiankov/chronosight/internal/worker"
)

var (
	batchWorkers int
	batchOutDir  string
	batchImages  bool
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Resolve many locations from a file in parallel",
	Long: `Batch resolves every location listed in a file (one place name or
"lat, lng" pair per line; blank lines and # comments are skipped) with a pool
of workers and writes one JSON and Markdown document per location.

Example:
  chronosight batch places.txt
  chronosight batch places.txt --workers 8 --out-dir ./history
  chronosight batch places.txt --images --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "./chronosight-out", "output directory")
	batchCmd.Flags().BoolVar(&batchImages, "images", false, "also generate the modern image of each location")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	cfg := loadConfig(cmd)

	workers := batchWorkers
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}

	runID := uuid.NewString()
	log := logger.With("run", runID)

	p, err := buildProviders(cfg, log)
	if err != nil {
		return model.AsError(err, model.KindConfiguration)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	var generator worker.Generator
	if batchImages {
		generator = p.generator
	}
	processor := worker.NewBatchProcessor(p.resolver, generator, workers, log)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Providers:    %s (text), %s (image)\n", p.textName, p.imageName)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", batchOutDir)
	fmt.Fprintf(os.Stderr, "  Run:          %s\n", runID)
	fmt.Fprintf(os.Stderr, "\n")

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount, failureCount := writeBatchResults(cmd.OutOrStdout(), batchOutDir, results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d locations\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", filepath.Clean(batchOutDir))
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d locations failed", failureCount)
	}
	return nil
}

// writeBatchResults saves each successful result under its own base name
// and reports one line per query. Locations whose names slug to the same
// base get numeric suffixes instead of overwriting each other.
func writeBatchResults(out io.Writer, dir string, results []*worker.BatchResult) (successCount, failureCount int) {
	used := make(map[string]bool, len(results))

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(out, "✗ %s: %v\n", result.Query, result.Error)
			continue
		}

		st := batchState(result)
		base := output.UniqueBase(used, output.Slug(st.LocationName))
		if _, err := output.SaveState(dir, base, st); err != nil {
			failureCount++
			fmt.Fprintf(out, "✗ %s: %v\n", result.Query, err)
			continue
		}

		successCount++
		line := fmt.Sprintf("✓ %s → %s (%d eras, %s)", st.LocationName, base, len(result.Context.SuggestedEras), result.Duration.Round(time.Millisecond))
		if result.ImageError != nil {
			line += fmt.Sprintf(" [image: %v]", result.ImageError)
		}
		fmt.Fprintln(out, line)
	}
	return successCount, failureCount
}

// batchState folds a batch result into the same view state an interactive
// session would reach, so it renders and saves the same way
func batchState(r *worker.BatchResult) session.State {
	return session.StateFromResult(r.Request, r.Context, r.ModernImage, r.ImageError)
}
