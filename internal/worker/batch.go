package worker

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/chronosight/internal/model"
	"github.com/ppiankov/chronosight/internal/validate"
)

// Resolver resolves one location into a historical context
type Resolver interface {
	Resolve(ctx context.Context, req model.LocationRequest) (*model.HistoricalContext, error)
}

// Generator renders one image prompt into a data URI
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ResolveJob resolves one query and, when a generator is set, renders its
// modern image
type ResolveJob struct {
	Query     string
	Resolver  Resolver
	Generator Generator
	Logger    *slog.Logger
}

// Execute executes the resolve job
func (j *ResolveJob) Execute(ctx context.Context) Result {
	start := time.Now()
	res := &BatchResult{Query: j.Query}

	req, err := model.ParseQuery(j.Query)
	if err == nil {
		err = validate.Request(req)
	}
	if err != nil {
		res.Error = err
		return res
	}
	res.Request = req

	hc, err := j.Resolver.Resolve(ctx, req)
	if err != nil {
		res.Error = err
		res.Duration = time.Since(start)
		j.log().Warn("resolve failed", "query", j.Query, "error", err)
		return res
	}
	res.Context = hc

	if j.Generator != nil && strings.TrimSpace(hc.ModernImagePrompt) != "" {
		uri, err := j.Generator.Generate(ctx, hc.ModernImagePrompt)
		if err != nil {
			res.ImageError = err
			j.log().Warn("modern image failed", "query", j.Query, "error", err)
		} else {
			res.ModernImage = uri
		}
	}

	res.Duration = time.Since(start)
	j.log().Info("resolved", "query", j.Query, "eras", len(hc.SuggestedEras), "duration", res.Duration)
	return res
}

func (j *ResolveJob) log() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}

// BatchResult represents the outcome of one query
type BatchResult struct {
	Query       string
	Request     model.LocationRequest
	Context     *model.HistoricalContext
	ModernImage string
	ImageError  error
	Error       error
	Duration    time.Duration
}

// GetError returns the resolve error. Image failures do not fail the query.
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor resolves many queries concurrently
type BatchProcessor struct {
	resolver    Resolver
	generator   Generator
	concurrency int
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor. generator may be nil to
// skip images.
func NewBatchProcessor(resolver Resolver, generator Generator, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		resolver:    resolver,
		generator:   generator,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Process resolves the queries and returns one result per query, in input
// order. Queries not started before ctx is cancelled report ctx's error.
func (b *BatchProcessor) Process(ctx context.Context, queries []string) []*BatchResult {
	if len(queries) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	submitted := 0
	for _, q := range queries {
		ok := pool.Submit(&ResolveJob{
			Query:     q,
			Resolver:  b.resolver,
			Generator: b.generator,
			Logger:    b.logger,
		})
		if !ok {
			break
		}
		submitted++
	}

	results := pool.Wait()

	out := make([]*BatchResult, len(queries))
	for i, q := range queries {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*BatchResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("query not processed")
		}
		out[i] = &BatchResult{Query: q, Error: err}
	}

	b.logger.Debug("batch finished", "queries", len(queries), "submitted", submitted)
	return out
}

// ProcessFile reads queries from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BatchResult, error) {
	queries, err := ReadQueriesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}

	return b.Process(ctx, queries), nil
}

// ReadQueriesFromFile reads search queries from a file (one per line).
// Blank lines and lines starting with # are skipped; duplicates are dropped.
func ReadQueriesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var queries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			queries = append(queries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return queries, nil
}
