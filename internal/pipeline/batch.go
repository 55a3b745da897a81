package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/assetship/internal/config"
	"github.com/nao1215/assetship/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor ships several artifacts concurrently, one pipeline each.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchProcessor struct {
	// pipelineFactory creates the pipeline for the named artifact.
	// Each artifact gets a fresh pipeline because steps carry per-artifact settings.
	pipelineFactory func(name string) *Pipeline

	// concurrency is the maximum number of artifacts processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed artifact results.
	// Access is synchronized via mutex.
	results []*model.ArtifactResult
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of artifacts processed at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(name string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     config.DefaultConcurrency,
		results:         make([]*model.ArtifactResult, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch ships the named artifacts concurrently.
//
// Results are returned in the order of names, including the results of
// artifacts that failed; a failed artifact does not stop the others. The
// error return is only non-nil when the batch itself was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, names []string) ([]*model.ArtifactResult, error) {
	bp.logger.Debug("starting batch processing",
		"total_artifacts", len(names),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.ArtifactResult, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, name := range names {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			result, err := bp.run(ctx, name)

			bp.mu.Lock()
			bp.results[i] = result
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("artifact failed",
					"artifact", name,
					"error", err,
				)
				// Recorded in the result; the other artifacts keep going.
				return nil
			}

			bp.logger.Info("artifact shipped",
				"artifact", name,
				"duration", result.Duration,
			)
			return nil
		})
	}

	err := g.Wait()

	// Artifacts never started because the batch was cancelled.
	for i, r := range bp.results {
		if r == nil {
			r = model.NewArtifactResult(names[i])
			r.TimedOut = true
			r.SetError(err)
			bp.results[i] = r
		}
	}

	bp.logger.Debug("batch processing complete",
		"total_artifacts", len(names),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback ships the named artifacts and calls callback
// for each completed one, from the goroutine that processed it.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	names []string,
	callback func(result *model.ArtifactResult, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, name := range names {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			result, _ := bp.run(ctx, name) //nolint:errcheck // Error is stored in result
			callback(result, i)
			return nil
		})
	}

	return g.Wait()
}

func (bp *BatchProcessor) run(ctx context.Context, name string) (*model.ArtifactResult, error) {
	result := model.NewArtifactResult(name)
	start := time.Now()
	err := bp.pipelineFactory(name).Execute(ctx, result)
	result.Duration = time.Since(start)
	return result, err
}
