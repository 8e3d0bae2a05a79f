// Package worker runs bitcrush transforms off the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/bitcrush/internal/artifact"
	"github.com/JakeFAU/bitcrush/internal/metrics"
)

// Worker consumes transform tasks and replies on each task's result channel.
type Worker struct {
	queue       artifact.Queue
	transformer artifact.Transformer
	logger      *zap.Logger
}

// New constructs a Worker.
func New(queue artifact.Queue, transformer artifact.Transformer, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:       queue,
		transformer: transformer,
		logger:      logger,
	}
}

// Run blocks, consuming tasks until the context finishes or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, artifact.ErrQueueClosed) {
				w.logger.Debug("queue closed, worker exiting")
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.process(task)
	}
}

func (w *Worker) process(task artifact.Task) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	res := w.transform(task)
	metrics.ObserveTransform(res.Duration)
	if res.Err != nil {
		w.logger.Debug("transform failed",
			zap.String("source_type", task.SourceType),
			zap.Int("input_bytes", len(task.Input)),
			zap.Error(res.Err),
		)
	} else {
		w.logger.Debug("transform finished",
			zap.String("source_type", task.SourceType),
			zap.Int("output_bytes", res.Artifact.Len()),
			zap.Duration("duration", res.Duration),
		)
	}

	if task.Result == nil {
		return
	}
	select {
	case task.Result <- res:
	default:
		w.logger.Warn("result channel full, dropping transform result")
	}
}

func (w *Worker) transform(task artifact.Task) (res artifact.Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("panic recovered in transform", zap.Any("panic", rec))
			res = artifact.Result{Err: fmt.Errorf("%w: transform panicked: %v", artifact.ErrEncode, rec)}
		}
		res.Duration = time.Since(start)
	}()

	if w.transformer == nil {
		return artifact.Result{Err: errors.New("no transformer configured")}
	}
	a, bounds, err := w.transformer.Transform(task.Input)
	if err != nil {
		return artifact.Result{Err: err}
	}
	return artifact.Result{Artifact: a, Bounds: bounds}
}
