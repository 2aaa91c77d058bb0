// Package jobs runs background work for the daemon: queued report imports
// and cleanup of staged uploads.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobProcessor handles one batch of work per tick
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor until its context ends or Stop is called.
// The first batch runs as soon as Start is called.
type Worker struct {
	name      string
	processor JobProcessor
	interval  time.Duration
	logger    *zap.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewWorker(name string, processor JobProcessor, interval time.Duration, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		name:      name,
		processor: processor,
		interval:  interval,
		logger:    logger.With(zap.String("worker", name)),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	w.logger.Info("worker started", zap.Duration("interval", w.interval))
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", zap.String("reason", "context done"))
			return
		case <-w.stop:
			w.logger.Info("worker stopped", zap.String("reason", "stop requested"))
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs one batch. A panicking processor is logged and the loop goes on.
func (w *Worker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job processor panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	if err := w.processor.ProcessJobs(ctx); err != nil {
		w.logger.Error("job batch failed", zap.Error(err))
	}
}

// Stop signals the loop and waits for the current batch to finish. Calling
// it more than once is safe. It must not be called on a worker that was
// never started.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}
