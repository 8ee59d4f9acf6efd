package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// DefaultSettleInterval is how long a watched directory must be quiet
// before pending files are ingested.
const DefaultSettleInterval = 2 * time.Second

// BatchFunc receives the outcome of each ingested batch.
type BatchFunc func(paths []string, report *domain.IngestReport, err error)

// WatchIngestor ingests files reported by a directory watcher. Paths are
// collected until no new path arrives for the settle interval, so a file
// being written in several steps is ingested once.
type WatchIngestor struct {
	ingestor driving.Ingestor
	settle   time.Duration
	onBatch  BatchFunc

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatchIngestor creates a watch loop. onBatch may be nil.
func NewWatchIngestor(ingestor driving.Ingestor, settle time.Duration, onBatch BatchFunc) *WatchIngestor {
	if settle <= 0 {
		settle = DefaultSettleInterval
	}
	return &WatchIngestor{
		ingestor: ingestor,
		settle:   settle,
		onBatch:  onBatch,
	}
}

// Run consumes events until ctx is done, Stop is called or events is
// closed. Pending paths are flushed on Stop and on close, not on
// cancellation. Calling Run while already running returns nil at once.
func (w *WatchIngestor) Run(ctx context.Context, events <-chan string) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.wg.Add(1)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.wg.Done()
	}()

	return w.loop(ctx, events, stopCh)
}

// Stop ends Run after flushing pending paths and waits for it to return.
func (w *WatchIngestor) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *WatchIngestor) loop(ctx context.Context, events <-chan string, stopCh <-chan struct{}) error {
	var pending []string
	seen := make(map[string]struct{})

	timer := time.NewTimer(w.settle)
	timer.Stop()
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := pending
		pending = nil
		clear(seen)
		w.ingest(ctx, batch)
	}

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				logger.Warn("watch: dropping %d pending files", len(pending))
			}
			return ctx.Err()
		case <-stopCh:
			flush()
			return nil
		case path, ok := <-events:
			if !ok {
				flush()
				return nil
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				pending = append(pending, path)
			}
			timer.Reset(w.settle)
		case <-timer.C:
			flush()
		}
	}
}

func (w *WatchIngestor) ingest(ctx context.Context, batch []string) {
	logger.Info("watch: ingesting %d files", len(batch))
	report, err := w.ingestor.IngestFiles(ctx, batch)
	if err != nil {
		logger.Warn("watch: %v", err)
	}
	if w.onBatch != nil {
		w.onBatch(batch, report, err)
	}
}
