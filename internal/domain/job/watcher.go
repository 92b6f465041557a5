// Package job holds job-level domain behavior shared by the pipeline and its callers.
package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/target/printmaker/internal/domain/model"
)

var (
	// ErrReaderRequired indicates a watcher cannot be constructed without a stage reader.
	ErrReaderRequired = errors.New("stage reader is required")
	// ErrWatchTimeout is delivered when no terminal stage was observed before the watch timeout.
	ErrWatchTimeout = errors.New("stage watch timed out")
)

// Default polling parameters.
const (
	DefaultWatchInterval = time.Second
	DefaultWatchTimeout  = 120 * time.Second
)

// StageReader returns the current derived stage of a job.
type StageReader interface {
	Stage(ctx context.Context, id string) (model.Stage, error)
}

// StageReaderFunc adapts a function to StageReader.
type StageReaderFunc func(ctx context.Context, id string) (model.Stage, error)

func (f StageReaderFunc) Stage(ctx context.Context, id string) (model.Stage, error) {
	return f(ctx, id)
}

// Update is one element of a watch. Exactly one of Stage or Err is meaningful.
type Update struct {
	Stage model.Stage
	Err   error
}

// Watcher produces stage transitions for a job.
type Watcher interface {
	// Watch starts an independent poll loop for id. The channel yields each distinct stage,
	// ends after a terminal stage or an ErrWatchTimeout update, and is closed when the loop exits.
	// The returned func stops the loop.
	Watch(ctx context.Context, id string) (func(), <-chan Update)
	StopAll()
}

// WatcherOptions configures NewStageWatcher.
type WatcherOptions struct {
	Reader   StageReader
	Interval time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// StageWatcher polls a StageReader at a fixed interval.
type StageWatcher struct {
	reader   StageReader
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	cancels map[uint64]context.CancelFunc
	wg      sync.WaitGroup
}

var _ Watcher = (*StageWatcher)(nil)

// NewStageWatcher constructs a StageWatcher.
func NewStageWatcher(opts WatcherOptions) (*StageWatcher, error) {
	if opts.Reader == nil {
		return nil, ErrReaderRequired
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultWatchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StageWatcher{
		reader:   opts.Reader,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "stage_watcher"),
		cancels:  make(map[uint64]context.CancelFunc),
	}, nil
}

func (w *StageWatcher) Watch(ctx context.Context, id string) (func(), <-chan Update) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Update, 1)

	w.mu.Lock()
	key := w.nextID
	w.nextID++
	w.cancels[key] = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer close(ch)
		defer w.forget(key)
		w.pollLoop(ctx, id, ch)
	}()

	var once sync.Once
	unsub := func() {
		once.Do(cancel)
	}
	return unsub, ch
}

// StopAll cancels every active watch and waits for the poll loops to exit.
func (w *StageWatcher) StopAll() {
	w.mu.Lock()
	for key, cancel := range w.cancels {
		cancel()
		delete(w.cancels, key)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *StageWatcher) forget(key uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cancel, ok := w.cancels[key]; ok {
		cancel()
		delete(w.cancels, key)
	}
}

func (w *StageWatcher) pollLoop(ctx context.Context, id string, ch chan Update) {
	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var last model.Stage
	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		stage, err := w.reader.Stage(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			w.logger.WarnContext(ctx, "stage read failed", "job_id", id, "error", err)
		case first || !stage.Equal(last):
			first = false
			last = stage
			if !w.send(ctx, ch, deadline.C, id, Update{Stage: stage}) {
				return
			}
			if stage.Terminal() {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			w.logger.InfoContext(ctx, "stage watch timed out", "job_id", id, "last_stage", string(last.Kind))
			w.deliverTimeout(ctx, ch)
			return
		case <-ticker.C:
		}
	}
}

// send delivers u until ctx ends or the watch deadline passes. It reports whether polling
// should continue.
func (w *StageWatcher) send(ctx context.Context, ch chan Update, deadline <-chan time.Time, id string, u Update) bool {
	select {
	case ch <- u:
		return true
	case <-ctx.Done():
		return false
	case <-deadline:
		w.logger.InfoContext(ctx, "stage watch timed out with unread updates", "job_id", id)
		w.deliverTimeout(ctx, ch)
		return false
	}
}

// deliverTimeout leaves ErrWatchTimeout as the final update. A subscriber that has stopped
// reading gets one interval of grace, after which its unread update is replaced.
func (w *StageWatcher) deliverTimeout(ctx context.Context, ch chan Update) {
	timeout := Update{Err: ErrWatchTimeout}
	grace := time.NewTimer(w.interval)
	defer grace.Stop()
	select {
	case ch <- timeout:
		return
	case <-ctx.Done():
		return
	case <-grace.C:
	}
	// pollLoop is the only sender, so after the drain there is room for the timeout.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- timeout:
	default:
	}
}
