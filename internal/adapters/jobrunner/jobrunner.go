// Package jobrunner runs per-job tasks on a bounded, elastic worker pool with per-job cancellation.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/observability/metrics"
	"github.com/target/printmaker/internal/observability/statsd"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown has begun.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrDuplicateTask is returned when a task with the same id is still tracked.
	ErrDuplicateTask = errors.New("task already tracked")
)

// Pool defaults.
const (
	DefaultMinWorkers    = 5
	DefaultMaxWorkers    = 30
	DefaultQueueCapacity = 300
	DefaultIdleTimeout   = 10 * time.Minute
)

// Task is one unit of work. ctx is cancelled by Cancel or a forced shutdown.
type Task = func(ctx context.Context)

// PoolOptions configures NewPool.
type PoolOptions struct {
	MinWorkers    int
	MaxWorkers    int
	QueueCapacity int
	IdleTimeout   time.Duration
	Logger        *slog.Logger
	Metrics       statsd.Sink
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Workers int
	Active  int
	Queued  int
	Tracked int
}

type queued struct {
	id   string
	ctx  context.Context
	task Task
}

// Pool keeps MinWorkers goroutines alive and grows to MaxWorkers when the queue is full.
// Extra workers exit after IdleTimeout without work. Submit blocks once every worker is
// busy and the queue is at capacity.
type Pool struct {
	min, max int
	idle     time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink

	tasks  chan queued
	sem    *semaphore.Weighted
	quit   chan struct{}
	sealed chan struct{}
	wg     sync.WaitGroup
	active atomic.Int32

	baseCtx   context.Context
	cancelAll context.CancelFunc

	// gate is held shared by Submit and exclusively by Shutdown to seal the queue.
	gate     sync.RWMutex
	closed   bool
	quitOnce sync.Once

	mu      sync.Mutex
	workers int
	tracked map[string]context.CancelFunc
}

var _ core.TaskRunner = (*Pool)(nil)

// NewPool starts MinWorkers workers.
func NewPool(opts PoolOptions) *Pool {
	minW := opts.MinWorkers
	if minW <= 0 {
		minW = DefaultMinWorkers
	}
	maxW := opts.MaxWorkers
	if maxW <= 0 {
		maxW = DefaultMaxWorkers
	}
	if maxW < minW {
		maxW = minW
	}
	capacity := opts.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	baseCtx, cancelAll := context.WithCancel(context.Background())
	p := &Pool{
		min:       minW,
		max:       maxW,
		idle:      idle,
		logger:    logger.With("component", "worker_pool"),
		metrics:   opts.Metrics,
		tasks:     make(chan queued, capacity),
		sem:       semaphore.NewWeighted(int64(maxW)),
		quit:      make(chan struct{}),
		sealed:    make(chan struct{}),
		baseCtx:   baseCtx,
		cancelAll: cancelAll,
		tracked:   make(map[string]context.CancelFunc),
	}
	for range minW {
		p.spawn(nil)
	}
	return p
}

// Submit queues task under id. It returns once the task is queued or handed to a worker,
// blocking while the pool is saturated. ctx only bounds the wait.
func (p *Pool) Submit(ctx context.Context, id string, task Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	p.gate.RLock()
	defer p.gate.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	taskCtx, cancel := context.WithCancel(p.baseCtx)
	if err := p.track(id, cancel); err != nil {
		cancel()
		return err
	}
	item := queued{id: id, ctx: taskCtx, task: task}

	select {
	case p.tasks <- item:
		p.emitGauges()
		return nil
	default:
	}

	if p.spawn(&item) {
		return nil
	}

	select {
	case p.tasks <- item:
		p.emitGauges()
		return nil
	case <-ctx.Done():
		p.untrack(id)
		return fmt.Errorf("submit %s: %w", id, ctx.Err())
	case <-p.quit:
		p.untrack(id)
		return ErrPoolClosed
	}
}

// Cancel cancels the task tracked under id. It reports whether a task was found.
func (p *Pool) Cancel(id string) bool {
	p.mu.Lock()
	cancel, ok := p.tracked[id]
	p.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Stats returns current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Workers: p.workers,
		Active:  int(p.active.Load()),
		Queued:  len(p.tasks),
		Tracked: len(p.tracked),
	}
}

// Shutdown stops intake and lets workers drain the queue. If ctx ends first, every
// remaining task is cancelled and Shutdown waits for workers to return.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.quitOnce.Do(func() { close(p.quit) })

	p.gate.Lock()
	if !p.closed {
		p.closed = true
		close(p.sealed)
	}
	p.gate.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancelAll()
		return nil
	case <-ctx.Done():
		stats := p.Stats()
		p.logger.WarnContext(ctx, "shutdown deadline reached, cancelling tasks",
			"active", stats.Active, "queued", stats.Queued)
		p.cancelAll()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) track(id string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tracked[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, id)
	}
	p.tracked[id] = cancel
	return nil
}

func (p *Pool) untrack(id string) {
	p.mu.Lock()
	cancel, ok := p.tracked[id]
	delete(p.tracked, id)
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

// spawn starts a worker if below MaxWorkers, optionally with a first task.
func (p *Pool) spawn(first *queued) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	p.mu.Lock()
	p.workers++
	p.mu.Unlock()
	p.wg.Add(1)
	go p.worker(first)
	return true
}

func (p *Pool) worker(first *queued) {
	defer p.wg.Done()
	defer p.sem.Release(1)

	if first != nil {
		p.run(*first)
	}

	idle := time.NewTimer(p.idle)
	defer idle.Stop()
	for {
		select {
		case item := <-p.tasks:
			p.run(item)
			idle.Reset(p.idle)
		case <-p.quit:
			<-p.sealed
			p.drain()
			p.exit()
			return
		case <-idle.C:
			if p.retire() {
				return
			}
			idle.Reset(p.idle)
		}
	}
}

func (p *Pool) drain() {
	for {
		select {
		case item := <-p.tasks:
			p.run(item)
		default:
			return
		}
	}
}

// retire removes an idle worker above the minimum.
func (p *Pool) retire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.workers <= p.min {
		return false
	}
	p.workers--
	return true
}

func (p *Pool) exit() {
	p.mu.Lock()
	p.workers--
	p.mu.Unlock()
}

func (p *Pool) run(item queued) {
	p.active.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "task_id", item.id, "panic", r)
		}
		p.active.Add(-1)
		p.untrack(item.id)
		p.emitGauges()
	}()
	item.task(item.ctx)
}

func (p *Pool) emitGauges() {
	if p.metrics == nil {
		return
	}
	s := p.Stats()
	metrics.EmitPoolGauges(p.metrics, metrics.PoolMetric{Workers: s.Workers, Active: s.Active, Queued: s.Queued})
}
