package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/domain/job"
	"github.com/target/printmaker/internal/domain/model"
	apperrors "github.com/target/printmaker/internal/errors"
	obserrors "github.com/target/printmaker/internal/observability/errors"
	"github.com/target/printmaker/internal/observability/metrics"
	"github.com/target/printmaker/internal/observability/statsd"
)

// terminalWriteTimeout bounds the terminal writes made once the task context may be gone.
const terminalWriteTimeout = 10 * time.Second

var (
	errNoDestination = errors.New("no destination is up for queue")
	errNotSent       = errors.New("transmitter did not accept the request")
	errJobGone       = errors.New("job record no longer exists")
)

// DestinationFunc picks a destination for a processed job. It reports false when none is available.
type DestinationFunc func(ctx context.Context, queue string, j model.Job, pageCount int) (string, bool, error)

// RegisterFunc commits a transmitted request to the destination's load balancer.
type RegisterFunc func(ctx context.Context, req *model.PrintRequest) error

// TransmitFunc adapts a function to core.Transmitter.
type TransmitFunc func(ctx context.Context, req *model.PrintRequest) (bool, error)

func (f TransmitFunc) Send(ctx context.Context, req *model.PrintRequest) (bool, error) {
	return f(ctx, req)
}

// PipelineOptions groups dependencies for Pipeline.
type PipelineOptions struct {
	Jobs        core.JobStore         // Required
	Spool       core.Spool            // Required
	Analyzer    core.DocumentAnalyzer // Required
	Transmitter core.Transmitter      // Required
	Runner      core.TaskRunner       // Required

	// Queues resolves and registers destinations. Required unless both Resolve and Register are set.
	Queues   *QueueManager
	Resolve  DestinationFunc
	Register RegisterFunc

	IDs              core.IDGenerator // Optional: dashless UUIDs
	Validators       []Validator      // Optional: run before per-submission validators
	ColourMultiplier int              // Optional: model.DefaultColourMultiplier
	WatchInterval    time.Duration
	WatchTimeout     time.Duration
	PurgeBatchSize   int
	Now              func() time.Time
	Logger           *slog.Logger
	Metrics          statsd.Sink
}

// SubmitRequest is one document submission.
type SubmitRequest struct {
	Name    string
	User    string
	Queue   string
	Content io.Reader
	// Validators run after the pipeline's own validators.
	Validators []Validator
}

// Pipeline takes submitted documents through spooling, analysis, destination selection,
// validation and transmission. Every mutation goes through the JobStore; the pipeline keeps no
// job state of its own beyond the runner's cancellation table.
type Pipeline struct {
	jobs        core.JobStore
	spool       core.Spool
	analyzer    core.DocumentAnalyzer
	transmitter core.Transmitter
	runner      core.TaskRunner
	queues      *QueueManager
	resolve     DestinationFunc
	register    RegisterFunc
	ids         core.IDGenerator
	validators  []Validator
	multiplier  int
	purgeBatch  int
	now         func() time.Time
	watcher     *job.StageWatcher
	logger      *slog.Logger
	metrics     statsd.Sink

	closed atomic.Bool
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewPipeline constructs a Pipeline.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("JobStore is required")
	case opts.Spool == nil:
		return nil, errors.New("spool is required")
	case opts.Analyzer == nil:
		return nil, errors.New("DocumentAnalyzer is required")
	case opts.Transmitter == nil:
		return nil, errors.New("transmitter is required")
	case opts.Runner == nil:
		return nil, errors.New("task runner is required")
	case opts.Queues == nil && (opts.Resolve == nil || opts.Register == nil):
		return nil, errors.New("QueueManager or destination functions are required")
	}

	p := &Pipeline{
		jobs:        opts.Jobs,
		spool:       opts.Spool,
		analyzer:    opts.Analyzer,
		transmitter: opts.Transmitter,
		runner:      opts.Runner,
		queues:      opts.Queues,
		resolve:     opts.Resolve,
		register:    opts.Register,
		ids:         opts.IDs,
		validators:  slices.Clone(opts.Validators),
		multiplier:  opts.ColourMultiplier,
		purgeBatch:  opts.PurgeBatchSize,
		now:         opts.Now,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if p.resolve == nil {
		p.resolve = p.queues.GetDestination
	}
	if p.register == nil {
		p.register = p.queues.RegisterJob
	}
	if p.ids == nil {
		p.ids = uuidGenerator{}
	}
	if p.multiplier <= 0 {
		p.multiplier = model.DefaultColourMultiplier
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "pipeline")

	watcher, err := job.NewStageWatcher(job.WatcherOptions{
		Reader:   job.StageReaderFunc(p.Stage),
		Interval: opts.WatchInterval,
		Timeout:  opts.WatchTimeout,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("stage watcher: %w", err)
	}
	p.watcher = watcher
	return p, nil
}

// task carries one job through the asynchronous steps.
type task struct {
	job      model.Job
	queue    string
	validate Validator
	started  time.Time
}

// Submit spools the content, records the job as Received and queues it for processing.
// It returns once the job is queued; later failures are only visible through Stage or Watch.
// Failures after the record exists are recorded as Failed and returned with the job id.
func (p *Pipeline) Submit(ctx context.Context, in SubmitRequest) (*model.Job, error) {
	if p.closed.Load() {
		return nil, processError("", ErrPipelineClosed)
	}
	if err := validateSubmit(in); err != nil {
		return nil, &SubmitError{Code: SubmitCodeInvalid, Err: err}
	}
	if err := p.spool.EnsureDir(); err != nil {
		p.logger.ErrorContext(ctx, "spool directory unavailable", "error", err)
		return nil, storageError("", err)
	}

	id := p.ids.Generate()
	t := &task{
		job: model.Job{
			ID:        id,
			Name:      in.Name,
			User:      in.User,
			SpoolPath: p.spool.PathFor(id),
		},
		queue:    in.Queue,
		validate: Chain(slices.Concat(p.validators, in.Validators)...),
		started:  p.now(),
	}
	if _, err := p.jobs.Create(ctx, t.job); err != nil {
		p.logger.ErrorContext(ctx, "failed to create job record", "job_id", id, "error", err)
		return nil, storageError("", err)
	}

	if _, err := p.spool.Write(t.job.SpoolPath, in.Content); err != nil {
		p.fail(ctx, t, model.FailureProcess, fmt.Errorf("spool content: %w", err))
		return nil, processError(id, err)
	}

	if err := p.update(ctx, t, model.MarkReceived(p.now())); err != nil {
		p.fail(ctx, t, model.FailureProcess, err)
		return nil, storageError(id, err)
	}
	p.emit(t, model.StageReceived, "", nil)

	if err := p.runner.Submit(ctx, id, func(runCtx context.Context) { p.process(runCtx, t) }); err != nil {
		p.fail(ctx, t, model.FailureProcess, fmt.Errorf("queue job: %w", err))
		return nil, processError(id, err)
	}
	return &t.job, nil
}

func validateSubmit(in SubmitRequest) error {
	var errs []error
	if strings.TrimSpace(in.User) == "" {
		errs = append(errs, errors.New("user is required"))
	}
	if strings.TrimSpace(in.Queue) == "" {
		errs = append(errs, errors.New("queue is required"))
	}
	if in.Content == nil {
		errs = append(errs, errors.New("content is required"))
	}
	return errors.Join(errs...)
}

// process runs the asynchronous steps and records exactly one terminal outcome.
func (p *Pipeline) process(ctx context.Context, t *task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "job processing panicked", "job_id", t.job.ID, "panic", r)
			p.fail(ctx, t, "panic", fmt.Errorf("panic: %v", r))
		}
	}()

	if f := p.execute(ctx, t); f != nil {
		p.fail(ctx, t, f.label, f.err)
		return
	}
	p.emit(t, model.StagePrinted, "", nil)
}

type failure struct {
	label string
	err   error
}

func (p *Pipeline) execute(ctx context.Context, t *task) *failure {
	work, err := p.spool.Prepare(ctx, t.job.SpoolPath)
	if err != nil {
		return unexpected(fmt.Errorf("prepare spool file: %w", err))
	}
	defer func() {
		if rmErr := p.spool.Remove(work); rmErr != nil {
			p.logger.WarnContext(ctx, "failed to remove work file", "job_id", t.job.ID, "path", work, "error", rmErr)
		}
	}()

	analysis, err := p.analyzer.Analyze(ctx, work)
	if err != nil {
		return categorized(ctx, model.FailurePostscript, fmt.Errorf("analyze: %w", err))
	}
	processed, err := model.MarkProcessed(p.now(), analysis.PageCount, analysis.ColourPageCount)
	if err != nil {
		return categorized(ctx, model.FailurePostscript, err)
	}
	if err = p.update(ctx, t, processed); err != nil {
		return unexpected(err)
	}
	p.emit(t, model.StageProcessed, "", nil)

	dest, ok, err := p.resolve(ctx, t.queue, t.job, analysis.PageCount)
	if err != nil {
		return unexpected(fmt.Errorf("resolve destination: %w", err))
	}
	if !ok {
		return &failure{label: model.FailureInvalidDestination, err: fmt.Errorf("%w %s", errNoDestination, t.queue)}
	}

	req := &model.PrintRequest{
		Job:              t.job,
		Queue:            t.queue,
		File:             work,
		Destination:      dest,
		PageCount:        analysis.PageCount,
		ColourPageCount:  analysis.ColourPageCount,
		ColourMultiplier: p.multiplier,
	}
	verdict, err := t.validate(ctx, req)
	if err != nil {
		return unexpected(fmt.Errorf("validate: %w", err))
	}
	if !verdict.OK() {
		return &failure{label: verdict.Message, err: errors.New("rejected by validator")}
	}
	if err = ctx.Err(); err != nil {
		return unexpected(err)
	}

	sent, err := p.transmitter.Send(ctx, req)
	if err == nil && !sent {
		err = errNotSent
	}
	if err != nil {
		return categorized(ctx, model.FailurePrint, fmt.Errorf("send to %s: %w", dest, err))
	}

	// The destination accepted the job, so it is recorded and charged even if the task is
	// cancelled from here on.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	// Commit to the load balancer before Printed becomes visible so the next selection
	// already accounts for this job.
	if err = p.register(wctx, req); err != nil {
		p.logger.WarnContext(wctx, "failed to register job with load balancer",
			"job_id", t.job.ID, "queue", t.queue, "destination", dest, "error", err)
	}
	if err = p.update(wctx, t, model.MarkPrinted(p.now(), dest, req.QuotaCost())); err != nil {
		return unexpected(err)
	}
	p.logger.InfoContext(wctx, "job printed",
		"job_id", t.job.ID, "queue", t.queue, "destination", dest,
		"pages", req.PageCount, "colour_pages", req.ColourPageCount, "cost", req.QuotaCost())
	return nil
}

// categorized labels err unless the task was cancelled.
func categorized(ctx context.Context, label string, err error) *failure {
	if ctx.Err() != nil {
		return &failure{label: model.FailureCanceled, err: errors.Join(err, ctx.Err())}
	}
	return &failure{label: label, err: err}
}

func unexpected(err error) *failure {
	return &failure{label: FailureLabel(err), err: err}
}

// FailureLabel returns the generic label recorded for an uncategorized error. It never
// contains the error text.
func FailureLabel(err error) string {
	if errors.Is(err, context.Canceled) {
		return model.FailureCanceled
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return obserrors.Category(err)
}

func (p *Pipeline) update(ctx context.Context, t *task, m model.JobMutation) error {
	ok, err := p.jobs.Update(ctx, t.job.ID, m)
	if err != nil {
		return fmt.Errorf("update job %s: %w", t.job.ID, err)
	}
	if !ok {
		return errJobGone
	}
	return nil
}

// fail records a Failed stage with a context that survives cancellation of ctx.
func (p *Pipeline) fail(ctx context.Context, t *task, label string, cause error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	p.logger.ErrorContext(wctx, "job failed",
		"job_id", t.job.ID, "queue", t.queue, "failure", label, "error", cause)

	ok, err := p.jobs.Update(wctx, t.job.ID, model.MarkFailed(p.now(), label))
	switch {
	case err != nil:
		p.logger.ErrorContext(wctx, "failed to record job failure", "job_id", t.job.ID, "error", err)
	case !ok:
		p.logger.WarnContext(wctx, "job record missing while recording failure", "job_id", t.job.ID)
	}
	p.emit(t, model.StageFailed, label, cause)
}

func (p *Pipeline) emit(t *task, stage model.StageKind, label string, err error) {
	result := metrics.ResultSuccess
	if stage == model.StageFailed {
		result = metrics.ResultError
	}
	var elapsed time.Duration
	if stage.Terminal() {
		elapsed = p.now().Sub(t.started)
	}
	metrics.EmitJobLifecycle(p.metrics, metrics.JobMetric{
		Queue:    t.queue,
		Stage:    string(stage),
		Result:   result,
		Failure:  label,
		Duration: elapsed,
		Err:      err,
	})
}

// Stage derives the current stage of id. Unknown ids are NotFound, not an error.
func (p *Pipeline) Stage(ctx context.Context, id string) (model.Stage, error) {
	rec, err := p.jobs.Get(ctx, id)
	if errors.Is(err, model.ErrJobNotFound) {
		return model.NotFound, nil
	}
	if err != nil {
		return model.Stage{}, err
	}
	return model.DeriveStage(rec, p.spool.Size), nil
}

// Watch streams distinct stages of id until a terminal stage or the watch timeout.
// Call the returned function to stop early.
func (p *Pipeline) Watch(ctx context.Context, id string) (func(), <-chan job.Update) {
	return p.watcher.Watch(ctx, id)
}

// Purge flags every record older than maxAge deleted, one batch at a time.
func (p *Pipeline) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	return purgeAll(ctx, p.jobs, core.PurgeParams{MaxAge: maxAge, BatchSize: p.purgeBatch})
}

// Cancel interrupts the task of id if it is still queued or running. A cancelled task records
// Failed with model.FailureCanceled unless it already reached a terminal stage.
func (p *Pipeline) Cancel(id string) bool {
	ok := p.runner.Cancel(id)
	if !ok {
		p.logger.Debug("no in-flight task to cancel", "job_id", id)
	}
	return ok
}

// Shutdown stops intake, drains the runner until ctx is done and releases load balancers and
// watchers. Safe to call more than once.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.runner.Shutdown(ctx)
	p.watcher.StopAll()
	if p.queues != nil {
		p.queues.Release()
	}
	if err != nil {
		p.logger.WarnContext(ctx, "pipeline shutdown interrupted in-flight jobs", "error", err)
	}
	return err
}
