package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/domain/balancer"
	"github.com/target/printmaker/internal/domain/model"
)

// QueueManagerOptions groups dependencies for QueueManager.
type QueueManagerOptions struct {
	Queues   core.QueueStore    // Required
	Registry *balancer.Registry // Required
	Logger   *slog.Logger       // Optional
}

// QueueManager resolves destinations for processed jobs through the queue's load balancer.
type QueueManager struct {
	queues   core.QueueStore
	registry *balancer.Registry
	logger   *slog.Logger
}

// NewQueueManager constructs a QueueManager.
func NewQueueManager(opts QueueManagerOptions) (*QueueManager, error) {
	if opts.Queues == nil {
		return nil, errors.New("QueueStore is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("load balancer registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueManager{
		queues:   opts.Queues,
		registry: opts.Registry,
		logger:   logger.With("component", "queue_manager"),
	}, nil
}

// GetDestination selects an up destination of queue for job. It reports false when the queue
// is unknown or has no destination marked up; select is never called with no candidates.
func (m *QueueManager) GetDestination(
	ctx context.Context,
	queue string,
	job model.Job,
	pageCount int,
) (string, bool, error) {
	candidates, err := m.queues.ListUpDestinations(ctx, queue)
	if err != nil {
		return "", false, fmt.Errorf("list destinations of %s: %w", queue, err)
	}
	if len(candidates) == 0 {
		return "", false, nil
	}

	lb, ok, err := m.registry.Get(ctx, queue)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	dest, err := lb.Select(candidates, job, pageCount)
	if err != nil {
		return "", false, fmt.Errorf("select destination in %s: %w", queue, err)
	}
	return dest, true, nil
}

// RegisterJob commits req to the load balancer bound to its destination's queue.
func (m *QueueManager) RegisterJob(ctx context.Context, req *model.PrintRequest) error {
	queue := req.Queue
	if queue == "" {
		d, err := m.queues.GetDestination(ctx, req.Destination)
		if err != nil {
			return fmt.Errorf("resolve queue of %s: %w", req.Destination, err)
		}
		queue = d.QueueID
	}

	lb, ok := m.registry.Lookup(queue)
	if !ok {
		var err error
		lb, ok, err = m.registry.Get(ctx, queue)
		if err != nil {
			return err
		}
	}
	if !ok {
		m.logger.WarnContext(ctx, "no load balancer bound to queue",
			"queue", queue, "job_id", req.Job.ID, "destination", req.Destination)
		return nil
	}
	lb.Register(req)
	return nil
}

// SetPolicy changes the load balancer policy of queue. See balancer.Registry.SetPolicy.
func (m *QueueManager) SetPolicy(ctx context.Context, queue, policy string) (bool, error) {
	return m.registry.SetPolicy(ctx, queue, policy)
}

// Release drops every live load balancer.
func (m *QueueManager) Release() {
	m.registry.ReleaseAll()
}
