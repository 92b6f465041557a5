package balancer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/target/printmaker/internal/domain/model"
)

// PolicyStore is the subset of queue configuration the registry reads and writes.
type PolicyStore interface {
	GetQueue(ctx context.Context, id string) (*model.Queue, error)
	SetQueuePolicy(ctx context.Context, id, policy string) (bool, error)
}

// RegistryOptions configures NewRegistry.
type RegistryOptions struct {
	Store    PolicyStore
	Policies *Policies
	Logger   *slog.Logger
}

type entry struct {
	policy string
	lb     LoadBalancer
}

// Registry owns the live LoadBalancer for each queue. Instances are created lazily from
// the queue's stored policy and replaced when the policy changes.
type Registry struct {
	store    PolicyStore
	policies *Policies
	logger   *slog.Logger

	group singleflight.Group

	mu   sync.RWMutex
	live map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Store == nil {
		return nil, errors.New("policy store is required")
	}
	policies := opts.Policies
	if policies == nil {
		policies = NewPolicies(PoliciesOptions{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:    opts.Store,
		policies: policies,
		logger:   logger.With("component", "balancer_registry"),
		live:     make(map[string]entry),
	}, nil
}

// Policies returns the policy table used to build instances.
func (r *Registry) Policies() *Policies {
	return r.policies
}

// Get returns the live balancer for queue, refreshing it from storage when absent.
// The boolean is false when the queue does not exist.
func (r *Registry) Get(ctx context.Context, queue string) (LoadBalancer, bool, error) {
	if lb, ok := r.Lookup(queue); ok {
		return lb, true, nil
	}
	return r.Refresh(ctx, queue)
}

// Lookup returns the cached balancer for queue without touching storage.
func (r *Registry) Lookup(queue string) (LoadBalancer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.live[queue]
	return e.lb, ok
}

type refreshResult struct {
	lb    LoadBalancer
	found bool
}

// Refresh rereads the queue's policy. An unchanged policy keeps the existing instance and
// its state; a changed one replaces it. Concurrent refreshes of one queue share a read.
func (r *Registry) Refresh(ctx context.Context, queue string) (LoadBalancer, bool, error) {
	v, err, _ := r.group.Do(queue, func() (any, error) {
		q, err := r.store.GetQueue(ctx, queue)
		if errors.Is(err, model.ErrQueueNotFound) {
			r.Forget(queue)
			return refreshResult{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load queue %s: %w", queue, err)
		}
		lb, err := r.bind(queue, q.Policy)
		if err != nil {
			r.logger.ErrorContext(ctx, "queue has unknown load balancer policy",
				"queue", queue, "policy", q.Policy, "error", err)
			return nil, err
		}
		return refreshResult{lb: lb, found: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res, _ := v.(refreshResult)
	return res.lb, res.found, nil
}

// SetPolicy validates and persists a new policy for queue, then swaps the live instance.
// It reports whether the stored policy changed. Unknown keys and queues leave everything as is.
func (r *Registry) SetPolicy(ctx context.Context, queue, policy string) (bool, error) {
	policy = normalizeKey(policy)
	if !r.policies.Known(policy) {
		return false, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
	changed, err := r.store.SetQueuePolicy(ctx, queue, policy)
	if err != nil {
		return false, err
	}
	if _, err := r.bind(queue, policy); err != nil {
		return changed, err
	}
	r.logger.InfoContext(ctx, "load balancer policy set", "queue", queue, "policy", policy, "changed", changed)
	return changed, nil
}

// Forget drops and releases the live balancer for queue.
func (r *Registry) Forget(queue string) {
	r.mu.Lock()
	e, ok := r.live[queue]
	delete(r.live, queue)
	r.mu.Unlock()
	if ok {
		release(e.lb)
	}
}

// ReleaseAll drops every live balancer.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	old := r.live
	r.live = make(map[string]entry)
	r.mu.Unlock()
	for _, e := range old {
		release(e.lb)
	}
}

// bind makes policy the live instance for queue, keeping the current one if it already matches.
func (r *Registry) bind(queue, policy string) (LoadBalancer, error) {
	policy = normalizeKey(policy)
	r.mu.RLock()
	cur, ok := r.live[queue]
	r.mu.RUnlock()
	if ok && cur.policy == policy {
		return cur.lb, nil
	}

	lb, err := r.policies.New(policy)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	cur, ok = r.live[queue]
	if ok && cur.policy == policy {
		r.mu.Unlock()
		return cur.lb, nil
	}
	r.live[queue] = entry{policy: policy, lb: lb}
	r.mu.Unlock()

	if ok {
		release(cur.lb)
	}
	return lb, nil
}

func release(lb LoadBalancer) {
	if rel, ok := lb.(Releaser); ok {
		rel.Release()
	}
}
