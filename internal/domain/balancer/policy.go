package balancer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Built-in policy keys.
const (
	PolicyDefault      = "default"
	PolicyRoundRobin   = "round_robin"
	PolicyShortestWait = "shortest_wait"
)

// Factory creates a fresh LoadBalancer for one queue.
type Factory func() LoadBalancer

// Policies maps policy keys to factories. New policies are added with Register.
type Policies struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// PoliciesOptions configures the built-in policies.
type PoliciesOptions struct {
	PageDuration time.Duration
	Now          func() time.Time
}

// NewPolicies returns a table with the built-in policies. "default" is round robin.
func NewPolicies(opts PoliciesOptions) *Policies {
	p := &Policies{factories: make(map[string]Factory)}
	roundRobin := func() LoadBalancer { return NewRoundRobin() }
	p.factories[PolicyDefault] = roundRobin
	p.factories[PolicyRoundRobin] = roundRobin
	p.factories[PolicyShortestWait] = func() LoadBalancer {
		return NewShortestWait(ShortestWaitOptions{PageDuration: opts.PageDuration, Now: opts.Now})
	}
	return p
}

// Register adds or replaces the factory for key.
func (p *Policies) Register(key string, f Factory) error {
	key = normalizeKey(key)
	if key == "" || f == nil {
		return fmt.Errorf("policy key and factory are required")
	}
	p.mu.Lock()
	p.factories[key] = f
	p.mu.Unlock()
	return nil
}

// New creates a LoadBalancer for key, or returns ErrUnknownPolicy.
func (p *Policies) New(key string) (LoadBalancer, error) {
	p.mu.RLock()
	f, ok := p.factories[normalizeKey(key)]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, key)
	}
	return f(), nil
}

// Known reports whether key has a factory.
func (p *Policies) Known(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.factories[normalizeKey(key)]
	return ok
}

// Keys lists registered keys in sorted order.
func (p *Policies) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.factories))
	for k := range p.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
