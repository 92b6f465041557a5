// Package balancer selects destinations for print requests. Each queue owns one live
// LoadBalancer, created from the queue's policy key through a Policies table and held by
// a Registry.
package balancer

import (
	"errors"

	"github.com/target/printmaker/internal/domain/model"
)

var (
	// ErrNoCandidates is returned by Select when given an empty candidate list.
	ErrNoCandidates = errors.New("no candidate destinations")
	// ErrUnknownPolicy is returned for a policy key with no registered factory.
	ErrUnknownPolicy = errors.New("unknown load balancer policy")
)

// LoadBalancer picks a destination among candidates and records commitments.
// Implementations must be safe for concurrent use.
type LoadBalancer interface {
	// Select returns one of candidates without changing internal state.
	Select(candidates []string, job model.Job, pageCount int) (string, error)
	// Register records that req was sent to req.Destination. It is called once per
	// assigned job, after Select.
	Register(req *model.PrintRequest)
}

// Releaser is implemented by balancers that hold resources to free when they are replaced.
type Releaser interface {
	Release()
}
