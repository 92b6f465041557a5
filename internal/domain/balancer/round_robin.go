package balancer

import (
	"slices"
	"sync"

	"github.com/target/printmaker/internal/domain/model"
)

// RoundRobin cycles through candidates in order, starting after the last registered destination.
//
// Select does not reserve the destination it returns: two concurrent Selects with no
// Register in between return the same destination.
type RoundRobin struct {
	mu       sync.Mutex
	lastUsed string
}

var _ LoadBalancer = (*RoundRobin)(nil)

// NewRoundRobin creates a RoundRobin with no history.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (r *RoundRobin) Select(candidates []string, _ model.Job, _ int) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	r.mu.Lock()
	last := r.lastUsed
	r.mu.Unlock()

	// Index is -1 on first use or when the last destination left the candidate set.
	idx := slices.Index(candidates, last)
	return candidates[(idx+1)%len(candidates)], nil
}

func (r *RoundRobin) Register(req *model.PrintRequest) {
	if req == nil || req.Destination == "" {
		return
	}
	r.mu.Lock()
	r.lastUsed = req.Destination
	r.mu.Unlock()
}
