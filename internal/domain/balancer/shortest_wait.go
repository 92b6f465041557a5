package balancer

import (
	"sync"
	"time"

	"github.com/target/printmaker/internal/domain/model"
)

// DefaultPageDuration is the estimated time to print one page.
const DefaultPageDuration = 1500 * time.Millisecond

// ShortestWait picks the candidate whose queue of registered pages is estimated to drain first.
type ShortestWait struct {
	perPage time.Duration
	now     func() time.Time

	mu     sync.Mutex
	freeAt map[string]time.Time
}

var _ LoadBalancer = (*ShortestWait)(nil)

// ShortestWaitOptions configures NewShortestWait.
type ShortestWaitOptions struct {
	PageDuration time.Duration
	Now          func() time.Time
}

// NewShortestWait creates a ShortestWait where every destination starts free.
func NewShortestWait(opts ShortestWaitOptions) *ShortestWait {
	perPage := opts.PageDuration
	if perPage <= 0 {
		perPage = DefaultPageDuration
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ShortestWait{perPage: perPage, now: now, freeAt: make(map[string]time.Time)}
}

// Select returns the candidate with the earliest estimated free time. Ties go to the
// earlier candidate; unknown destinations are free at the zero time.
func (s *ShortestWait) Select(candidates []string, _ model.Job, _ int) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	best := candidates[0]
	bestAt := s.freeAt[best]
	for _, c := range candidates[1:] {
		if at := s.freeAt[c]; at.Before(bestAt) {
			best, bestAt = c, at
		}
	}
	return best, nil
}

// Register extends the destination's free time by the request's pages from max(now, previous).
func (s *ShortestWait) Register(req *model.PrintRequest) {
	if req == nil || req.Destination == "" {
		return
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.freeAt[req.Destination]
	if start.Before(now) {
		start = now
	}
	s.freeAt[req.Destination] = start.Add(time.Duration(req.PageCount) * s.perPage)
}

// FreeAt returns the estimated free time of a destination.
func (s *ShortestWait) FreeAt(destination string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freeAt[destination]
}
