package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/domain/model"
)

// QueueStore keeps queues and destinations in memory.
type QueueStore struct {
	mu           sync.RWMutex
	queues       map[string]model.Queue
	destinations map[string]model.Destination
}

var _ core.QueueStore = (*QueueStore)(nil)

// NewQueueStore creates an empty QueueStore.
func NewQueueStore() *QueueStore {
	return &QueueStore{
		queues:       make(map[string]model.Queue),
		destinations: make(map[string]model.Destination),
	}
}

func (s *QueueStore) GetQueue(_ context.Context, id string) (*model.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[id]
	if !ok {
		return nil, model.ErrQueueNotFound
	}
	return &q, nil
}

func (s *QueueStore) ListQueues(context.Context) ([]*model.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Queue, 0, len(s.queues))
	for _, q := range s.queues {
		q := q
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *QueueStore) UpsertQueue(_ context.Context, q *model.Queue) error {
	if err := q.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[q.ID] = *q
	return nil
}

func (s *QueueStore) SetQueuePolicy(_ context.Context, id, policy string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[id]
	if !ok {
		return false, model.ErrQueueNotFound
	}
	if q.Policy == policy {
		return false, nil
	}
	q.Policy = policy
	s.queues[id] = q
	return true, nil
}

func (s *QueueStore) GetDestination(_ context.Context, id string) (*model.Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.destinations[id]
	if !ok {
		return nil, model.ErrDestinationNotFound
	}
	return &d, nil
}

func (s *QueueStore) ListDestinations(_ context.Context, queueID string) ([]*model.Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Destination
	for _, d := range s.destinations {
		if d.QueueID == queueID {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *QueueStore) ListUpDestinations(_ context.Context, queueID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, d := range s.destinations {
		if d.QueueID == queueID && d.Up {
			ids = append(ids, d.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *QueueStore) UpsertDestination(_ context.Context, d *model.Destination) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[d.QueueID]; !ok {
		return fmt.Errorf("%w: %s", model.ErrQueueNotFound, d.QueueID)
	}
	s.destinations[d.ID] = *d
	return nil
}

func (s *QueueStore) SetDestinationUp(_ context.Context, id string, up bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.destinations[id]
	if !ok {
		return false, nil
	}
	d.Up = up
	s.destinations[id] = d
	return true, nil
}
