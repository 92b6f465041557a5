// Package memstore provides in-memory JobStore and QueueStore implementations for
// single-process deployments and tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/data"
	"github.com/target/printmaker/internal/domain/model"
)

// Options configures the in-memory stores.
type Options struct {
	Logger       *slog.Logger
	TimeProvider data.TimeProvider
	// RemoveFile deletes a spool file during Purge. Defaults to os.Remove.
	RemoveFile func(path string) error
}

// JobStore keeps JobRecords in a map guarded by a mutex. Every method works on
// copies so callers never share state with the store.
type JobStore struct {
	mu      sync.Mutex
	records map[string]*model.JobRecord

	clock  data.TimeProvider
	logger *slog.Logger
	remove func(string) error
}

var _ core.JobStore = (*JobStore)(nil)

// NewJobStore creates an empty JobStore.
func NewJobStore(opts Options) *JobStore {
	s := &JobStore{
		records: make(map[string]*model.JobRecord),
		clock:   opts.TimeProvider,
		logger:  opts.Logger,
		remove:  opts.RemoveFile,
	}
	if s.clock == nil {
		s.clock = data.RealTimeProvider{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "memstore_jobs")
	if s.remove == nil {
		s.remove = os.Remove
	}
	return s
}

func (s *JobStore) Create(_ context.Context, job model.Job) (*model.JobRecord, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	// Match the millisecond precision of the SQL stores.
	created := s.clock.Now().UTC().Truncate(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[job.ID]; ok {
		return nil, fmt.Errorf("%w: %s", model.ErrDuplicateJobID, job.ID)
	}
	rec := &model.JobRecord{
		ID:      job.ID,
		User:    job.User,
		Name:    job.Name,
		File:    job.SpoolPath,
		Created: created,
	}
	s.records[job.ID] = rec
	return rec.Clone(), nil
}

func (s *JobStore) Update(_ context.Context, id string, m model.JobMutation) (bool, error) {
	if m.Empty() {
		return false, errors.New("empty mutation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	rec.Apply(m)
	return true, nil
}

func (s *JobStore) Get(_ context.Context, id string) (*model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return rec.Clone(), nil
}

func (s *JobStore) TotalQuotaUsed(_ context.Context, user string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, rec := range s.records {
		if rec.User == user && rec.Printed != nil && !rec.Refunded {
			total += rec.QuotaCost
		}
	}
	return total, nil
}

// Purge flags up to BatchSize expired records, oldest first, then removes their files.
func (s *JobStore) Purge(ctx context.Context, params core.PurgeParams) (int64, error) {
	if params.MaxAge < 0 {
		return 0, errors.New("max age cannot be negative")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = data.DefaultPurgeBatchSize
	}
	cutoff := s.clock.Now().Add(-params.MaxAge)

	s.mu.Lock()
	var expired []*model.JobRecord
	for _, rec := range s.records {
		if !rec.Deleted && !rec.Created.After(cutoff) {
			expired = append(expired, rec)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Created.Before(expired[j].Created) })
	if len(expired) > batch {
		expired = expired[:batch]
	}
	files := make(map[string]string, len(expired))
	for _, rec := range expired {
		rec.Deleted = true
		files[rec.ID] = rec.File
	}
	s.mu.Unlock()

	removed := 0
	for id, file := range files {
		err := s.remove(file)
		if err == nil {
			removed++
			continue
		}
		level := slog.LevelWarn
		if errors.Is(err, fs.ErrNotExist) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "failed to remove spool file", "job_id", id, "file", file, "error", err)
	}
	if removed != len(files) {
		s.logger.WarnContext(ctx, "purge count mismatch", "records_flagged", len(files), "files_removed", removed)
	}
	return int64(len(files)), nil
}
