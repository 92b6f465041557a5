// Package core declares the ports the print job lifecycle engine depends on.
package core

import (
	"context"
	"io"
	"time"

	"github.com/target/printmaker/internal/domain/model"
)

// These interfaces are the contracts between the service layer and the adapters that
// provide storage, analysis, transmission and quota lookups.

// JobStore persists JobRecords. Update is the only mutation entry point for an existing record.
type JobStore interface {
	// Create inserts a record with Created set to now. Returns model.ErrDuplicateJobID if the id exists.
	Create(ctx context.Context, job model.Job) (*model.JobRecord, error)
	// Update applies the mutation atomically if exactly one record has the id and reports whether it did.
	// Timestamps already set are left unchanged.
	Update(ctx context.Context, id string, m model.JobMutation) (bool, error)
	// Get returns a snapshot or model.ErrJobNotFound.
	Get(ctx context.Context, id string) (*model.JobRecord, error)
	// TotalQuotaUsed sums QuotaCost over printed, non-refunded records of the user.
	TotalQuotaUsed(ctx context.Context, user string) (int, error)
	// Purge flags at most one batch of expired records deleted and removes their spool files.
	Purge(ctx context.Context, params PurgeParams) (int64, error)
}

// PurgeParams bounds a single Purge call.
type PurgeParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// QueueStore reads and maintains queue and destination reference data.
type QueueStore interface {
	GetQueue(ctx context.Context, id string) (*model.Queue, error)
	ListQueues(ctx context.Context) ([]*model.Queue, error)
	UpsertQueue(ctx context.Context, q *model.Queue) error
	// SetQueuePolicy stores a new load balancer key. Returns model.ErrQueueNotFound for unknown queues.
	SetQueuePolicy(ctx context.Context, id, policy string) (bool, error)

	GetDestination(ctx context.Context, id string) (*model.Destination, error)
	ListDestinations(ctx context.Context, queueID string) ([]*model.Destination, error)
	// ListUpDestinations returns ids of destinations in the queue that are marked up, ordered by id.
	ListUpDestinations(ctx context.Context, queueID string) ([]string, error)
	UpsertDestination(ctx context.Context, d *model.Destination) error
	SetDestinationUp(ctx context.Context, id string, up bool) (bool, error)
}

// Analysis is the result of counting pages in a document.
type Analysis struct {
	PageCount       int
	ColourPageCount int
}

// DocumentAnalyzer counts pages and colour pages of a prepared spool file.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, path string) (Analysis, error)
}

// Transmitter sends a processed request to its destination.
type Transmitter interface {
	Send(ctx context.Context, req *model.PrintRequest) (bool, error)
}

// QuotaSource returns a user's base quota. Implementations must be safe for concurrent use.
type QuotaSource interface {
	BaseQuota(ctx context.Context, user string) (int, error)
}

// IDGenerator produces unique, filename-safe job ids.
type IDGenerator interface {
	Generate() string
}

// TaskRunner executes tasks asynchronously under a cancellable id.
type TaskRunner interface {
	// Submit queues task, blocking while the runner is saturated.
	Submit(ctx context.Context, id string, task func(ctx context.Context)) error
	Cancel(id string) bool
	Shutdown(ctx context.Context) error
}

// Spool stores submitted content between ingestion and transmission.
type Spool interface {
	// EnsureDir creates the spool directory if needed.
	EnsureDir() error
	// PathFor returns the spool file path for a job id.
	PathFor(id string) string
	// Write replaces the file at path with the content of r and returns the bytes consumed.
	Write(path string, r io.Reader) (int64, error)
	// Prepare decodes the spool file into a new temp file the caller must Remove.
	Prepare(ctx context.Context, path string) (string, error)
	Remove(path string) error
	// Size returns the file size or 0 if it cannot be read.
	Size(path string) int64
}
