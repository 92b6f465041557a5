package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/data/database"
	"github.com/target/printmaker/internal/domain/model"
	apperrors "github.com/target/printmaker/internal/errors"
)

const printJobsTable = "print_jobs"

// RepoConfig holds options shared by the SQL stores.
type RepoConfig struct {
	Dialect      Dialect
	Logger       *slog.Logger
	TimeProvider TimeProvider
	// RemoveFile deletes a spool file during Purge. Defaults to os.Remove.
	RemoveFile func(path string) error
}

// PrintJobRepo is the SQL implementation of core.JobStore.
type PrintJobRepo struct {
	DB           *sql.DB
	dialect      Dialect
	timeProvider TimeProvider
	logger       *slog.Logger
	removeFile   func(string) error
}

var _ core.JobStore = (*PrintJobRepo)(nil)

// NewPrintJobRepo creates a PrintJobRepo over db.
func NewPrintJobRepo(db *sql.DB, cfg RepoConfig) *PrintJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	remove := cfg.RemoveFile
	if remove == nil {
		remove = os.Remove
	}
	dialect := cfg.Dialect
	if dialect == "" {
		dialect = DialectPostgres
	}
	return &PrintJobRepo{
		DB:           db,
		dialect:      dialect,
		timeProvider: tp,
		logger:       logger.With("component", "print_job_repo"),
		removeFile:   remove,
	}
}

var printJobColumns = []string{
	"id",
	"short_user",
	"name",
	"file",
	"destination",
	"page_count",
	"colour_page_count",
	"quota_cost",
	"refunded",
	"deleted",
	"error",
	"created_ms",
	"received_ms",
	"processed_ms",
	"printed_ms",
	"failed_ms",
}

// Create inserts a record with only created_ms set.
func (r *PrintJobRepo) Create(ctx context.Context, job model.Job) (*model.JobRecord, error) {
	if err := job.Validate(); err != nil {
		return nil, apperrors.ValidationField("job", err.Error())
	}

	created := fromDB(toDB(r.timeProvider.Now()))
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO print_jobs (id, short_user, name, file, created_ms)
		VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.User, job.Name, job.SpoolPath, toDB(created),
	)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return nil, fmt.Errorf("%w: %s", model.ErrDuplicateJobID, job.ID)
		}
		return nil, fmt.Errorf("insert print job: %w", mapped)
	}

	return &model.JobRecord{
		ID:      job.ID,
		User:    job.User,
		Name:    job.Name,
		File:    job.SpoolPath,
		Created: created,
	}, nil
}

// Update applies m to the record with the given id in one statement.
// Timestamps and the error message use COALESCE so an existing value is kept.
func (r *PrintJobRepo) Update(ctx context.Context, id string, m model.JobMutation) (bool, error) {
	query, args, err := database.BuildUpdate(database.UpdateOptions{
		Table:      printJobsTable,
		Set:        mutationAssignments(m),
		Conditions: []database.Condition{database.WhereCond("id", database.Equal, id)},
	})
	if err != nil {
		return false, fmt.Errorf("build update for %s: %w", id, err)
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update print job %s: %w", id, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func mutationAssignments(m model.JobMutation) []database.Assignment {
	var set []database.Assignment
	once := func(col string, t *time.Time) {
		set = append(set, database.SetOnce(col, toDB(*t)))
	}
	if m.Received != nil {
		once("received_ms", m.Received)
	}
	if m.Processed != nil {
		once("processed_ms", m.Processed)
	}
	if m.Printed != nil {
		once("printed_ms", m.Printed)
	}
	if m.Failed != nil {
		once("failed_ms", m.Failed)
	}
	if m.PageCount != nil {
		set = append(set, database.Set("page_count", *m.PageCount))
	}
	if m.ColourPageCount != nil {
		set = append(set, database.Set("colour_page_count", *m.ColourPageCount))
	}
	if m.Destination != nil {
		set = append(set, database.Set("destination", *m.Destination))
	}
	if m.QuotaCost != nil {
		set = append(set, database.Set("quota_cost", *m.QuotaCost))
	}
	if m.Error != nil {
		set = append(set, database.SetOnce("error", *m.Error))
	}
	if m.Refunded != nil {
		set = append(set, database.Set("refunded", *m.Refunded))
	}
	if m.User != nil {
		set = append(set, database.Set("short_user", *m.User))
	}
	return set
}

// Get returns the record or model.ErrJobNotFound.
func (r *PrintJobRepo) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(printJobsTable,
		database.WithColumns(printJobColumns...),
		database.WithCondition(database.WhereCond("id", database.Equal, id)),
	))

	rec, err := scanPrintJob(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get print job %s: %w", id, apperrors.MapDBError(err))
	}
	return rec, nil
}

// TotalQuotaUsed sums quota_cost over the user's printed, non-refunded records.
func (r *PrintJobRepo) TotalQuotaUsed(ctx context.Context, user string) (int, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(printJobsTable,
		database.WithSum("quota_cost"),
		database.WithCondition(database.WhereCond("short_user", database.Equal, user)),
		database.WithCondition(database.WhereNotNull("printed_ms")),
		database.WithCondition(database.WhereCond("refunded", database.Equal, false)),
	))

	var total int64
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("total quota used for %s: %w", user, apperrors.MapDBError(err))
	}
	return int(total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrintJob(row rowScanner) (*model.JobRecord, error) {
	var (
		rec                                  model.JobRecord
		destination, errMsg                  sql.NullString
		created                              int64
		received, processed, printed, failed sql.NullInt64
	)
	if err := row.Scan(
		&rec.ID,
		&rec.User,
		&rec.Name,
		&rec.File,
		&destination,
		&rec.PageCount,
		&rec.ColourPageCount,
		&rec.QuotaCost,
		&rec.Refunded,
		&rec.Deleted,
		&errMsg,
		&created,
		&received,
		&processed,
		&printed,
		&failed,
	); err != nil {
		return nil, err
	}
	rec.Destination = destination.String
	rec.Error = errMsg.String
	rec.Created = fromDB(created)
	rec.Received = fromNullDB(received)
	rec.Processed = fromNullDB(processed)
	rec.Printed = fromNullDB(printed)
	rec.Failed = fromNullDB(failed)
	return &rec, nil
}
