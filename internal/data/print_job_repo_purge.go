package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/data/database"
	"github.com/target/printmaker/internal/data/pgxutil"
	apperrors "github.com/target/printmaker/internal/errors"
)

// Major key 2000 is reserved for printmaker maintenance; minor keys name the operation.
var purgeLockKey = pgxutil.AdvisoryLockKey{Major: 2000, Minor: 1}

// DefaultPurgeBatchSize bounds one Purge call when the caller passes no batch size.
const DefaultPurgeBatchSize = 500

type purgeCandidate struct {
	id   string
	file string
}

// Purge flags up to params.BatchSize non-deleted records created at or before now-MaxAge
// as deleted, then removes their spool files. File removal is best-effort.
// On Postgres a transaction-scoped advisory lock keeps concurrent purgers from
// overlapping; a purger that loses the lock flags nothing.
func (r *PrintJobRepo) Purge(ctx context.Context, params core.PurgeParams) (int64, error) {
	if params.MaxAge < 0 {
		return 0, apperrors.ValidationField("max_age", "max age cannot be negative")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = DefaultPurgeBatchSize
	}
	cutoff := toDB(r.timeProvider.Now().Add(-params.MaxAge))

	var (
		candidates []purgeCandidate
		flagged    int64
	)
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			if r.dialect.advisoryLocks() {
				locked, err := pgxutil.TryAdvisoryXactLock(ctx, tx, purgeLockKey)
				if err != nil {
					return err
				}
				if !locked {
					r.logger.DebugContext(ctx, "purge skipped, another purger holds the lock")
					return nil
				}
			}

			var err error
			candidates, err = selectPurgeCandidates(ctx, tx, cutoff, batch)
			if err != nil || len(candidates) == 0 {
				return err
			}
			flagged, err = flagDeleted(ctx, tx, candidates)
			return err
		},
	})
	if err != nil {
		return 0, fmt.Errorf("purge print jobs: %w", apperrors.MapDBError(err))
	}

	removed := r.removeSpoolFiles(ctx, candidates)
	if int64(len(candidates)) != flagged || removed != len(candidates) {
		r.logger.WarnContext(ctx, "purge count mismatch",
			"records_found", len(candidates),
			"records_flagged", flagged,
			"files_removed", removed,
		)
	}
	return flagged, nil
}

func selectPurgeCandidates(ctx context.Context, tx *sql.Tx, cutoff int64, batch int) ([]purgeCandidate, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(printJobsTable,
		database.WithColumns("id", "file"),
		database.WithCondition(database.WhereCond("deleted", database.Equal, false)),
		database.WithCondition(database.WhereCond("created_ms", database.LessThanOrEqual, cutoff)),
		database.WithOrderBy("created_ms", "ASC"),
		database.WithLimit(batch),
	))

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select expired jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []purgeCandidate
	for rows.Next() {
		var c purgeCandidate
		if scanErr := rows.Scan(&c.id, &c.file); scanErr != nil {
			return nil, fmt.Errorf("scan expired job: %w", scanErr)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func flagDeleted(ctx context.Context, tx *sql.Tx, candidates []purgeCandidate) (int64, error) {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	query, args, err := database.BuildUpdate(database.UpdateOptions{
		Table: printJobsTable,
		Set:   []database.Assignment{database.Set("deleted", true)},
		Conditions: []database.Condition{
			database.WhereCond("id", database.In, ids),
			database.WhereCond("deleted", database.Equal, false),
		},
	})
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("flag expired jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// removeSpoolFiles deletes candidate files and returns how many were removed.
func (r *PrintJobRepo) removeSpoolFiles(ctx context.Context, candidates []purgeCandidate) int {
	removed := 0
	for _, c := range candidates {
		err := r.removeFile(c.file)
		if err == nil {
			removed++
			continue
		}
		level := slog.LevelWarn
		if errors.Is(err, fs.ErrNotExist) {
			level = slog.LevelDebug
		}
		r.logger.Log(ctx, level, "failed to remove spool file", "job_id", c.id, "file", c.file, "error", err)
	}
	return removed
}
