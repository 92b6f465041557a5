package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/data/database"
	"github.com/target/printmaker/internal/domain/model"
	apperrors "github.com/target/printmaker/internal/errors"
)

const (
	queuesTable       = "queues"
	destinationsTable = "destinations"
)

// QueueRepo is the SQL implementation of core.QueueStore.
type QueueRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

var _ core.QueueStore = (*QueueRepo)(nil)

// NewQueueRepo creates a QueueRepo over db.
func NewQueueRepo(db *sql.DB, cfg RepoConfig) *QueueRepo {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueRepo{DB: db, logger: logger.With("component", "queue_repo")}
}

var (
	queueColumns       = []string{"id", "name", "load_balancer"}
	destinationColumns = []string{"id", "name", "queue_id", "up", "address"}
)

func (r *QueueRepo) GetQueue(ctx context.Context, id string) (*model.Queue, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(queuesTable,
		database.WithColumns(queueColumns...),
		database.WithCondition(database.WhereCond("id", database.Equal, id)),
	))
	var q model.Queue
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&q.ID, &q.Name, &q.Policy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrQueueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue %s: %w", id, apperrors.MapDBError(err))
	}
	return &q, nil
}

func (r *QueueRepo) ListQueues(ctx context.Context) ([]*model.Queue, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(queuesTable,
		database.WithColumns(queueColumns...),
		database.WithOrderBy("id", "ASC"),
	))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", apperrors.MapDBError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Queue
	for rows.Next() {
		var q model.Queue
		if scanErr := rows.Scan(&q.ID, &q.Name, &q.Policy); scanErr != nil {
			return nil, fmt.Errorf("scan queue: %w", scanErr)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

// UpsertQueue inserts the queue or updates its name and policy.
func (r *QueueRepo) UpsertQueue(ctx context.Context, q *model.Queue) error {
	if err := q.Validate(); err != nil {
		return apperrors.ValidationField("queue", err.Error())
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO queues (id, name, load_balancer) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, load_balancer = excluded.load_balancer`,
		q.ID, q.Name, q.Policy,
	)
	if err != nil {
		return fmt.Errorf("upsert queue %s: %w", q.ID, apperrors.MapDBError(err))
	}
	return nil
}

// SetQueuePolicy stores a new load balancer key and reports whether it differed from the old one.
func (r *QueueRepo) SetQueuePolicy(ctx context.Context, id, policy string) (bool, error) {
	query, args, err := database.BuildUpdate(database.UpdateOptions{
		Table: queuesTable,
		Set:   []database.Assignment{database.Set("load_balancer", policy)},
		Conditions: []database.Condition{
			database.WhereCond("id", database.Equal, id),
			database.WhereCond("load_balancer", database.NotEqual, policy),
		},
	})
	if err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("set queue policy %s: %w", id, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	// Distinguish an unchanged policy from an unknown queue.
	if _, getErr := r.GetQueue(ctx, id); getErr != nil {
		return false, getErr
	}
	return false, nil
}

func (r *QueueRepo) GetDestination(ctx context.Context, id string) (*model.Destination, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(destinationsTable,
		database.WithColumns(destinationColumns...),
		database.WithCondition(database.WhereCond("id", database.Equal, id)),
	))
	d, err := scanDestination(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrDestinationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get destination %s: %w", id, apperrors.MapDBError(err))
	}
	return d, nil
}

func (r *QueueRepo) ListDestinations(ctx context.Context, queueID string) ([]*model.Destination, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(destinationsTable,
		database.WithColumns(destinationColumns...),
		database.WithCondition(database.WhereCond("queue_id", database.Equal, queueID)),
		database.WithOrderBy("id", "ASC"),
	))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", apperrors.MapDBError(err))
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Destination
	for rows.Next() {
		d, scanErr := scanDestination(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan destination: %w", scanErr)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *QueueRepo) ListUpDestinations(ctx context.Context, queueID string) ([]string, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(destinationsTable,
		database.WithColumns("id"),
		database.WithCondition(database.WhereCond("queue_id", database.Equal, queueID)),
		database.WithCondition(database.WhereCond("up", database.Equal, true)),
		database.WithOrderBy("id", "ASC"),
	))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list up destinations: %w", apperrors.MapDBError(err))
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("scan destination id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertDestination inserts the destination or updates all its fields.
func (r *QueueRepo) UpsertDestination(ctx context.Context, d *model.Destination) error {
	if err := d.Validate(); err != nil {
		return apperrors.ValidationField("destination", err.Error())
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO destinations (id, name, queue_id, up, address) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			queue_id = excluded.queue_id,
			up = excluded.up,
			address = excluded.address`,
		d.ID, d.Name, d.QueueID, d.Up, d.Address,
	)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsForeignKey(mapped) {
			return fmt.Errorf("%w: %s", model.ErrQueueNotFound, d.QueueID)
		}
		return fmt.Errorf("upsert destination %s: %w", d.ID, mapped)
	}
	return nil
}

// SetDestinationUp marks a destination up or down. Returns false for unknown ids.
func (r *QueueRepo) SetDestinationUp(ctx context.Context, id string, up bool) (bool, error) {
	query, args, err := database.BuildUpdate(database.UpdateOptions{
		Table:      destinationsTable,
		Set:        []database.Assignment{database.Set("up", up)},
		Conditions: []database.Condition{database.WhereCond("id", database.Equal, id)},
	})
	if err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("set destination up %s: %w", id, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func scanDestination(row rowScanner) (*model.Destination, error) {
	var d model.Destination
	if err := row.Scan(&d.ID, &d.Name, &d.QueueID, &d.Up, &d.Address); err != nil {
		return nil, err
	}
	return &d, nil
}
