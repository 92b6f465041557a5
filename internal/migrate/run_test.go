package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "migrate.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRun_AppliesAllAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	pending, err := Pending(ctx, db)
	require.NoError(t, err)
	assert.NotEmpty(t, pending)

	require.NoError(t, Run(ctx, db))
	require.NoError(t, Run(ctx, db))

	pending, err = Pending(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 2, n)

	_, err = db.ExecContext(ctx, `INSERT INTO queues (id, name) VALUES ($1, $2)`, "q1", "Queue 1")
	require.NoError(t, err)
	var policy string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT load_balancer FROM queues WHERE id = $1`, "q1").Scan(&policy))
	assert.Equal(t, "default", policy)
}

func TestRun_EnforcesDestinationQueue(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, Run(ctx, db))

	_, err := db.ExecContext(ctx,
		`INSERT INTO destinations (id, name, queue_id) VALUES ($1, $2, $3)`, "p1", "P1", "missing")
	assert.Error(t, err)
}
