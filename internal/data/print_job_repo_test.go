package data

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/domain/model"
	"github.com/target/printmaker/internal/testutil"
)

type storeFixture struct {
	db    *sql.DB
	jobs  *PrintJobRepo
	clock *FixedTimeProvider
	dir   string
}

// forEachDialect runs fn against SQLite, and against Postgres when the test database is reachable.
func forEachDialect(t *testing.T, fn func(t *testing.T, f storeFixture)) {
	t.Helper()
	setups := map[Dialect]func(testutil.TestingTB) *sql.DB{
		DialectSQLite:   testutil.SetupSQLiteDB,
		DialectPostgres: testutil.SetupTestDB,
	}
	for dialect, setup := range setups {
		t.Run(string(dialect), func(t *testing.T) {
			if dialect == DialectPostgres && testing.Short() {
				t.Skip("skipping integration test")
			}
			db := setup(t)
			clock := NewFixedTimeProvider(testutil.TestTime())
			fn(t, storeFixture{
				db:    db,
				jobs:  NewPrintJobRepo(db, RepoConfig{Dialect: dialect, TimeProvider: clock}),
				clock: clock,
				dir:   t.TempDir(),
			})
		})
	}
}

func TestPrintJobRepo_CreateAndGet(t *testing.T) {
	forEachDialect(t, func(t *testing.T, f storeFixture) {
		ctx := context.Background()
		job := testutil.NewJob(f.dir).Build()

		rec, err := f.jobs.Create(ctx, job)
		require.NoError(t, err)
		assert.True(t, rec.Created.Equal(testutil.TestTime()))

		got, err := f.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job, got.Job())
		assert.True(t, got.Created.Equal(testutil.TestTime()))
		assert.Nil(t, got.Received)
		assert.Nil(t, got.Failed)
		assert.Equal(t, model.StageCreated, model.DeriveStage(got, nil).Kind)

		_, err = f.jobs.Create(ctx, job)
		require.ErrorIs(t, err, model.ErrDuplicateJobID)

		_, err = f.jobs.Get(ctx, "missing")
		require.ErrorIs(t, err, model.ErrJobNotFound)
	})
}

func TestPrintJobRepo_UpdateSetsTimestampsOnce(t *testing.T) {
	forEachDialect(t, func(t *testing.T, f storeFixture) {
		ctx := context.Background()
		job := testutil.NewJob(f.dir).Build()
		_, err := f.jobs.Create(ctx, job)
		require.NoError(t, err)

		first := testutil.TestTime().Add(time.Second)
		ok, err := f.jobs.Update(ctx, job.ID, model.MarkReceived(first))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.jobs.Update(ctx, job.ID, model.MarkReceived(first.Add(time.Hour)))
		require.NoError(t, err)
		assert.True(t, ok)

		processed, err := model.MarkProcessed(first.Add(time.Second), 5, 2)
		require.NoError(t, err)
		_, err = f.jobs.Update(ctx, job.ID, processed)
		require.NoError(t, err)

		_, err = f.jobs.Update(ctx, job.ID, model.MarkFailed(first.Add(2*time.Second), model.FailurePrint))
		require.NoError(t, err)
		_, err = f.jobs.Update(ctx, job.ID, model.MarkFailed(first.Add(3*time.Second), model.FailureCanceled))
		require.NoError(t, err)

		got, err := f.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Received)
		assert.True(t, got.Received.Equal(first))
		assert.Equal(t, 5, got.PageCount)
		assert.Equal(t, 2, got.ColourPageCount)

		stage := model.DeriveStage(got, nil)
		assert.Equal(t, model.StageFailed, stage.Kind)
		assert.Equal(t, model.FailurePrint, stage.Message)
		assert.True(t, stage.Time.Equal(first.Add(2*time.Second)))
	})
}

func TestPrintJobRepo_UpdateUnknownID(t *testing.T) {
	forEachDialect(t, func(t *testing.T, f storeFixture) {
		ok, err := f.jobs.Update(context.Background(), "missing", model.MarkReceived(time.Now()))
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = f.jobs.Update(context.Background(), "missing", model.JobMutation{})
		assert.Error(t, err)
	})
}

func TestPrintJobRepo_TotalQuotaUsed(t *testing.T) {
	forEachDialect(t, func(t *testing.T, f storeFixture) {
		ctx := context.Background()
		now := testutil.TestTime()
		a := testutil.NewJob(f.dir).WithUser("alice").Build()
		b := testutil.NewJob(f.dir).WithUser("alice").Build()
		for _, j := range []model.Job{a, b} {
			_, err := f.jobs.Create(ctx, j)
			require.NoError(t, err)
		}

		used := func(user string) int {
			n, err := f.jobs.TotalQuotaUsed(ctx, user)
			require.NoError(t, err)
			return n
		}

		_, err := f.jobs.Update(ctx, a.ID, model.MarkPrinted(now, "p1", 35))
		require.NoError(t, err)
		cost := 10
		_, err = f.jobs.Update(ctx, b.ID, model.JobMutation{QuotaCost: &cost})
		require.NoError(t, err)
		assert.Equal(t, 35, used("alice"))

		_, err = f.jobs.Update(ctx, b.ID, model.MarkPrinted(now, "p1", 10))
		require.NoError(t, err)
		assert.Equal(t, 45, used("alice"))

		_, err = f.jobs.Update(ctx, b.ID, model.SetRefunded(true))
		require.NoError(t, err)
		assert.Equal(t, 35, used("alice"))

		_, err = f.jobs.Update(ctx, a.ID, model.ReassignUser("bob"))
		require.NoError(t, err)
		assert.Equal(t, 0, used("alice"))
		assert.Equal(t, 35, used("bob"))
	})
}

func TestPrintJobRepo_Purge(t *testing.T) {
	forEachDialect(t, func(t *testing.T, f storeFixture) {
		ctx := context.Background()
		const n = 4
		for range n {
			job := testutil.NewJob(f.dir).Build()
			require.NoError(t, os.WriteFile(job.SpoolPath, []byte("%!PS"), 0o600))
			_, err := f.jobs.Create(ctx, job)
			require.NoError(t, err)
		}

		flagged, err := f.jobs.Purge(ctx, core.PurgeParams{MaxAge: time.Hour})
		require.NoError(t, err)
		assert.Zero(t, flagged, "records younger than max age are kept")

		flagged, err = f.jobs.Purge(ctx, core.PurgeParams{MaxAge: 0, BatchSize: 3})
		require.NoError(t, err)
		assert.EqualValues(t, 3, flagged)

		flagged, err = f.jobs.Purge(ctx, core.PurgeParams{MaxAge: 0, BatchSize: 3})
		require.NoError(t, err)
		assert.EqualValues(t, 1, flagged)

		flagged, err = f.jobs.Purge(ctx, core.PurgeParams{MaxAge: 0})
		require.NoError(t, err)
		assert.Zero(t, flagged)

		files, err := filepath.Glob(filepath.Join(f.dir, "*.ps.xz"))
		require.NoError(t, err)
		assert.Empty(t, files)

		_, err = f.jobs.Purge(ctx, core.PurgeParams{MaxAge: -time.Second})
		assert.Error(t, err)
	})
}

func TestPrintJobRepo_PurgeCutoff(t *testing.T) {
	forEachDialect(t, func(t *testing.T, f storeFixture) {
		ctx := context.Background()
		path := filepath.Join(f.dir, "expiring.ps.xz")
		require.NoError(t, os.WriteFile(path, []byte("%!PS"), 0o600))
		job := testutil.NewJob(f.dir).WithID("expiring").WithSpoolPath(path).Build()
		_, err := f.jobs.Create(ctx, job)
		require.NoError(t, err)

		f.clock.SetTime(testutil.TestTime().Add(59 * time.Minute))
		flagged, err := f.jobs.Purge(ctx, core.PurgeParams{MaxAge: time.Hour})
		require.NoError(t, err)
		assert.Zero(t, flagged)
		assert.FileExists(t, path)

		f.clock.SetTime(testutil.TestTime().Add(61 * time.Minute))
		flagged, err = f.jobs.Purge(ctx, core.PurgeParams{MaxAge: time.Hour})
		require.NoError(t, err)
		assert.EqualValues(t, 1, flagged)
		assert.NoFileExists(t, path)
	})
}

func TestPrintJobRepo_PurgeToleratesFileErrors(t *testing.T) {
	db := testutil.SetupSQLiteDB(t)
	clock := NewFixedTimeProvider(testutil.TestTime())
	var mu sync.Mutex
	var attempted []string
	repo := NewPrintJobRepo(db, RepoConfig{
		Dialect:      DialectSQLite,
		TimeProvider: clock,
		RemoveFile: func(path string) error {
			mu.Lock()
			defer mu.Unlock()
			attempted = append(attempted, path)
			return errors.New("permission denied")
		},
	})

	ctx := context.Background()
	job := testutil.NewJob(t.TempDir()).Build()
	_, err := repo.Create(ctx, job)
	require.NoError(t, err)

	flagged, err := repo.Purge(ctx, core.PurgeParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, flagged)
	assert.Equal(t, []string{job.SpoolPath}, attempted)

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
}
