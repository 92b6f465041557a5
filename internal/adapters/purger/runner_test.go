package purger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/printmaker/config"
	"github.com/target/printmaker/internal/data"
	"github.com/target/printmaker/internal/data/memstore"
	"github.com/target/printmaker/internal/testutil"
)

func TestNewRunner_RequiresStore(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Config: config.PurgeConfig{Interval: time.Hour}})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{Jobs: memstore.NewJobStore(memstore.Options{})})
	require.Error(t, err, "zero interval is rejected by the service")
}

func TestRunner_RunOnce(t *testing.T) {
	dir := t.TempDir()
	clock := data.NewFixedTimeProvider(testutil.TestTime())
	jobs := memstore.NewJobStore(memstore.Options{TimeProvider: clock})
	ctx := context.Background()

	for range 3 {
		job := testutil.NewJob(dir).Build()
		require.NoError(t, os.WriteFile(job.SpoolPath, []byte("%!PS"), 0o600))
		_, err := jobs.Create(ctx, job)
		require.NoError(t, err)
	}
	clock.AddTime(48 * time.Hour)

	r, err := NewRunner(RunnerOptions{
		Jobs:   jobs,
		Config: config.PurgeConfig{Interval: time.Hour, BatchSize: 2},
		MaxAge: 24 * time.Hour,
	})
	require.NoError(t, err)

	n, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
