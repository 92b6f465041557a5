package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/printmaker/internal/domain/job"
	"github.com/target/printmaker/internal/domain/model"
)

func TestCommands_Registered(t *testing.T) {
	cmds := commands()
	for _, name := range []string{"migrate", "seed", "submit", "stage", "watch", "purge", "set-policy", "set-up", "refund", "quota"} {
		c, ok := cmds[name]
		require.True(t, ok, name)
		assert.Equal(t, name, c.name)
		assert.NotNil(t, c.run)
	}
}

func TestParseSubmitFlags(t *testing.T) {
	opts, err := parseSubmitFlags([]string{"--file", "/tmp/report.ps", "--user", "alice", "--queue", "main"})
	require.NoError(t, err)
	assert.Equal(t, "report.ps", opts.Name)
	assert.True(t, opts.Wait)

	opts, err = parseSubmitFlags([]string{"--file", "-", "--user", "alice", "--queue", "main", "--wait=false"})
	require.NoError(t, err)
	assert.Empty(t, opts.Name)
	assert.False(t, opts.Wait)

	_, err = parseSubmitFlags([]string{"--user", "alice", "--queue", "main"})
	require.Error(t, err)
	_, err = parseSubmitFlags([]string{"--file", "a.ps", "--queue", "main"})
	require.Error(t, err)
	_, err = parseSubmitFlags([]string{"--file", "a.ps", "--user", "alice"})
	require.Error(t, err)
}

func TestParseQuotaFlags(t *testing.T) {
	opts, err := parseQuotaFlags([]string{"alice"})
	require.NoError(t, err)
	assert.Equal(t, quotaOptions{User: "alice", Set: -1}, opts)

	opts, err = parseQuotaFlags([]string{"--set", "50", "alice"})
	require.NoError(t, err)
	assert.Equal(t, 50, opts.Set)

	_, err = parseQuotaFlags([]string{"--set", "50", "--clear", "alice"})
	require.Error(t, err)
	_, err = parseQuotaFlags([]string{"--set", "-5", "alice"})
	require.Error(t, err)
	_, err = parseQuotaFlags(nil)
	require.Error(t, err)
}

func TestParseOtherFlags(t *testing.T) {
	purge, err := parsePurgeFlags(nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, purge.MaxAge)
	_, err = parsePurgeFlags([]string{"--max-age", "-1s"}, time.Hour)
	require.Error(t, err)

	refund, err := parseRefundFlags([]string{"--revert", "job1"})
	require.NoError(t, err)
	assert.Equal(t, refundOptions{JobID: "job1", Revert: true}, refund)

	up, err := parseSetUpFlags([]string{"--down", "p1"})
	require.NoError(t, err)
	assert.Equal(t, setUpOptions{Destination: "p1", Down: true}, up)
	_, err = parseSetUpFlags(nil)
	require.Error(t, err)

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestPrintStagesAndQuota(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := printStages(&buf, []string{"a", "b"}, []model.Stage{
		{Kind: model.StagePrinted, Time: at, Destination: "p1", PageCount: 3},
		model.NotFound,
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "printed(p1, 3 pages, 0 colour)")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
	assert.Contains(t, out, "not_found")

	buf.Reset()
	require.NoError(t, printQuota(&buf, "alice", 100, 30))
	assert.Regexp(t, `alice\s+100\s+30\s+70`, buf.String())
}

type fakeWatcher struct {
	updates []job.Update
}

func (f fakeWatcher) Watch(context.Context, string) (func(), <-chan job.Update) {
	ch := make(chan job.Update, len(f.updates))
	for _, u := range f.updates {
		ch <- u
	}
	close(ch)
	return func() {}, ch
}

func TestFollowStages(t *testing.T) {
	var buf bytes.Buffer
	final, err := followStages(context.Background(), &buf, fakeWatcher{updates: []job.Update{
		{Stage: model.Stage{Kind: model.StageReceived, FileSize: 10}},
		{Stage: model.Stage{Kind: model.StageFailed, Message: model.FailurePostscript}},
	}}, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.StageFailed, final.Kind)
	assert.Contains(t, buf.String(), "received(10 bytes)")

	_, err = followStages(context.Background(), &buf, fakeWatcher{updates: []job.Update{
		{Err: job.ErrWatchTimeout},
	}}, "j1")
	require.ErrorIs(t, err, job.ErrWatchTimeout)
}
