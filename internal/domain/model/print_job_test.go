package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStage(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(s int) *time.Time {
		v := base.Add(time.Duration(s) * time.Second)
		return &v
	}

	tests := []struct {
		name string
		rec  *JobRecord
		want StageKind
	}{
		{name: "nil record", rec: nil, want: StageNotFound},
		{name: "created", rec: &JobRecord{Created: base}, want: StageCreated},
		{name: "received", rec: &JobRecord{Created: base, Received: at(1)}, want: StageReceived},
		{name: "processed", rec: &JobRecord{Created: base, Received: at(1), Processed: at(2)}, want: StageProcessed},
		{name: "processed without received", rec: &JobRecord{Created: base, Processed: at(2)}, want: StageProcessed},
		{name: "printed", rec: &JobRecord{Created: base, Received: at(1), Processed: at(2), Printed: at(3)}, want: StagePrinted},
		{name: "failed wins over printed", rec: &JobRecord{Created: base, Printed: at(3), Failed: at(4)}, want: StageFailed},
		{name: "failed after received", rec: &JobRecord{Created: base, Received: at(1), Failed: at(2)}, want: StageFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStage(tt.rec, nil).Kind)
		})
	}
}

func TestDeriveStage_Fields(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := &JobRecord{ID: "j1", File: "/spool/j1.ps.xz", Created: base}

	rec.Apply(MarkReceived(base.Add(time.Second)))
	stage := DeriveStage(rec, func(path string) int64 {
		assert.Equal(t, "/spool/j1.ps.xz", path)
		return 42
	})
	assert.Equal(t, StageReceived, stage.Kind)
	assert.Equal(t, int64(42), stage.FileSize)
	assert.False(t, stage.Terminal())

	processed, err := MarkProcessed(base.Add(2*time.Second), 8, 2)
	require.NoError(t, err)
	rec.Apply(processed)
	rec.Apply(MarkPrinted(base.Add(3*time.Second), "p1", 12))

	stage = DeriveStage(rec, nil)
	assert.Equal(t, StagePrinted, stage.Kind)
	assert.Equal(t, "p1", stage.Destination)
	assert.Equal(t, 8, stage.PageCount)
	assert.Equal(t, 2, stage.ColourPageCount)
	assert.True(t, stage.Terminal())
}

func TestJobRecord_ApplyKeepsFirstTimestamp(t *testing.T) {
	first := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := &JobRecord{Created: first}

	rec.Apply(MarkReceived(first))
	rec.Apply(MarkReceived(first.Add(time.Hour)))

	require.NotNil(t, rec.Received)
	assert.True(t, rec.Received.Equal(first))
}

func TestMarkProcessed_RejectsInvalidCounts(t *testing.T) {
	_, err := MarkProcessed(time.Now(), 2, 3)
	require.ErrorIs(t, err, ErrInvalidPageCounts)

	_, err = MarkProcessed(time.Now(), -1, 0)
	require.Error(t, err)
}

func TestMarkFailed_TruncatesMessage(t *testing.T) {
	long := make([]byte, MaxErrorLength+20)
	for i := range long {
		long[i] = 'x'
	}
	m := MarkFailed(time.Now(), string(long))
	require.NotNil(t, m.Error)
	assert.Len(t, *m.Error, MaxErrorLength)
}

func TestPrintRequest_QuotaCost(t *testing.T) {
	req := PrintRequest{PageCount: 10, ColourPageCount: 4}
	assert.Equal(t, 6+4*3, req.QuotaCost())

	req.ColourMultiplier = 5
	assert.Equal(t, 6+4*5, req.QuotaCost())

	assert.True(t, req.HasSufficientQuota(27))
	assert.False(t, req.HasSufficientQuota(26))
}

func TestStage_Equal(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a := Stage{Kind: StageFailed, Time: ts, Message: "print_failure"}
	b := Stage{Kind: StageFailed, Time: ts.In(time.Local), Message: "print_failure"}
	assert.True(t, a.Equal(b))

	b.Message = "postscript_error"
	assert.False(t, a.Equal(b))
}

func TestJobRecord_CloneIsDeep(t *testing.T) {
	ts := time.Now()
	rec := &JobRecord{ID: "a", Received: &ts}
	clone := rec.Clone()
	later := ts.Add(time.Hour)
	*clone.Received = later

	assert.True(t, rec.Received.Equal(ts))
}
