package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/printmaker/internal/domain/model"
)

// scriptedReader returns each scripted stage once, then repeats the last one.
type scriptedReader struct {
	mu     sync.Mutex
	stages []model.Stage
	errs   map[int]error
	calls  atomic.Int32
}

func (s *scriptedReader) Stage(_ context.Context, _ string) (model.Stage, error) {
	n := int(s.calls.Add(1)) - 1
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[n]; err != nil {
		return model.Stage{}, err
	}
	if n >= len(s.stages) {
		n = len(s.stages) - 1
	}
	return s.stages[n], nil
}

func collect(t *testing.T, ch <-chan Update, within time.Duration) []Update {
	t.Helper()
	var out []Update
	timeout := time.After(within)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, u)
		case <-timeout:
			t.Fatal("watch channel was not closed in time")
		}
	}
}

func kinds(updates []Update) []model.StageKind {
	out := make([]model.StageKind, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.Stage.Kind)
	}
	return out
}

func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 9, 0, sec, 0, time.UTC)
}

func TestNewStageWatcherRequiresReader(t *testing.T) {
	w, err := NewStageWatcher(WatcherOptions{})
	require.ErrorIs(t, err, ErrReaderRequired)
	assert.Nil(t, w)
}

func TestStageWatcher_EmitsDistinctStagesUntilTerminal(t *testing.T) {
	created := model.Stage{Kind: model.StageCreated, Time: at(0)}
	received := model.Stage{Kind: model.StageReceived, Time: at(1), FileSize: 10}
	processed := model.Stage{Kind: model.StageProcessed, Time: at(2)}
	printed := model.Stage{Kind: model.StagePrinted, Time: at(3), Destination: "p1", PageCount: 2}
	reader := &scriptedReader{stages: []model.Stage{
		created, created, received, received, received, processed, printed,
	}}

	w, err := NewStageWatcher(WatcherOptions{Reader: reader, Interval: time.Millisecond, Timeout: time.Second})
	require.NoError(t, err)

	unsub, ch := w.Watch(context.Background(), "job1")
	defer unsub()

	updates := collect(t, ch, time.Second)
	assert.Equal(t, []model.StageKind{
		model.StageCreated, model.StageReceived, model.StageProcessed, model.StagePrinted,
	}, kinds(updates))
	assert.Equal(t, "p1", updates[3].Stage.Destination)
	assert.EqualValues(t, 7, reader.calls.Load())
}

func TestStageWatcher_EmitsWhenFieldsChange(t *testing.T) {
	reader := &scriptedReader{stages: []model.Stage{
		{Kind: model.StageReceived, Time: at(1), FileSize: 10},
		{Kind: model.StageReceived, Time: at(1), FileSize: 20},
		{Kind: model.StageFailed, Time: at(2), Message: model.FailurePrint},
	}}
	w, err := NewStageWatcher(WatcherOptions{Reader: reader, Interval: time.Millisecond})
	require.NoError(t, err)

	_, ch := w.Watch(context.Background(), "job1")
	updates := collect(t, ch, time.Second)
	require.Len(t, updates, 3)
	assert.EqualValues(t, 20, updates[1].Stage.FileSize)
	assert.Equal(t, model.FailurePrint, updates[2].Stage.Message)
}

func TestStageWatcher_NotFoundIsTerminal(t *testing.T) {
	reader := &scriptedReader{stages: []model.Stage{model.NotFound}}
	w, err := NewStageWatcher(WatcherOptions{Reader: reader, Interval: time.Millisecond})
	require.NoError(t, err)

	_, ch := w.Watch(context.Background(), "missing")
	updates := collect(t, ch, time.Second)
	assert.Equal(t, []model.StageKind{model.StageNotFound}, kinds(updates))
	assert.EqualValues(t, 1, reader.calls.Load())
}

func TestStageWatcher_Timeout(t *testing.T) {
	reader := &scriptedReader{stages: []model.Stage{{Kind: model.StageProcessed, Time: at(2)}}}
	w, err := NewStageWatcher(WatcherOptions{Reader: reader, Interval: 5 * time.Millisecond, Timeout: 40 * time.Millisecond})
	require.NoError(t, err)

	_, ch := w.Watch(context.Background(), "stuck")
	updates := collect(t, ch, time.Second)
	require.Len(t, updates, 2)
	assert.Equal(t, model.StageProcessed, updates[0].Stage.Kind)
	assert.ErrorIs(t, updates[1].Err, ErrWatchTimeout)
}

func TestStageWatcher_TimeoutReachesStalledSubscriber(t *testing.T) {
	reader := &scriptedReader{stages: []model.Stage{
		{Kind: model.StageCreated, Time: at(0)},
		{Kind: model.StageReceived, Time: at(1)},
		{Kind: model.StageProcessed, Time: at(2)},
	}}
	w, err := NewStageWatcher(WatcherOptions{Reader: reader, Interval: 2 * time.Millisecond, Timeout: 30 * time.Millisecond})
	require.NoError(t, err)

	_, ch := w.Watch(context.Background(), "slow-reader")

	// Nothing reads until well after the timeout.
	time.Sleep(150 * time.Millisecond)
	calls := reader.calls.Load()

	updates := collect(t, ch, time.Second)
	require.NotEmpty(t, updates)
	assert.ErrorIs(t, updates[len(updates)-1].Err, ErrWatchTimeout)
	assert.Equal(t, calls, reader.calls.Load(), "poll loop exited at the deadline")
}

func TestStageWatcher_ReadErrorsKeepPolling(t *testing.T) {
	reader := &scriptedReader{
		stages: []model.Stage{{}, {Kind: model.StagePrinted, Time: at(3)}},
		errs:   map[int]error{0: errors.New("connection reset")},
	}
	w, err := NewStageWatcher(WatcherOptions{Reader: reader, Interval: time.Millisecond})
	require.NoError(t, err)

	_, ch := w.Watch(context.Background(), "job1")
	updates := collect(t, ch, time.Second)
	assert.Equal(t, []model.StageKind{model.StagePrinted}, kinds(updates))
}

func TestStageWatcher_UnsubscribeStopsPolling(t *testing.T) {
	reader := &scriptedReader{stages: []model.Stage{{Kind: model.StageProcessed, Time: at(2)}}}
	w, err := NewStageWatcher(WatcherOptions{Reader: reader, Interval: time.Millisecond, Timeout: time.Minute})
	require.NoError(t, err)

	unsub, ch := w.Watch(context.Background(), "job1")
	first := <-ch
	assert.Equal(t, model.StageProcessed, first.Stage.Kind)

	unsub()
	unsub()
	collect(t, ch, time.Second)

	calls := reader.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, reader.calls.Load(), "no reads after unsubscribe")
}

func TestStageWatcher_StopAll(t *testing.T) {
	reader := &scriptedReader{stages: []model.Stage{{Kind: model.StageCreated, Time: at(0)}}}
	w, err := NewStageWatcher(WatcherOptions{Reader: reader, Interval: time.Millisecond, Timeout: time.Minute})
	require.NoError(t, err)

	var chans []<-chan Update
	for range 3 {
		_, ch := w.Watch(context.Background(), "job")
		chans = append(chans, ch)
	}
	w.StopAll()
	for _, ch := range chans {
		collect(t, ch, time.Second)
	}
}

func TestStageWatcher_ParentContextCancel(t *testing.T) {
	reader := &scriptedReader{stages: []model.Stage{{Kind: model.StageCreated, Time: at(0)}}}
	w, err := NewStageWatcher(WatcherOptions{Reader: StageReaderFunc(reader.Stage), Interval: time.Millisecond, Timeout: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, ch := w.Watch(ctx, "job")
	<-ch
	cancel()
	collect(t, ch, time.Second)
}
