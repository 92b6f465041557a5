package data

import (
	"database/sql"
	"sync"
	"time"
)

// TimeProvider supplies the current time so stores can be tested deterministically.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider implements TimeProvider using the system clock.
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// FixedTimeProvider returns a settable time. It is safe for concurrent use.
type FixedTimeProvider struct {
	mu        sync.Mutex
	fixedTime time.Time
}

// NewFixedTimeProvider creates a FixedTimeProvider starting at t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixedTime: t}
}

func (f *FixedTimeProvider) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fixedTime
}

// SetTime replaces the current time.
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.mu.Lock()
	f.fixedTime = t
	f.mu.Unlock()
}

// AddTime advances the current time by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) {
	f.mu.Lock()
	f.fixedTime = f.fixedTime.Add(d)
	f.mu.Unlock()
}

// toDB converts a time to the epoch millisecond column representation.
func toDB(t time.Time) int64 {
	return t.UnixMilli()
}

func fromDB(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullDB(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromDB(ms.Int64)
	return &t
}
