// Package model defines the core data types shared by the printmaker job lifecycle engine.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrJobNotFound is returned when no record exists for a job id.
	ErrJobNotFound = errors.New("print job not found")
	// ErrDuplicateJobID is returned when a record already exists for a job id.
	ErrDuplicateJobID = errors.New("print job id already exists")
	// ErrInvalidPageCounts is returned when the colour page count exceeds the page count.
	ErrInvalidPageCounts = errors.New("colour page count cannot exceed page count")
)

// Failure labels recorded on Failed jobs.
const (
	FailureProcess            = "process_failure"
	FailurePostscript         = "postscript_error"
	FailureInvalidDestination = "invalid_destination"
	FailureInsufficientQuota  = "insufficient_quota"
	FailurePrint              = "print_failure"
	FailureCanceled           = "canceled"
)

// MaxErrorLength bounds the persisted failure message.
const MaxErrorLength = 128

// Job is the immutable identity of a submission.
type Job struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	User      string `json:"user"`
	SpoolPath string `json:"spool_path"`
}

// Validate checks the fields required to persist a job.
func (j *Job) Validate() error {
	if j == nil {
		return errors.New("job is required")
	}
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(j.User) == "" {
		return errors.New("job user is required")
	}
	if strings.TrimSpace(j.SpoolPath) == "" {
		return errors.New("job spool path is required")
	}
	return nil
}

// JobRecord is the persisted lifecycle row for a Job.
// Timestamps are nil until set and are never changed once set.
type JobRecord struct {
	ID              string     `json:"id"`
	User            string     `json:"user"`
	Name            string     `json:"name"`
	File            string     `json:"file"`
	Destination     string     `json:"destination,omitempty"`
	PageCount       int        `json:"page_count"`
	ColourPageCount int        `json:"colour_page_count"`
	QuotaCost       int        `json:"quota_cost"`
	Refunded        bool       `json:"refunded"`
	Deleted         bool       `json:"deleted"`
	Error           string     `json:"error,omitempty"`
	Created         time.Time  `json:"created"`
	Received        *time.Time `json:"received,omitempty"`
	Processed       *time.Time `json:"processed,omitempty"`
	Printed         *time.Time `json:"printed,omitempty"`
	Failed          *time.Time `json:"failed,omitempty"`
}

// Job returns the immutable identity portion of the record.
func (r *JobRecord) Job() Job {
	return Job{ID: r.ID, Name: r.Name, User: r.User, SpoolPath: r.File}
}

// Clone returns a deep copy of the record.
func (r *JobRecord) Clone() *JobRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Received = cloneTime(r.Received)
	out.Processed = cloneTime(r.Processed)
	out.Printed = cloneTime(r.Printed)
	out.Failed = cloneTime(r.Failed)
	return &out
}

// Apply merges a mutation into the record. Timestamps and the failure message are set once.
func (r *JobRecord) Apply(m JobMutation) {
	r.Received = setOnce(r.Received, m.Received)
	r.Processed = setOnce(r.Processed, m.Processed)
	r.Printed = setOnce(r.Printed, m.Printed)
	r.Failed = setOnce(r.Failed, m.Failed)
	if m.PageCount != nil {
		r.PageCount = *m.PageCount
	}
	if m.ColourPageCount != nil {
		r.ColourPageCount = *m.ColourPageCount
	}
	if m.Destination != nil {
		r.Destination = *m.Destination
	}
	if m.QuotaCost != nil {
		r.QuotaCost = *m.QuotaCost
	}
	if m.Error != nil && r.Error == "" {
		r.Error = *m.Error
	}
	if m.Refunded != nil {
		r.Refunded = *m.Refunded
	}
	if m.User != nil {
		r.User = *m.User
	}
}

// JobMutation is the set of fields a single conditional update writes.
// Nil fields are left untouched.
type JobMutation struct {
	Received        *time.Time
	Processed       *time.Time
	Printed         *time.Time
	Failed          *time.Time
	PageCount       *int
	ColourPageCount *int
	Destination     *string
	QuotaCost       *int
	Error           *string
	Refunded        *bool
	User            *string
}

// Empty reports whether the mutation changes nothing.
func (m JobMutation) Empty() bool {
	return m == JobMutation{}
}

// MarkReceived records that the spool content has been stored.
func MarkReceived(at time.Time) JobMutation {
	return JobMutation{Received: &at}
}

// MarkProcessed records the analysis result.
func MarkProcessed(at time.Time, pageCount, colourPageCount int) (JobMutation, error) {
	if pageCount < 0 || colourPageCount < 0 {
		return JobMutation{}, fmt.Errorf("negative page count (%d, %d)", pageCount, colourPageCount)
	}
	if pageCount < colourPageCount {
		return JobMutation{}, fmt.Errorf("%w: %d < %d", ErrInvalidPageCounts, pageCount, colourPageCount)
	}
	return JobMutation{
		Processed:       &at,
		PageCount:       &pageCount,
		ColourPageCount: &colourPageCount,
	}, nil
}

// MarkPrinted records a successful transmission.
func MarkPrinted(at time.Time, destination string, cost int) JobMutation {
	return JobMutation{Printed: &at, Destination: &destination, QuotaCost: &cost}
}

// MarkFailed records a terminal failure with a bounded message.
func MarkFailed(at time.Time, message string) JobMutation {
	if len(message) > MaxErrorLength {
		message = message[:MaxErrorLength]
	}
	return JobMutation{Failed: &at, Error: &message}
}

// SetRefunded toggles whether the job's cost counts against the user's quota.
func SetRefunded(refunded bool) JobMutation {
	return JobMutation{Refunded: &refunded}
}

// ReassignUser moves the record to another user.
func ReassignUser(user string) JobMutation {
	return JobMutation{User: &user}
}

func setOnce(current, next *time.Time) *time.Time {
	if current != nil || next == nil {
		return current
	}
	t := *next
	return &t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
