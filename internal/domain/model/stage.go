package model

import (
	"fmt"
	"time"
)

// StageKind names the derived lifecycle position of a job.
type StageKind string

const (
	StageCreated   StageKind = "created"
	StageReceived  StageKind = "received"
	StageProcessed StageKind = "processed"
	StagePrinted   StageKind = "printed"
	StageFailed    StageKind = "failed"
	StageNotFound  StageKind = "not_found"
)

// Terminal reports whether no further transitions can follow this kind.
func (k StageKind) Terminal() bool {
	return k == StagePrinted || k == StageFailed || k == StageNotFound
}

// Stage is a snapshot of a job's lifecycle position derived from its record.
type Stage struct {
	Kind StageKind `json:"kind"`
	Time time.Time `json:"time,omitzero"`

	// FileSize is set for StageReceived.
	FileSize int64 `json:"file_size,omitempty"`

	// Destination and page counts are set for StagePrinted.
	Destination     string `json:"destination,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	ColourPageCount int    `json:"colour_page_count,omitempty"`

	// Message is set for StageFailed.
	Message string `json:"message,omitempty"`
}

// NotFound is the stage of an id with no record.
var NotFound = Stage{Kind: StageNotFound}

// Terminal reports whether the stage will no longer change.
func (s Stage) Terminal() bool {
	return s.Kind.Terminal()
}

// Equal compares kind and every kind-specific field.
func (s Stage) Equal(o Stage) bool {
	return s.Kind == o.Kind &&
		s.Time.Equal(o.Time) &&
		s.FileSize == o.FileSize &&
		s.Destination == o.Destination &&
		s.PageCount == o.PageCount &&
		s.ColourPageCount == o.ColourPageCount &&
		s.Message == o.Message
}

func (s Stage) String() string {
	switch s.Kind {
	case StagePrinted:
		return fmt.Sprintf("printed(%s, %d pages, %d colour)", s.Destination, s.PageCount, s.ColourPageCount)
	case StageFailed:
		return fmt.Sprintf("failed(%s)", s.Message)
	case StageReceived:
		return fmt.Sprintf("received(%d bytes)", s.FileSize)
	case StageCreated, StageProcessed, StageNotFound:
		return string(s.Kind)
	}
	return string(s.Kind)
}

// DeriveStage computes the stage of a record. The most progressed timestamp wins,
// checked in the order failed, printed, processed, received, created.
// fileSize is only consulted for StageReceived and may be nil.
func DeriveStage(r *JobRecord, fileSize func(path string) int64) Stage {
	if r == nil {
		return NotFound
	}
	switch {
	case r.Failed != nil:
		return Stage{Kind: StageFailed, Time: *r.Failed, Message: r.Error}
	case r.Printed != nil:
		return Stage{
			Kind:            StagePrinted,
			Time:            *r.Printed,
			Destination:     r.Destination,
			PageCount:       r.PageCount,
			ColourPageCount: r.ColourPageCount,
		}
	case r.Processed != nil:
		return Stage{Kind: StageProcessed, Time: *r.Processed}
	case r.Received != nil:
		var size int64
		if fileSize != nil {
			size = fileSize(r.File)
		}
		return Stage{Kind: StageReceived, Time: *r.Received, FileSize: size}
	default:
		return Stage{Kind: StageCreated, Time: r.Created}
	}
}
