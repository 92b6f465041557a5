package service

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable marks a submission rejected because the spool or store could not be written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrPipelineClosed is returned by Submit after Shutdown.
	ErrPipelineClosed = errors.New("pipeline is shut down")
)

// SubmitErrorCode categorizes a synchronous submission failure.
type SubmitErrorCode string

const (
	SubmitCodeStorageUnavailable SubmitErrorCode = "storage_unavailable"
	SubmitCodeProcessFailure     SubmitErrorCode = "process_failure"
	SubmitCodeInvalid            SubmitErrorCode = "invalid_request"
)

// SubmitError is returned by Pipeline.Submit. JobID is empty when no record was created.
type SubmitError struct {
	Code  SubmitErrorCode
	JobID string
	Err   error
}

func (e *SubmitError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("submit job %s: %s: %v", e.JobID, e.Code, e.Err)
	}
	return fmt.Sprintf("submit job: %s: %v", e.Code, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorageUnavailable) match storage failures regardless of cause.
func (e *SubmitError) Is(target error) bool {
	return target == ErrStorageUnavailable && e.Code == SubmitCodeStorageUnavailable
}

func storageError(jobID string, err error) *SubmitError {
	return &SubmitError{Code: SubmitCodeStorageUnavailable, JobID: jobID, Err: err}
}

func processError(jobID string, err error) *SubmitError {
	return &SubmitError{Code: SubmitCodeProcessFailure, JobID: jobID, Err: err}
}
