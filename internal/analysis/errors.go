package analysis

import (
	"errors"
	"fmt"
)

// ErrJobInFlight is returned by Start when the orchestrator already owns an
// active, uncancelled job. The caller must cancel the existing handle before
// starting a new job.
var ErrJobInFlight = errors.New("an analysis job is already in flight")

// StartFailedError indicates the job creation request itself failed. No
// polling occurred; the caller may retry Start.
type StartFailedError struct {
	Cause error
}

func (e *StartFailedError) Error() string {
	return fmt.Sprintf("failed to start analysis job: %v", e.Cause)
}

func (e *StartFailedError) Unwrap() error { return e.Cause }

// JobExpiredError indicates the provider no longer knows the job id. The job
// is presumed lost and cannot be resumed; the caller must start a fresh job.
type JobExpiredError struct {
	JobID string
}

func (e *JobExpiredError) Error() string {
	return fmt.Sprintf("analysis job %s expired on the provider", e.JobID)
}

// JobFailedError indicates the provider explicitly reported failure. Reason
// carries the provider's message verbatim.
type JobFailedError struct {
	JobID  string
	Reason string
}

func (e *JobFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("analysis job %s failed", e.JobID)
	}
	return fmt.Sprintf("analysis job %s failed: %s", e.JobID, e.Reason)
}

// MalformedResultError indicates the provider reported success but the result
// payload does not match the shape required by the requested mode. The job is
// treated as failed despite the provider's success signal.
type MalformedResultError struct {
	JobID string
	Mode  string
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("analysis job %s completed with a malformed result for mode %s", e.JobID, e.Mode)
}

// AggregationFailedError indicates one or more per-video analyses required
// for combination were missing or malformed. No partial combined report is
// produced.
type AggregationFailedError struct {
	Message string
}

func (e *AggregationFailedError) Error() string {
	return "aggregation failed: " + e.Message
}

// TransientFailureLimitError indicates the poller saw too many consecutive
// transient failures and escalated to a terminal error.
type TransientFailureLimitError struct {
	JobID    string
	Failures int
	Last     error
}

func (e *TransientFailureLimitError) Error() string {
	return fmt.Sprintf("polling job %s: %d consecutive transient failures, last: %v", e.JobID, e.Failures, e.Last)
}

func (e *TransientFailureLimitError) Unwrap() error { return e.Last }
