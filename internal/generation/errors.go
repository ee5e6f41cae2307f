package generation

import "fmt"

// SubmissionError indicates the upstream rejected or mangled the
// task-creation call. Submissions are never retried.
type SubmissionError struct {
	StatusCode int
	Detail     string
	Cause      error
}

func (e *SubmissionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("generation: submission rejected: %s", e.Detail)
	}
	if e.Cause != nil {
		return fmt.Sprintf("generation: submission failed: %v", e.Cause)
	}
	return "generation: submission failed"
}

func (e *SubmissionError) Unwrap() error { return e.Cause }

// TaskFailedError indicates the upstream explicitly reported task failure.
type TaskFailedError struct {
	TaskID  string
	Message string
	Cause   error
}

func (e *TaskFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("generation: task %s failed: %s", e.TaskID, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("generation: task %s failed: %v", e.TaskID, e.Cause)
	}
	return fmt.Sprintf("generation: task %s failed", e.TaskID)
}

func (e *TaskFailedError) Unwrap() error { return e.Cause }

// TaskTimeoutError indicates the retry budget ran out while the task was
// still pending or running. Callers can offer "try again" messaging, which
// is why this is distinct from TaskFailedError.
type TaskTimeoutError struct {
	TaskID     string
	Attempts   int
	LastStatus Status
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("generation: task %s still %s after %d polls", e.TaskID, e.LastStatus, e.Attempts)
}

// MalformedSuccessError indicates a SUCCEEDED status without a usable result
// reference, which is a contract violation on the provider side.
type MalformedSuccessError struct {
	TaskID string
}

func (e *MalformedSuccessError) Error() string {
	return fmt.Sprintf("generation: task %s succeeded but returned no image url", e.TaskID)
}
