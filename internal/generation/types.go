package generation

// Status is the lifecycle state of an asynchronous generation task.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"

	// StatusTimedOut is derived client-side when the retry budget is
	// exhausted; the upstream provider never reports this value.
	StatusTimedOut Status = "TIMED_OUT"
)

// Terminal reports whether no further polling can change the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// SubmitRequest carries the inputs for one text-to-image task submission.
type SubmitRequest struct {
	Prompt         string
	Size           string
	NegativePrompt string
}

// Submission is the provider's answer to a task-creation call.
type Submission struct {
	TaskID string
	Status Status
}

// TaskUpdate is one decoded poll response, modeled as a tagged variant so the
// poll loop never branches on raw provider fields. Malformed marks a response
// that lacked a status field entirely; such updates leave the task state
// untouched but still consume a polling attempt.
type TaskUpdate struct {
	Status    Status
	ImageURL  string
	Message   string
	Malformed bool
}

// Task tracks a single in-flight generation job between submission and its
// terminal outcome. It never outlives one Run call.
type Task struct {
	ID       string
	Status   Status
	Attempts int
}

// Artifact references a generated image.
type Artifact struct {
	ImageURL string
}
