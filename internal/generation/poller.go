package generation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"aichat/internal/infra"
)

// Submitter creates a generation task upstream. Implementations must return a
// *SubmissionError (or any error, which the runner normalizes) when the
// provider rejects the call.
type Submitter interface {
	SubmitImageTask(ctx context.Context, req SubmitRequest) (Submission, error)
}

// StatusQuerier fetches the current state of a task. Transport-level failures
// are returned as errors; structurally malformed bodies are reported via
// TaskUpdate.Malformed and do not abort the poll loop.
type StatusQuerier interface {
	QueryTask(ctx context.Context, taskID string) (TaskUpdate, error)
}

// Options bounds the polling loop. The worst-case wall-clock time is
// MaxAttempts * PollInterval plus the duration of the individual calls; the
// interval is measured between poll initiations, not as a hard deadline.
type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	Logger       *infra.Logger
}

// Runner drives one asynchronous generation task from submission to a
// terminal outcome behind a single blocking call.
type Runner struct {
	submitter Submitter
	querier   StatusQuerier
	interval  time.Duration
	budget    int
	logger    infra.Logger
}

// NewRunner wires a poller around a provider client with sane defaults.
func NewRunner(submitter Submitter, querier StatusQuerier, opts Options) *Runner {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	budget := opts.MaxAttempts
	if budget <= 0 {
		budget = 30
	}
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = zerolog.New(io.Discard)
	}
	return &Runner{
		submitter: submitter,
		querier:   querier,
		interval:  interval,
		budget:    budget,
		logger:    logger,
	}
}

// Run submits the request and polls until the task reaches a terminal state,
// the retry budget runs out, or ctx is canceled. Every failure is one of the
// typed errors from this package, never a raw transport error.
func (r *Runner) Run(ctx context.Context, req SubmitRequest) (Artifact, error) {
	sub, err := r.submitter.SubmitImageTask(ctx, req)
	if err != nil {
		if se, ok := err.(*SubmissionError); ok {
			return Artifact{}, se
		}
		return Artifact{}, &SubmissionError{Cause: err}
	}
	if sub.TaskID == "" {
		return Artifact{}, &SubmissionError{Detail: "response missing task id"}
	}
	tasksSubmitted.Inc()

	task := Task{ID: sub.TaskID, Status: sub.Status}
	if task.Status == "" {
		task.Status = StatusPending
	}
	r.logger.Info().Str("task_id", task.ID).Str("status", string(task.Status)).Msg("generation: task submitted")

	var last TaskUpdate
	for (task.Status == StatusPending || task.Status == StatusRunning) && task.Attempts < r.budget {
		if err := r.sleep(ctx); err != nil {
			tasksFinished.WithLabelValues(outcomeCanceled).Inc()
			return Artifact{}, fmt.Errorf("generation: task %s: %w", task.ID, err)
		}
		task.Attempts++
		pollsIssued.Inc()

		update, err := r.querier.QueryTask(ctx, task.ID)
		if err != nil {
			tasksFinished.WithLabelValues(outcomeFailed).Inc()
			return Artifact{}, &TaskFailedError{TaskID: task.ID, Cause: err}
		}
		if update.Malformed {
			r.logger.Warn().Str("task_id", task.ID).Int("attempt", task.Attempts).Msg("generation: malformed poll response, continuing")
			continue
		}
		last = update
		task.Status = update.Status
		r.logger.Debug().Str("task_id", task.ID).Int("attempt", task.Attempts).Str("status", string(task.Status)).Msg("generation: polled task")
	}

	switch task.Status {
	case StatusSucceeded:
		if last.ImageURL == "" {
			tasksFinished.WithLabelValues(outcomeMalformedSuccess).Inc()
			return Artifact{}, &MalformedSuccessError{TaskID: task.ID}
		}
		tasksFinished.WithLabelValues(outcomeSucceeded).Inc()
		r.logger.Info().Str("task_id", task.ID).Int("attempts", task.Attempts).Msg("generation: task succeeded")
		return Artifact{ImageURL: last.ImageURL}, nil
	case StatusFailed:
		tasksFinished.WithLabelValues(outcomeFailed).Inc()
		return Artifact{}, &TaskFailedError{TaskID: task.ID, Message: last.Message}
	default:
		tasksFinished.WithLabelValues(outcomeTimedOut).Inc()
		return Artifact{}, &TaskTimeoutError{TaskID: task.ID, Attempts: task.Attempts, LastStatus: task.Status}
	}
}

// sleep suspends for one poll interval or until ctx is canceled.
func (r *Runner) sleep(ctx context.Context) error {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
