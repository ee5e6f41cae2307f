package generation

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubProvider struct {
	submission Submission
	submitErr  error
	updates    []TaskUpdate
	queryErr   error
	polls      int
}

func (s *stubProvider) SubmitImageTask(ctx context.Context, req SubmitRequest) (Submission, error) {
	if s.submitErr != nil {
		return Submission{}, s.submitErr
	}
	return s.submission, nil
}

func (s *stubProvider) QueryTask(ctx context.Context, taskID string) (TaskUpdate, error) {
	s.polls++
	if s.queryErr != nil {
		return TaskUpdate{}, s.queryErr
	}
	if len(s.updates) == 0 {
		return TaskUpdate{Status: StatusRunning}, nil
	}
	update := s.updates[0]
	if len(s.updates) > 1 {
		s.updates = s.updates[1:]
	}
	return update, nil
}

func newTestRunner(p *stubProvider, maxAttempts int) *Runner {
	return NewRunner(p, p, Options{PollInterval: time.Millisecond, MaxAttempts: maxAttempts})
}

func TestRunResolvesAfterTwoPolls(t *testing.T) {
	p := &stubProvider{
		submission: Submission{TaskID: "task-1", Status: StatusPending},
		updates: []TaskUpdate{
			{Status: StatusRunning},
			{Status: StatusSucceeded, ImageURL: "https://x/img.png"},
		},
	}
	runner := newTestRunner(p, 30)

	artifact, err := runner.Run(context.Background(), SubmitRequest{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if artifact.ImageURL != "https://x/img.png" {
		t.Fatalf("unexpected artifact url: %s", artifact.ImageURL)
	}
	if p.polls != 2 {
		t.Fatalf("expected exactly 2 polls, got %d", p.polls)
	}
}

func TestRunMissingTaskIDFailsWithoutPolling(t *testing.T) {
	p := &stubProvider{submission: Submission{Status: StatusPending}}
	runner := newTestRunner(p, 30)

	_, err := runner.Run(context.Background(), SubmitRequest{Prompt: "a cat"})
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if p.polls != 0 {
		t.Fatalf("expected zero polls, got %d", p.polls)
	}
}

func TestRunSubmitTransportErrorNormalized(t *testing.T) {
	p := &stubProvider{submitErr: errors.New("connection refused")}
	runner := newTestRunner(p, 30)

	_, err := runner.Run(context.Background(), SubmitRequest{Prompt: "a cat"})
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
}

func TestRunTimesOutAfterBudget(t *testing.T) {
	p := &stubProvider{submission: Submission{TaskID: "task-2", Status: StatusRunning}}
	runner := newTestRunner(p, 30)

	_, err := runner.Run(context.Background(), SubmitRequest{Prompt: "a cat"})
	var te *TaskTimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TaskTimeoutError, got %v", err)
	}
	if p.polls != 30 {
		t.Fatalf("expected exactly 30 polls, got %d", p.polls)
	}
	if te.Attempts != 30 {
		t.Fatalf("expected 30 attempts recorded, got %d", te.Attempts)
	}
	if te.LastStatus != StatusRunning {
		t.Fatalf("unexpected last status: %s", te.LastStatus)
	}
}

func TestRunNoPollingAfterTerminalStatus(t *testing.T) {
	p := &stubProvider{
		submission: Submission{TaskID: "task-3", Status: StatusPending},
		updates:    []TaskUpdate{{Status: StatusFailed, Message: "prompt rejected"}},
	}
	runner := newTestRunner(p, 30)

	_, err := runner.Run(context.Background(), SubmitRequest{Prompt: "bad prompt"})
	var fe *TaskFailedError
	if !errors.As(err, &fe) {
		t.Fatalf("expected TaskFailedError, got %v", err)
	}
	if fe.Message != "prompt rejected" {
		t.Fatalf("unexpected failure message: %s", fe.Message)
	}
	if p.polls != 1 {
		t.Fatalf("expected polling to stop at the terminal poll, got %d polls", p.polls)
	}
}

func TestRunMalformedUpdateConsumesAttempt(t *testing.T) {
	p := &stubProvider{
		submission: Submission{TaskID: "task-4", Status: StatusPending},
		updates: []TaskUpdate{
			{Malformed: true},
			{Malformed: true},
			{Status: StatusSucceeded, ImageURL: "https://x/late.png"},
		},
	}
	runner := newTestRunner(p, 30)

	artifact, err := runner.Run(context.Background(), SubmitRequest{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if artifact.ImageURL != "https://x/late.png" {
		t.Fatalf("unexpected artifact url: %s", artifact.ImageURL)
	}
	if p.polls != 3 {
		t.Fatalf("expected malformed responses to consume attempts, got %d polls", p.polls)
	}
}

func TestRunMalformedOnlyUpdatesTimeOut(t *testing.T) {
	p := &stubProvider{
		submission: Submission{TaskID: "task-5", Status: StatusPending},
		updates:    []TaskUpdate{{Malformed: true}},
	}
	runner := newTestRunner(p, 5)

	_, err := runner.Run(context.Background(), SubmitRequest{Prompt: "a cat"})
	var te *TaskTimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TaskTimeoutError, got %v", err)
	}
	if te.LastStatus != StatusPending {
		t.Fatalf("malformed updates must not change status, got %s", te.LastStatus)
	}
	if p.polls != 5 {
		t.Fatalf("expected 5 polls, got %d", p.polls)
	}
}

func TestRunSuccessWithoutURLIsMalformedSuccess(t *testing.T) {
	p := &stubProvider{
		submission: Submission{TaskID: "task-6", Status: StatusRunning},
		updates:    []TaskUpdate{{Status: StatusSucceeded}},
	}
	runner := newTestRunner(p, 30)

	_, err := runner.Run(context.Background(), SubmitRequest{Prompt: "a cat"})
	var me *MalformedSuccessError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedSuccessError, got %v", err)
	}
}

func TestRunPollTransportErrorBecomesTaskFailed(t *testing.T) {
	p := &stubProvider{
		submission: Submission{TaskID: "task-7", Status: StatusPending},
		queryErr:   errors.New("connection reset"),
	}
	runner := newTestRunner(p, 30)

	_, err := runner.Run(context.Background(), SubmitRequest{Prompt: "a cat"})
	var fe *TaskFailedError
	if !errors.As(err, &fe) {
		t.Fatalf("expected TaskFailedError, got %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	p := &stubProvider{submission: Submission{TaskID: "task-8", Status: StatusRunning}}
	runner := NewRunner(p, p, Options{PollInterval: time.Hour, MaxAttempts: 30})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, SubmitRequest{Prompt: "a cat"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.polls != 0 {
		t.Fatalf("expected no polls after cancellation, got %d", p.polls)
	}
}
