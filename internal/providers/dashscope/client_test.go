package dashscope

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"aichat/internal/generation"
)

func TestSubmitImageTask(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if got := r.Header.Get("X-DashScope-Async"); got != "enable" {
			t.Fatalf("expected async header, got %q", got)
		}
		if r.URL.Path != "/services/aigc/text2image/image-synthesis" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var payload synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if payload.Model != "wanx2.1-t2i-turbo" {
			t.Fatalf("unexpected model: %s", payload.Model)
		}
		if payload.Input.Prompt != "a cat" {
			t.Fatalf("unexpected prompt: %s", payload.Input.Prompt)
		}
		if payload.Parameters.Size != "1024*1024" {
			t.Fatalf("unexpected size: %s", payload.Parameters.Size)
		}
		if payload.Parameters.N != 1 {
			t.Fatalf("unexpected n: %d", payload.Parameters.N)
		}
		resp := synthesisResponse{}
		resp.Output.TaskID = "task-123"
		resp.Output.TaskStatus = "PENDING"
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	sub, err := client.SubmitImageTask(context.Background(), generation.SubmitRequest{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("SubmitImageTask error: %v", err)
	}
	if sub.TaskID != "task-123" {
		t.Fatalf("unexpected task id: %s", sub.TaskID)
	}
	if sub.Status != generation.StatusPending {
		t.Fatalf("unexpected status: %s", sub.Status)
	}
}

func TestSubmitImageTaskMissingTaskID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid model", "code": "InvalidParameter"})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	_, err := client.SubmitImageTask(context.Background(), generation.SubmitRequest{Prompt: "a cat"})
	var se *generation.SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if se.Detail != "invalid model" {
		t.Fatalf("unexpected detail: %s", se.Detail)
	}
}

func TestSubmitImageTaskMissingKey(t *testing.T) {
	client := NewClient(Options{})
	if _, err := client.SubmitImageTask(context.Background(), generation.SubmitRequest{Prompt: "a cat"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestSubmitImageTaskEmptyPrompt(t *testing.T) {
	client := NewClient(Options{APIKey: "test-key"})
	if _, err := client.SubmitImageTask(context.Background(), generation.SubmitRequest{}); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestQueryTaskSucceeded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/task-123" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		resp := taskResponse{}
		resp.Output.TaskID = "task-123"
		resp.Output.TaskStatus = "SUCCEEDED"
		resp.Output.Results = []struct {
			URL string `json:"url"`
		}{{URL: "https://x/img.png"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	update, err := client.QueryTask(context.Background(), "task-123")
	if err != nil {
		t.Fatalf("QueryTask error: %v", err)
	}
	if update.Status != generation.StatusSucceeded {
		t.Fatalf("unexpected status: %s", update.Status)
	}
	if update.ImageURL != "https://x/img.png" {
		t.Fatalf("unexpected image url: %s", update.ImageURL)
	}
}

func TestQueryTaskFailedCarriesMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := taskResponse{}
		resp.Output.TaskStatus = "FAILED"
		resp.Output.Message = "content policy violation"
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	update, err := client.QueryTask(context.Background(), "task-123")
	if err != nil {
		t.Fatalf("QueryTask error: %v", err)
	}
	if update.Status != generation.StatusFailed {
		t.Fatalf("unexpected status: %s", update.Status)
	}
	if update.Message != "content policy violation" {
		t.Fatalf("unexpected message: %s", update.Message)
	}
}

func TestQueryTaskMissingStatusIsMalformed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "upstream hiccup"})
	}))
	defer ts.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	update, err := client.QueryTask(context.Background(), "task-123")
	if err != nil {
		t.Fatalf("QueryTask error: %v", err)
	}
	if !update.Malformed {
		t.Fatalf("expected malformed update, got %+v", update)
	}
}
