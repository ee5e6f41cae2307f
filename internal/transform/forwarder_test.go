package transform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestForwardRelaysMultipartFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model_id"); got != "5" {
			t.Fatalf("unexpected model_id: %s", got)
		}
		if got := r.FormValue("content"); got != "make it blue" {
			t.Fatalf("unexpected content: %s", got)
		}
		if got := r.FormValue("google_id"); got != "g-123" {
			t.Fatalf("unexpected google_id: %s", got)
		}
		file, header, err := r.FormFile("img")
		if err != nil {
			t.Fatalf("missing img part: %v", err)
		}
		defer file.Close()
		if header.Filename != "photo.png" {
			t.Fatalf("unexpected filename: %s", header.Filename)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"data": "https://x/out.png"})
	}))
	defer ts.Close()

	fwd, err := NewForwarder(Options{TargetURL: ts.URL})
	if err != nil {
		t.Fatalf("NewForwarder error: %v", err)
	}
	outcome, err := fwd.Forward(context.Background(), Fields{
		ModelID:   "5",
		Content:   "make it blue",
		GoogleID:  "g-123",
		ImageName: "photo.png",
		Image:     strings.NewReader("fake-png-bytes"),
	})
	if err != nil {
		t.Fatalf("Forward error: %v", err)
	}
	if outcome.Data != "https://x/out.png" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestForwardPassesThroughTextBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("a plain description"))
	}))
	defer ts.Close()

	fwd, _ := NewForwarder(Options{TargetURL: ts.URL})
	outcome, err := fwd.Forward(context.Background(), Fields{ModelID: "5", Content: "describe"})
	if err != nil {
		t.Fatalf("Forward error: %v", err)
	}
	if outcome.Raw != "a plain description" {
		t.Fatalf("unexpected raw body: %q", outcome.Raw)
	}
}

func TestForwardNormalizesUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 400, "msg": "图片格式不正确"})
	}))
	defer ts.Close()

	fwd, _ := NewForwarder(Options{TargetURL: ts.URL})
	_, err := fwd.Forward(context.Background(), Fields{ModelID: "5"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Details != "图片格式不正确" {
		t.Fatalf("msg not mapped to details: %+v", upstream)
	}
	if upstream.ErrorText != "API Error Code: 400" {
		t.Fatalf("code not mapped to error text: %+v", upstream)
	}
}

func TestForwardClipsNonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer ts.Close()

	fwd, _ := NewForwarder(Options{TargetURL: ts.URL})
	_, err := fwd.Forward(context.Background(), Fields{ModelID: "5"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if len(upstream.Details) != 200 {
		t.Fatalf("expected details clipped to 200 bytes, got %d", len(upstream.Details))
	}
}
