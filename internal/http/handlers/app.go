package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"aichat/internal/generation"
	"aichat/internal/history"
	"aichat/internal/infra"
	"aichat/internal/transform"
)

// ChatCompleter is the synchronous chat surface of the provider client.
type ChatCompleter interface {
	Complete(ctx context.Context, userMessage, systemMessage string) (string, error)
}

// ImageRunner drives one asynchronous image-generation task to completion.
type ImageRunner interface {
	Run(ctx context.Context, req generation.SubmitRequest) (generation.Artifact, error)
}

// ImageForwarder relays multipart payloads to the external analysis service.
type ImageForwarder interface {
	Forward(ctx context.Context, fields transform.Fields) (transform.Outcome, error)
}

type App struct {
	Config    *infra.Config
	Logger    infra.Logger
	Store     *history.Store
	Runner    ImageRunner
	Chat      ChatCompleter
	Forwarder ImageForwarder
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, details string) {
	a.json(w, code, map[string]string{"error": kind, "details": details})
}

// ownerFromRequest scopes history to a caller-supplied identity. Absent any,
// everything lands under the shared default key.
func ownerFromRequest(r *http.Request) string {
	if owner := strings.TrimSpace(r.URL.Query().Get("owner")); owner != "" {
		return owner
	}
	return strings.TrimSpace(r.Header.Get("X-Owner-ID"))
}
