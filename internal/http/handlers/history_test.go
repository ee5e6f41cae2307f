package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"aichat/internal/history"
	"aichat/internal/history/kvstore"
)

func historyApp(t *testing.T) (*App, *history.Store) {
	t.Helper()
	store := history.NewStore(kvstore.NewMemory(), history.Options{})
	app := testApp()
	app.Store = store
	return app, store
}

func TestHistoryAppend_CreatesConversation(t *testing.T) {
	app, _ := historyApp(t)

	body := `{"messages":[{"sender":"user","text":"hello"}]}`
	req := httptest.NewRequest("POST", "/api/history", strings.NewReader(body))
	rr := httptest.NewRecorder()
	app.HistoryAppend(rr, req)

	if rr.Code != 201 {
		t.Fatalf("unexpected status code: got %d, want 201", rr.Code)
	}
	var conv history.Conversation
	if err := json.NewDecoder(rr.Body).Decode(&conv); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(conv.ID, "chat-") {
		t.Fatalf("unexpected conversation id: %q", conv.ID)
	}
	if conv.Title != "hello" {
		t.Fatalf("unexpected title: %q", conv.Title)
	}
}

func TestHistoryAppend_RejectsEmptyMessages(t *testing.T) {
	app, _ := historyApp(t)

	body := `{"messages":[{"sender":"user","text":""}]}`
	req := httptest.NewRequest("POST", "/api/history", strings.NewReader(body))
	rr := httptest.NewRecorder()
	app.HistoryAppend(rr, req)

	if rr.Code != 400 {
		t.Fatalf("unexpected status code: got %d, want 400", rr.Code)
	}
}

func TestHistoryList_EmptyIsNotNull(t *testing.T) {
	app, _ := historyApp(t)

	req := httptest.NewRequest("GET", "/api/history", nil)
	rr := httptest.NewRecorder()
	app.HistoryList(rr, req)

	if rr.Code != 200 {
		t.Fatalf("unexpected status code: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"conversations":[]`) {
		t.Fatalf("expected empty array, got %s", rr.Body.String())
	}
}

func TestHistoryGet_UnknownIDIs404(t *testing.T) {
	app, _ := historyApp(t)

	req := withURLParam(httptest.NewRequest("GET", "/api/history/chat-missing", nil), "id", "chat-missing")
	rr := httptest.NewRecorder()
	app.HistoryGet(rr, req)

	if rr.Code != 404 {
		t.Fatalf("unexpected status code: got %d, want 404", rr.Code)
	}
}

func TestHistoryRename_UpdatesTitle(t *testing.T) {
	app, store := historyApp(t)
	conv, err := store.StartOrAppend(context.Background(), "", []history.Message{{Sender: history.SenderUser, Text: "hello"}}, "", "")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	req := withURLParam(httptest.NewRequest("PATCH", "/api/history/"+conv.ID, strings.NewReader(`{"title":"renamed"}`)), "id", conv.ID)
	rr := httptest.NewRecorder()
	app.HistoryRename(rr, req)

	if rr.Code != 204 {
		t.Fatalf("unexpected status code: got %d, want 204", rr.Code)
	}
	got, ok, err := store.Load(context.Background(), "", conv.ID)
	if err != nil || !ok {
		t.Fatalf("reload conversation: ok=%v err=%v", ok, err)
	}
	if got.Title != "renamed" {
		t.Fatalf("title not updated: %q", got.Title)
	}
}

func TestHistoryDelete_RemovesConversation(t *testing.T) {
	app, store := historyApp(t)
	conv, err := store.StartOrAppend(context.Background(), "", []history.Message{{Sender: history.SenderUser, Text: "hello"}}, "", "")
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	req := withURLParam(httptest.NewRequest("DELETE", "/api/history/"+conv.ID, nil), "id", conv.ID)
	rr := httptest.NewRecorder()
	app.HistoryDelete(rr, req)

	if rr.Code != 204 {
		t.Fatalf("unexpected status code: got %d, want 204", rr.Code)
	}
	_, ok, err := store.Load(context.Background(), "", conv.ID)
	if err != nil {
		t.Fatalf("reload conversation: %v", err)
	}
	if ok {
		t.Fatalf("conversation still present after delete")
	}
}

func TestHistoryClear_EmptiesOwnerScope(t *testing.T) {
	app, store := historyApp(t)
	if _, err := store.StartOrAppend(context.Background(), "alice", []history.Message{{Sender: history.SenderUser, Text: "hello"}}, "", ""); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	req := httptest.NewRequest("DELETE", "/api/history?owner=alice", nil)
	rr := httptest.NewRecorder()
	app.HistoryClear(rr, req)

	if rr.Code != 204 {
		t.Fatalf("unexpected status code: got %d, want 204", rr.Code)
	}
	list, err := store.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty history, got %d conversations", len(list))
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
