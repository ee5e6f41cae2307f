package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"aichat/internal/history"
)

type appendHistoryRequest struct {
	Messages             []history.Message `json:"messages"`
	TitleHint            string            `json:"titleHint"`
	ActiveConversationID string            `json:"activeConversationId"`
}

type renameHistoryRequest struct {
	Title string `json:"title"`
}

func (a *App) HistoryList(w http.ResponseWriter, r *http.Request) {
	list, err := a.Store.List(r.Context(), ownerFromRequest(r))
	if err != nil {
		a.Logger.Error().Err(err).Msg("history list failed")
		a.error(w, http.StatusInternalServerError, "internal", a.msg(r, msgHistoryLoadFailed))
		return
	}
	if list == nil {
		list = []history.Conversation{}
	}
	a.json(w, http.StatusOK, map[string]any{"conversations": list})
}

func (a *App) HistoryGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, ok, err := a.Store.Load(r.Context(), ownerFromRequest(r), id)
	if err != nil {
		a.Logger.Error().Err(err).Msg("history load failed")
		a.error(w, http.StatusInternalServerError, "internal", a.msg(r, msgHistoryLoadFailed))
		return
	}
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", a.msg(r, msgConversationMissing))
		return
	}
	a.json(w, http.StatusOK, conv)
}

func (a *App) HistoryAppend(w http.ResponseWriter, r *http.Request) {
	var req appendHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgInvalidPayload))
		return
	}
	conv, err := a.Store.StartOrAppend(r.Context(), ownerFromRequest(r), req.Messages, req.TitleHint, req.ActiveConversationID)
	if err != nil {
		if errors.Is(err, history.ErrNoMessages) {
			a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgMessagesRequired))
			return
		}
		a.Logger.Error().Err(err).Msg("history append failed")
		a.error(w, http.StatusInternalServerError, "internal", a.msg(r, msgHistorySaveFailed))
		return
	}
	a.json(w, http.StatusCreated, conv)
}

func (a *App) HistoryRename(w http.ResponseWriter, r *http.Request) {
	var req renameHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgInvalidPayload))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgTitleRequired))
		return
	}
	if err := a.Store.Rename(r.Context(), ownerFromRequest(r), chi.URLParam(r, "id"), req.Title); err != nil {
		a.Logger.Error().Err(err).Msg("history rename failed")
		a.error(w, http.StatusInternalServerError, "internal", a.msg(r, msgHistorySaveFailed))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) HistoryDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.Delete(r.Context(), ownerFromRequest(r), chi.URLParam(r, "id")); err != nil {
		a.Logger.Error().Err(err).Msg("history delete failed")
		a.error(w, http.StatusInternalServerError, "internal", a.msg(r, msgHistorySaveFailed))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) HistoryClear(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.ClearAll(r.Context(), ownerFromRequest(r)); err != nil {
		a.Logger.Error().Err(err).Msg("history clear failed")
		a.error(w, http.StatusInternalServerError, "internal", a.msg(r, msgHistorySaveFailed))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
