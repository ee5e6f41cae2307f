package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type chatRequest struct {
	UserMessage   string `json:"userMessage"`
	SystemMessage string `json:"systemMessage"`
	UseCase       string `json:"useCase"`
}

type chatResponse struct {
	BotResponse string `json:"botResponse"`
}

func (a *App) ChatCompletion(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgInvalidPayload))
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgUserMessageRequired))
		return
	}

	reply, err := a.Chat.Complete(r.Context(), req.UserMessage, req.SystemMessage)
	if err != nil {
		a.Logger.Error().Err(err).Str("use_case", req.UseCase).Msg("chat completion failed")
		a.error(w, http.StatusBadGateway, "upstream_error", a.msg(r, msgChatUpstreamFailed))
		return
	}
	a.json(w, http.StatusOK, chatResponse{BotResponse: reply})
}
