package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"aichat/internal/generation"
)

type generateImageRequest struct {
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	NegativePrompt string `json:"negativePrompt"`
}

type generateImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

func (a *App) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req generateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgInvalidPayload))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgPromptRequired))
		return
	}

	negative := req.NegativePrompt
	if negative == "" {
		negative = a.Config.NegativePrompt
	}
	artifact, err := a.Runner.Run(r.Context(), generation.SubmitRequest{
		Prompt:         req.Prompt,
		Size:           req.Size,
		NegativePrompt: negative,
	})
	if err != nil {
		a.respondGenerationError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, generateImageResponse{ImageURL: artifact.ImageURL})
}

// respondGenerationError maps the poller's typed failures onto HTTP statuses.
// Timeouts get 504 so clients can offer a retry; everything else the upstream
// did wrong is a 502. Details are rendered in the request's locale.
func (a *App) respondGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	var submission *generation.SubmissionError
	var failed *generation.TaskFailedError
	var timeout *generation.TaskTimeoutError
	var malformed *generation.MalformedSuccessError

	switch {
	case errors.As(err, &submission):
		a.Logger.Error().Err(err).Msg("image generation submission rejected")
		a.error(w, http.StatusBadGateway, "submission_failed", a.msg(r, msgSubmissionFailed))
	case errors.As(err, &timeout):
		a.Logger.Warn().Err(err).Int("attempts", timeout.Attempts).Msg("image generation timed out")
		a.error(w, http.StatusGatewayTimeout, "generation_timeout", a.msg(r, msgGenerationTimeout))
	case errors.As(err, &malformed):
		a.Logger.Error().Err(err).Msg("image generation succeeded without a result")
		a.error(w, http.StatusBadGateway, "malformed_result", a.msg(r, msgMalformedResult))
	case errors.As(err, &failed):
		a.Logger.Error().Err(err).Msg("image generation failed")
		details := a.msg(r, msgGenerationFailed)
		if failed.Message != "" {
			details = failed.Message
		}
		a.error(w, http.StatusBadGateway, "generation_failed", details)
	default:
		a.Logger.Error().Err(err).Msg("image generation aborted")
		a.error(w, http.StatusInternalServerError, "internal", a.msg(r, msgGenerationAborted))
	}
}
