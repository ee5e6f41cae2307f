package handlers

import (
	"errors"
	"net/http"

	"aichat/internal/transform"
)

const maxUploadBytes = 20 << 20

// ImageParsing relays an uploaded image to the analysis service and returns
// its description of the content.
func (a *App) ImageParsing(w http.ResponseWriter, r *http.Request) {
	a.forwardMultipart(w, r)
}

// ImageToImage relays an uploaded image plus an edit instruction and returns
// the transformed result.
func (a *App) ImageToImage(w http.ResponseWriter, r *http.Request) {
	a.forwardMultipart(w, r)
}

func (a *App) forwardMultipart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgInvalidMultipart))
		return
	}

	fields := transform.Fields{
		ModelID:  r.FormValue("model_id"),
		Content:  r.FormValue("content"),
		Size:     r.FormValue("size"),
		GoogleID: r.FormValue("google_id"),
	}
	file, header, err := r.FormFile("img")
	switch {
	case err == nil:
		defer file.Close()
		fields.Image = file
		fields.ImageName = header.Filename
	case errors.Is(err, http.ErrMissingFile):
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgImageFileRequired))
		return
	default:
		a.error(w, http.StatusBadRequest, "bad_request", a.msg(r, msgImageFileUnreadable))
		return
	}

	outcome, err := a.Forwarder.Forward(r.Context(), fields)
	if err != nil {
		var upstream *transform.UpstreamError
		if errors.As(err, &upstream) {
			a.Logger.Warn().Int("status", upstream.StatusCode).Str("details", upstream.Details).Msg("analysis service rejected request")
			a.error(w, upstream.StatusCode, upstream.ErrorText, upstream.Details)
			return
		}
		a.Logger.Error().Err(err).Msg("analysis forward failed")
		a.error(w, http.StatusBadGateway, "upstream_error", a.msg(r, msgAnalysisFailed))
		return
	}
	if outcome.Raw != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(outcome.Raw))
		return
	}
	a.json(w, http.StatusOK, outcome)
}
