package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aichat/internal/infra"
)

// Fields is the multipart payload forwarded to the image-analysis service.
// Image is optional; the other fields pass through untouched.
type Fields struct {
	ModelID   string
	Content   string
	Size      string
	GoogleID  string
	ImageName string
	Image     io.Reader
}

// Outcome is the normalized success response. The service answers either
// JSON carrying one of Data/Text/Description, or a plain-text body which is
// passed through in Raw.
type Outcome struct {
	Data        string `json:"data,omitempty"`
	Text        string `json:"text,omitempty"`
	Description string `json:"description,omitempty"`
	Raw         string `json:"-"`
}

// UpstreamError carries the analysis service's rejection in a shape the
// presentation layer can render directly.
type UpstreamError struct {
	StatusCode int
	ErrorText  string
	Details    string
}

func (e *UpstreamError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("transform: upstream status %d: %s", e.StatusCode, e.Details)
	}
	return fmt.Sprintf("transform: upstream status %d", e.StatusCode)
}

// Options configures the forwarder.
type Options struct {
	TargetURL      string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Forwarder relays multipart requests to the external image-analysis and
// image-to-image service.
type Forwarder struct {
	targetURL  string
	httpClient *http.Client
	logger     infra.Logger
}

// NewForwarder constructs a forwarder with sane defaults.
func NewForwarder(opts Options) (*Forwarder, error) {
	target := strings.TrimSpace(opts.TargetURL)
	if target == "" {
		return nil, errors.New("transform: target url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = zerolog.New(io.Discard)
	}
	return &Forwarder{targetURL: target, httpClient: httpClient, logger: logger}, nil
}

// Forward relays the fields as one multipart request and normalizes the
// response. Upstream rejections come back as *UpstreamError with the
// service's msg/code mapped onto details/error text, so the caller never
// parses the foreign error shape itself.
func (f *Forwarder) Forward(ctx context.Context, fields Fields) (Outcome, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)

	formValues := map[string]string{
		"model_id":  fields.ModelID,
		"content":   fields.Content,
		"size":      fields.Size,
		"google_id": fields.GoogleID,
	}
	for name, value := range formValues {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return Outcome{}, fmt.Errorf("transform: write field %s: %w", name, err)
		}
	}
	if fields.Image != nil {
		name := fields.ImageName
		if name == "" {
			name = "image"
		}
		part, err := writer.CreateFormFile("img", name)
		if err != nil {
			return Outcome{}, fmt.Errorf("transform: create image part: %w", err)
		}
		if _, err := io.Copy(part, fields.Image); err != nil {
			return Outcome{}, fmt.Errorf("transform: copy image: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return Outcome{}, fmt.Errorf("transform: finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.targetURL, strings.NewReader(body.String()))
	if err != nil {
		return Outcome{}, fmt.Errorf("transform: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("transform: forward request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("transform: read response: %w", err)
	}
	text := string(raw)

	if resp.StatusCode >= 300 {
		return Outcome{}, decodeUpstreamError(resp.StatusCode, text)
	}

	var outcome Outcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		// Non-JSON success bodies are legal: the service sometimes answers
		// with a bare text description.
		f.logger.Warn().Int("status", resp.StatusCode).Msg("transform: non-json success body, passing through")
		return Outcome{Raw: text}, nil
	}
	return outcome, nil
}

func decodeUpstreamError(status int, body string) *UpstreamError {
	upstream := &UpstreamError{StatusCode: status}
	var decoded struct {
		Error   string          `json:"error"`
		Details string          `json:"details"`
		Msg     string          `json:"msg"`
		Code    json.RawMessage `json:"code"`
	}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		upstream.ErrorText = fmt.Sprintf("analysis API error: %d", status)
		upstream.Details = clip(body, 200)
		return upstream
	}
	upstream.ErrorText = decoded.Error
	upstream.Details = decoded.Details
	if upstream.Details == "" && decoded.Msg != "" {
		upstream.Details = decoded.Msg
	}
	if upstream.ErrorText == "" && len(decoded.Code) > 0 {
		upstream.ErrorText = fmt.Sprintf("API Error Code: %s", strings.Trim(string(decoded.Code), `"`))
	}
	if upstream.ErrorText == "" {
		upstream.ErrorText = fmt.Sprintf("analysis API error: %d", status)
	}
	return upstream
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
