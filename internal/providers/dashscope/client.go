package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aichat/internal/generation"
	"aichat/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("dashscope: api key is required")

// Options configures the DashScope asynchronous image-synthesis client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultSize    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the DashScope text-to-image task API. It
// satisfies generation.Submitter and generation.StatusQuerier.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	defaultSize string
	httpClient  *http.Client
	logger      infra.Logger
}

type synthesisRequest struct {
	Model      string          `json:"model"`
	Input      synthesisInput  `json:"input"`
	Parameters synthesisParams `json:"parameters"`
}

type synthesisInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type synthesisParams struct {
	Size string `json:"size,omitempty"`
	N    int    `json:"n"`
}

type synthesisResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type taskResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Message    string `json:"message"`
		Results    []struct {
			URL string `json:"url"`
		} `json:"results"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "wanx2.1-t2i-turbo"
	}
	defaultSize := strings.TrimSpace(opts.DefaultSize)
	if defaultSize == "" {
		defaultSize = "1024*1024"
	}
	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = zerolog.New(io.Discard)
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		model:       model,
		defaultSize: defaultSize,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// SubmitImageTask initiates an asynchronous text-to-image task. A rejected or
// incomplete submission is reported as *generation.SubmissionError; there is
// no retry at this stage.
func (c *Client) SubmitImageTask(ctx context.Context, req generation.SubmitRequest) (generation.Submission, error) {
	if c.apiKey == "" {
		return generation.Submission{}, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return generation.Submission{}, errors.New("dashscope: prompt is required")
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = c.defaultSize
	}
	payload := synthesisRequest{
		Model: c.model,
		Input: synthesisInput{
			Prompt:         prompt,
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		},
		Parameters: synthesisParams{Size: size, N: 1},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return generation.Submission{}, fmt.Errorf("dashscope: encode request: %w", err)
	}

	endpoint := c.baseURL + "/services/aigc/text2image/image-synthesis"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return generation.Submission{}, fmt.Errorf("dashscope: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-DashScope-Async", "enable")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generation.Submission{}, fmt.Errorf("dashscope: submit task: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return generation.Submission{}, fmt.Errorf("dashscope: read response: %w", err)
	}

	var decoded synthesisResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode >= 300 || decodeErr != nil || decoded.Output.TaskID == "" {
		detail := strings.TrimSpace(decoded.Message)
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		return generation.Submission{}, &generation.SubmissionError{
			StatusCode: resp.StatusCode,
			Detail:     detail,
		}
	}

	c.logger.Info().
		Str("task_id", decoded.Output.TaskID).
		Str("request_id", decoded.RequestID).
		Str("model", c.model).
		Msg("dashscope: image task submitted")

	return generation.Submission{
		TaskID: decoded.Output.TaskID,
		Status: generation.Status(decoded.Output.TaskStatus),
	}, nil
}

// QueryTask fetches the state of an in-flight task. A response that decodes
// but carries no task_status is reported as malformed rather than fatal, so
// the poll loop can keep going.
func (c *Client) QueryTask(ctx context.Context, taskID string) (generation.TaskUpdate, error) {
	if taskID == "" {
		return generation.TaskUpdate{}, errors.New("dashscope: task id is required")
	}
	endpoint := c.baseURL + "/tasks/" + taskID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return generation.TaskUpdate{}, fmt.Errorf("dashscope: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generation.TaskUpdate{}, fmt.Errorf("dashscope: query task %s: %w", taskID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return generation.TaskUpdate{}, fmt.Errorf("dashscope: read poll response: %w", err)
	}

	var decoded taskResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return generation.TaskUpdate{}, fmt.Errorf("dashscope: decode poll response: %w", err)
	}

	status := strings.TrimSpace(decoded.Output.TaskStatus)
	if status == "" {
		c.logger.Warn().Str("task_id", taskID).Int("http_status", resp.StatusCode).Msg("dashscope: poll response missing task_status")
		return generation.TaskUpdate{Malformed: true}, nil
	}

	update := generation.TaskUpdate{Status: generation.Status(status)}
	if update.Status == generation.StatusSucceeded {
		update.ImageURL = firstResultURL(decoded)
	}
	if update.Status == generation.StatusFailed {
		update.Message = strings.TrimSpace(decoded.Output.Message)
		if update.Message == "" {
			update.Message = strings.TrimSpace(decoded.Message)
		}
	}
	return update, nil
}

func firstResultURL(resp taskResponse) string {
	for _, result := range resp.Output.Results {
		if url := strings.TrimSpace(result.URL); url != "" {
			return url
		}
	}
	return ""
}

var (
	_ generation.Submitter     = (*Client)(nil)
	_ generation.StatusQuerier = (*Client)(nil)
)
