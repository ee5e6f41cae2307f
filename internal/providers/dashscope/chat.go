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
)

const defaultSystemPrompt = "You are a helpful assistant."

// ChatOptions configures the synchronous chat-completions client, which talks
// to DashScope's OpenAI-compatible endpoint.
type ChatOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// ChatClient performs blocking chat-completion calls.
type ChatClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewChatClient constructs a chat client with sane defaults.
func NewChatClient(opts ChatOptions) *ChatClient {
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
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-plus"
	}
	return &ChatClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
	}
}

// Complete sends one user message (plus an optional system prompt) and
// returns the assistant's reply.
func (c *ChatClient) Complete(ctx context.Context, userMessage, systemMessage string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(userMessage) == "" {
		return "", errors.New("dashscope: user message is required")
	}
	system := strings.TrimSpace(systemMessage)
	if system == "" {
		system = defaultSystemPrompt
	}
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userMessage},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("dashscope: encode chat request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("dashscope: build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("dashscope: chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("dashscope: read chat response: %w", err)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("dashscope: chat status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("dashscope: decode chat response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if decoded.Message != "" {
			return "", fmt.Errorf("dashscope: %s (%s)", decoded.Message, decoded.Code)
		}
		return "", fmt.Errorf("dashscope: chat status %d", resp.StatusCode)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", errors.New("dashscope: chat response carried no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
