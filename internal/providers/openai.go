package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

// openaiAdapter speaks the OpenAI chat-completions wire shape. The xAI and
// local (Ollama) backends expose the same shape, so they reuse this adapter
// with a different base URL and name.
type openaiAdapter struct {
	log          *logger.Logger
	name         string
	label        string
	baseURL      string
	apiKey       string
	defaultModel string
	httpClient   *http.Client
}

type OpenAIOptions struct {
	Name         string
	Label        string
	BaseURL      string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
}

func NewOpenAIAdapter(log *logger.Logger, opts OpenAIOptions) Adapter {
	if opts.Name == "" {
		opts.Name = "openai"
	}
	if opts.Label == "" {
		opts.Label = "Codex"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "gpt-5.2-codex"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &openaiAdapter{
		log:          log.With("adapter", opts.Name),
		name:         opts.Name,
		label:        opts.Label,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		defaultModel: opts.DefaultModel,
		httpClient:   &http.Client{Timeout: opts.Timeout},
	}
}

func (a *openaiAdapter) Name() string         { return a.name }
func (a *openaiAdapter) Label() string        { return a.label }
func (a *openaiAdapter) DefaultModel() string { return a.defaultModel }

type openaiChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *openaiAdapter) do(ctx context.Context, req CompletionRequest, stream bool) (*http.Response, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = a.defaultModel
	}
	body, err := json.Marshal(openaiChatRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", a.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &HTTPError{Provider: a.name, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

func (a *openaiAdapter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := a.do(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed openaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%s decode response: %w", a.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

func (a *openaiAdapter) Stream(ctx context.Context, req CompletionRequest) (io.ReadCloser, error) {
	resp, err := a.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
