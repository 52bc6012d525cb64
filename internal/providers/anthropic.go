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

const anthropicVersion = "2023-06-01"

type anthropicAdapter struct {
	log          *logger.Logger
	baseURL      string
	apiKey       string
	defaultModel string
	httpClient   *http.Client
}

type AnthropicOptions struct {
	BaseURL      string
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
}

func NewAnthropicAdapter(log *logger.Logger, opts AnthropicOptions) Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.anthropic.com"
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "claude-opus-4-1-20250805"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &anthropicAdapter{
		log:          log.With("adapter", "anthropic"),
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		defaultModel: opts.DefaultModel,
		httpClient:   &http.Client{Timeout: opts.Timeout},
	}
}

func (a *anthropicAdapter) Name() string         { return "anthropic" }
func (a *anthropicAdapter) Label() string        { return "Claude" }
func (a *anthropicAdapter) DefaultModel() string { return a.defaultModel }

type anthropicRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// do splits system messages out of the transcript: Anthropic takes the system
// prompt as a top-level field, not a message role.
func (a *anthropicAdapter) do(ctx context.Context, req CompletionRequest, stream bool) (*http.Response, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = a.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var systemParts []string
	msgs := make([]Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			systemParts = append(systemParts, m.Content)
			continue
		}
		msgs = append(msgs, m)
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		System:    strings.Join(systemParts, "\n\n"),
		Messages:  msgs,
		MaxTokens: maxTokens,
		Stream:    stream,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &HTTPError{Provider: "anthropic", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

func (a *anthropicAdapter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := a.do(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("anthropic decode response: %w", err)
	}
	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (a *anthropicAdapter) Stream(ctx context.Context, req CompletionRequest) (io.ReadCloser, error) {
	resp, err := a.do(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
