package providers

import (
	"context"
	"fmt"
	"io"
)

// Message is one turn of rendered conversation history sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

// Adapter is one upstream model vendor. Stream returns the raw upstream body;
// normalization into relay events happens downstream so adapters stay thin.
type Adapter interface {
	Name() string
	Label() string
	DefaultModel() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Stream(ctx context.Context, req CompletionRequest) (io.ReadCloser, error)
}

// HTTPError carries the upstream status and body verbatim so the relay can
// surface vendor failures without guessing at their shape.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("%s upstream error (%d): %s", e.Provider, e.StatusCode, body)
}
