package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scribe-backend/internal/http/response"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/relay/stream"
	"github.com/yungbote/scribe-backend/internal/services"
)

type RelayHandler struct {
	log   *logger.Logger
	relay services.RelayService
}

func NewRelayHandler(log *logger.Logger, relay services.RelayService) *RelayHandler {
	return &RelayHandler{
		log:   log.With("handler", "RelayHandler"),
		relay: relay,
	}
}

// Turn runs one user turn. With stream=false the full content returns as one
// JSON object; with stream=true canonical events flow as SSE frames closed by
// a [DONE] sentinel.
func (h *RelayHandler) Turn(c *gin.Context) {
	var req services.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}

	if !req.Stream {
		result, err := h.relay.Turn(dbc, req, nil)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"content": result.Content})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	emit := func(ev stream.Event) {
		raw, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Kind, raw)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if _, err := h.relay.Turn(dbc, req, emit); err != nil {
		// Headers are already out; the error has been surfaced as an event.
		h.log.Warn("relay turn ended with error", "session_id", req.SessionID, "error", err)
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
