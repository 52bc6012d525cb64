package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/http/response"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/services"
)

type SessionHandler struct {
	log    *logger.Logger
	memory services.MemoryService
}

func NewSessionHandler(log *logger.Logger, memory services.MemoryService) *SessionHandler {
	return &SessionHandler{
		log:    log.With("handler", "SessionHandler"),
		memory: memory,
	}
}

// GetSession returns the session row plus its envelope snapshot. Mode and
// safe-actor visibility come from query params.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	sess, err := h.memory.GetSession(dbc, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if sess == nil {
		response.RespondError(c, http.StatusNotFound, "session_not_found", nil)
		return
	}

	env, err := h.memory.Retrieve(dbc, types.RetrieveRequest{
		SessionID: sessionID,
		Actor:     c.Query("actor"),
		Mode:      c.DefaultQuery("mode", types.ModeFull),
		Safe:      c.Query("safe") == "true",
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.RespondOK(c, gin.H{
		"session":  sess,
		"envelope": env,
	})
}

func (h *SessionHandler) ListEvents(c *gin.Context) {
	sessionID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.memory.ListEvents(dbctx.Context{Ctx: c.Request.Context()}, sessionID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}
