package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/http/response"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/services"
)

type MemoryHandler struct {
	log    *logger.Logger
	memory services.MemoryService
}

func NewMemoryHandler(log *logger.Logger, memory services.MemoryService) *MemoryHandler {
	return &MemoryHandler{
		log:    log.With("handler", "MemoryHandler"),
		memory: memory,
	}
}

func (h *MemoryHandler) Save(c *gin.Context) {
	var env types.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_envelope", err)
		return
	}
	res, err := h.memory.Save(dbctx.Context{Ctx: c.Request.Context()}, &env)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

func (h *MemoryHandler) Retrieve(c *gin.Context) {
	var req types.RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	env, err := h.memory.Retrieve(dbctx.Context{Ctx: c.Request.Context()}, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, env)
}

func (h *MemoryHandler) Broadcast(c *gin.Context) {
	var env types.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_envelope", err)
		return
	}
	res, err := h.memory.Broadcast(dbctx.Context{Ctx: c.Request.Context()}, &env)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

func (h *MemoryHandler) ResolveConflict(c *gin.Context) {
	var req types.ConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.memory.ResolveConflict(dbctx.Context{Ctx: c.Request.Context()}, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}
