package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/http/response"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/services"
)

type MediaHandler struct {
	log   *logger.Logger
	media services.MediaService
}

func NewMediaHandler(log *logger.Logger, media services.MediaService) *MediaHandler {
	return &MediaHandler{
		log:   log.With("handler", "MediaHandler"),
		media: media,
	}
}

func (h *MediaHandler) AttachArtifact(c *gin.Context) {
	var item types.MediaArtifactItem
	if err := c.ShouldBindJSON(&item); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_artifact", err)
		return
	}
	res, err := h.media.AttachArtifact(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"), item)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

func (h *MediaHandler) SynthesizeVoice(c *gin.Context) {
	var req struct {
		Text      string     `json:"text"`
		MessageID *uuid.UUID `json:"message_id,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.media.SynthesizeVoice(dbctx.Context{Ctx: c.Request.Context()}, c.Param("id"), req.Text, req.MessageID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}
