package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scribe-backend/internal/http/response"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/telemetry"
)

type TelemetryHandler struct {
	log      *logger.Logger
	recorder *telemetry.Recorder
}

func NewTelemetryHandler(log *logger.Logger, recorder *telemetry.Recorder) *TelemetryHandler {
	return &TelemetryHandler{
		log:      log.With("handler", "TelemetryHandler"),
		recorder: recorder,
	}
}

func (h *TelemetryHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	records := h.recorder.Recent(limit, c.Query("session_id"))
	response.RespondOK(c, gin.H{"records": records})
}
