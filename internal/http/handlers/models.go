package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/scribe-backend/internal/http/response"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/providers"
)

type ModelsHandler struct {
	log      *logger.Logger
	registry *providers.Registry
}

func NewModelsHandler(log *logger.Logger, registry *providers.Registry) *ModelsHandler {
	return &ModelsHandler{
		log:      log.With("handler", "ModelsHandler"),
		registry: registry,
	}
}

// ListModels exposes the model catalog plus which providers actually have
// credentials, so the UI can grey out the rest.
func (h *ModelsHandler) ListModels(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"configured": h.registry.Configured(),
		"providers":  h.registry.Catalog().Providers,
	})
}
