package app

import (
	"github.com/gin-gonic/gin"

	httpx "github.com/yungbote/scribe-backend/internal/http"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlerset Handlers, middleware Middleware) *gin.Engine {
	return httpx.NewRouter(httpx.RouterConfig{
		Log:              log,
		ServiceAuth:      middleware.ServiceAuth,
		RelayHandler:     handlerset.Relay,
		MemoryHandler:    handlerset.Memory,
		SessionHandler:   handlerset.Session,
		ModelsHandler:    handlerset.Models,
		TelemetryHandler: handlerset.Telemetry,
		RealtimeHandler:  handlerset.Realtime,
		MediaHandler:     handlerset.Media,
		HealthHandler:    handlerset.Health,
	})
}
