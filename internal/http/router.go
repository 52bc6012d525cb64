package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/scribe-backend/internal/http/handlers"
	httpMW "github.com/yungbote/scribe-backend/internal/http/middleware"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	ServiceAuth *httpMW.ServiceAuthMiddleware

	RelayHandler     *httpH.RelayHandler
	MemoryHandler    *httpH.MemoryHandler
	SessionHandler   *httpH.SessionHandler
	ModelsHandler    *httpH.ModelsHandler
	TelemetryHandler *httpH.TelemetryHandler
	RealtimeHandler  *httpH.RealtimeHandler
	MediaHandler     *httpH.MediaHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("scribe-backend"))
	r.Use(httpMW.RequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.ServiceAuth != nil {
		api.Use(cfg.ServiceAuth.Require())
	}

	// Relay
	if cfg.RelayHandler != nil {
		api.POST("/relay/turn", cfg.RelayHandler.Turn)
	}

	// Memory envelope ingress
	if cfg.MemoryHandler != nil {
		api.POST("/memory/save", cfg.MemoryHandler.Save)
		api.POST("/memory/retrieve", cfg.MemoryHandler.Retrieve)
		api.POST("/memory/broadcast", cfg.MemoryHandler.Broadcast)
		api.POST("/memory/resolve-conflict", cfg.MemoryHandler.ResolveConflict)
	}

	// Session snapshots + audit replay
	if cfg.SessionHandler != nil {
		api.GET("/sessions/:id", cfg.SessionHandler.GetSession)
		api.GET("/sessions/:id/events", cfg.SessionHandler.ListEvents)
	}

	// Media artifacts (external collaborators)
	if cfg.MediaHandler != nil {
		api.POST("/sessions/:id/artifacts", cfg.MediaHandler.AttachArtifact)
		api.POST("/sessions/:id/voice", cfg.MediaHandler.SynthesizeVoice)
	}

	// Model catalog
	if cfg.ModelsHandler != nil {
		api.GET("/models", cfg.ModelsHandler.ListModels)
	}

	// Telemetry
	if cfg.TelemetryHandler != nil {
		api.GET("/telemetry/recent", cfg.TelemetryHandler.Recent)
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		api.GET("/realtime/stream", cfg.RealtimeHandler.Stream)
	}

	return r
}
