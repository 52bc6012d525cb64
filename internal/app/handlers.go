package app

import (
	httpH "github.com/yungbote/scribe-backend/internal/http/handlers"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/providers"
	"github.com/yungbote/scribe-backend/internal/realtime"
	"github.com/yungbote/scribe-backend/internal/telemetry"
)

type Handlers struct {
	Relay     *httpH.RelayHandler
	Memory    *httpH.MemoryHandler
	Session   *httpH.SessionHandler
	Models    *httpH.ModelsHandler
	Telemetry *httpH.TelemetryHandler
	Realtime  *httpH.RealtimeHandler
	Media     *httpH.MediaHandler
	Health    *httpH.HealthHandler
}

func wireHandlers(
	log *logger.Logger,
	serviceset Services,
	registry *providers.Registry,
	recorder *telemetry.Recorder,
	hub *realtime.SSEHub,
) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Relay:     httpH.NewRelayHandler(log, serviceset.Relay),
		Memory:    httpH.NewMemoryHandler(log, serviceset.Memory),
		Session:   httpH.NewSessionHandler(log, serviceset.Memory),
		Models:    httpH.NewModelsHandler(log, registry),
		Telemetry: httpH.NewTelemetryHandler(log, recorder),
		Realtime:  httpH.NewRealtimeHandler(log, hub),
		Media:     httpH.NewMediaHandler(log, serviceset.Media),
		Health:    httpH.NewHealthHandler(),
	}
}
