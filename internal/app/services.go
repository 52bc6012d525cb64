package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/scribe-backend/internal/platform/logger"
	"github.com/yungbote/scribe-backend/internal/providers"
	"github.com/yungbote/scribe-backend/internal/realtime"
	"github.com/yungbote/scribe-backend/internal/realtime/bus"
	"github.com/yungbote/scribe-backend/internal/services"
	"github.com/yungbote/scribe-backend/internal/telemetry"
)

type Services struct {
	Memory services.MemoryService
	Relay  services.RelayService
	Media  services.MediaService
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	reposet Repos,
	registry *providers.Registry,
	recorder *telemetry.Recorder,
	hub *realtime.SSEHub,
	sseBus bus.Bus,
) Services {
	log.Info("Wiring services...")
	memorySvc := services.NewMemoryService(
		db, log,
		reposet.Sessions, reposet.Entries, reposet.Nodes,
		reposet.Plans, reposet.Artifacts, reposet.Events,
		hub, sseBus,
	)
	return Services{
		Memory: memorySvc,
		Relay:  services.NewRelayService(db, log, registry, memorySvc, recorder),
		Media:  services.NewMediaService(db, log, memorySvc),
	}
}
