package app

import (
	"gorm.io/gorm"

	memrepos "github.com/yungbote/scribe-backend/internal/data/repos/memory"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type Repos struct {
	Sessions  memrepos.SessionRepo
	Entries   memrepos.EntryRepo
	Nodes     memrepos.NodeRepo
	Plans     memrepos.PlanRepo
	Artifacts memrepos.ArtifactRepo
	Events    memrepos.EventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Sessions:  memrepos.NewSessionRepo(db, log),
		Entries:   memrepos.NewEntryRepo(db, log),
		Nodes:     memrepos.NewNodeRepo(db, log),
		Plans:     memrepos.NewPlanRepo(db, log),
		Artifacts: memrepos.NewArtifactRepo(db, log),
		Events:    memrepos.NewEventRepo(db, log),
	}
}
