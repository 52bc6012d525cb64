package memory

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type ArtifactRepo interface {
	UpsertBatch(dbc dbctx.Context, artifacts []*types.MediaArtifact) ([]*types.MediaArtifact, error)
	ListRecent(dbc dbctx.Context, sessionID string, includeLocalSafe bool, limit int) ([]*types.MediaArtifact, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{
		db:  db,
		log: baseLog.With("repo", "ArtifactRepo"),
	}
}

func (r *artifactRepo) UpsertBatch(dbc dbctx.Context, artifacts []*types.MediaArtifact) ([]*types.MediaArtifact, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(artifacts) == 0 {
		return []*types.MediaArtifact{}, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind", "uri", "message_id", "scope", "metadata", "updated_at",
			}),
		}).
		Create(&artifacts).Error
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (r *artifactRepo) ListRecent(dbc dbctx.Context, sessionID string, includeLocalSafe bool, limit int) ([]*types.MediaArtifact, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID)
	if !includeLocalSafe {
		q = q.Where("scope <> ?", types.ScopeLocalSafe)
	}
	var out []*types.MediaArtifact
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
