package memory

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type NodeRepo interface {
	UpsertBatch(dbc dbctx.Context, nodes []*types.MemoryNode) ([]*types.MemoryNode, error)
	ListActive(dbc dbctx.Context, sessionID string, includeLocalSafe bool, limit int) ([]*types.MemoryNode, error)
}

type nodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNodeRepo(db *gorm.DB, baseLog *logger.Logger) NodeRepo {
	return &nodeRepo{
		db:  db,
		log: baseLog.With("repo", "NodeRepo"),
	}
}

func (r *nodeRepo) UpsertBatch(dbc dbctx.Context, nodes []*types.MemoryNode) ([]*types.MemoryNode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(nodes) == 0 {
		return []*types.MemoryNode{}, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind", "content", "importance", "scope", "decay_at", "metadata", "updated_at",
			}),
		}).
		Create(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListActive returns nodes ordered by importance, skipping decayed ones.
func (r *nodeRepo) ListActive(dbc dbctx.Context, sessionID string, includeLocalSafe bool, limit int) ([]*types.MemoryNode, error) {
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
		Where("session_id = ?", sessionID).
		Where("decay_at IS NULL OR decay_at > ?", time.Now())
	if !includeLocalSafe {
		q = q.Where("scope <> ?", types.ScopeLocalSafe)
	}
	var out []*types.MemoryNode
	if err := q.Order("importance DESC, created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
