package memory

import (
	"gorm.io/gorm"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type EventRepo interface {
	Append(dbc dbctx.Context, event *types.AuditEvent) (*types.AuditEvent, error)
	ListRecent(dbc dbctx.Context, sessionID string, limit int) ([]*types.AuditEvent, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{
		db:  db,
		log: baseLog.With("repo", "EventRepo"),
	}
}

func (r *eventRepo) Append(dbc dbctx.Context, event *types.AuditEvent) (*types.AuditEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if event == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (r *eventRepo) ListRecent(dbc dbctx.Context, sessionID string, limit int) ([]*types.AuditEvent, error) {
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
	var out []*types.AuditEvent
	err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
