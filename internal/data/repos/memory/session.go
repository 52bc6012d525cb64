package memory

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type SessionRepo interface {
	GetByID(dbc dbctx.Context, id string) (*types.Session, error)
	GetByIDLocked(dbc dbctx.Context, id string) (*types.Session, error)
	Ensure(dbc dbctx.Context, id string, tenantID string) (*types.Session, error)
	UpdateVersion(dbc dbctx.Context, id string, version int64, actor string, domainTags []string) error
	MergeMetadata(dbc dbctx.Context, id string, patch map[string]any) error
	ListRecent(dbc dbctx.Context, tenantID string, limit int) ([]*types.Session, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{
		db:  db,
		log: baseLog.With("repo", "SessionRepo"),
	}
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id string) (*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, nil
	}
	var s types.Session
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, nil
	}
	return &s, nil
}

// GetByIDLocked takes a row lock so version arbitration is serialized across
// concurrent writers. Must run inside a transaction.
func (r *sessionRepo) GetByIDLocked(dbc dbctx.Context, id string) (*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, nil
	}
	var s types.Session
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Ensure(dbc dbctx.Context, id string, tenantID string) (*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, nil
	}
	s := types.Session{ID: id, TenantID: tenantID}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&s).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(dbc, id)
}

func (r *sessionRepo) UpdateVersion(dbc dbctx.Context, id string, version int64, actor string, domainTags []string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil
	}
	updates := map[string]interface{}{
		"context_version": version,
		"updated_at":      time.Now(),
	}
	if actor != "" {
		updates["last_actor"] = actor
	}
	if len(domainTags) > 0 {
		raw, err := json.Marshal(domainTags)
		if err != nil {
			return err
		}
		updates["last_domain_tags"] = datatypes.JSON(raw)
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MergeMetadata folds patch keys into the stored metadata object. Existing
// keys are overwritten, absent keys are kept.
func (r *sessionRepo) MergeMetadata(dbc dbctx.Context, id string, patch map[string]any) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" || len(patch) == 0 {
		return nil
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"metadata":   gorm.Expr("COALESCE(metadata, '{}'::jsonb) || ?::jsonb", string(raw)),
			"updated_at": time.Now(),
		}).Error
}

func (r *sessionRepo) ListRecent(dbc dbctx.Context, tenantID string, limit int) ([]*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	q := transaction.WithContext(dbc.Ctx).Order("updated_at DESC").Limit(limit)
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	var out []*types.Session
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
