package memory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type EntryRepo interface {
	UpsertBatch(dbc dbctx.Context, entries []*types.ContextEntry) ([]*types.ContextEntry, error)
	MaxSeq(dbc dbctx.Context, sessionID string) (int64, error)
	ListRecent(dbc dbctx.Context, sessionID string, includeLocalSafe bool, limit int) ([]*types.ContextEntry, error)
	ListSince(dbc dbctx.Context, sessionID string, afterSeq int64, includeLocalSafe bool, limit int) ([]*types.ContextEntry, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContextEntry, error)
}

type entryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntryRepo(db *gorm.DB, baseLog *logger.Logger) EntryRepo {
	return &entryRepo{
		db:  db,
		log: baseLog.With("repo", "EntryRepo"),
	}
}

// UpsertBatch writes entries idempotently: rows carrying a known id update in
// place, everything else inserts. Callers assign seq before calling.
func (r *entryRepo) UpsertBatch(dbc dbctx.Context, entries []*types.ContextEntry) ([]*types.ContextEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*types.ContextEntry{}, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"role", "speaker", "provider", "model", "content", "scope", "metadata", "updated_at",
			}),
		}).
		Create(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *entryRepo) MaxSeq(dbc dbctx.Context, sessionID string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == "" {
		return 0, nil
	}
	var max int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ContextEntry{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *entryRepo) ListRecent(dbc dbctx.Context, sessionID string, includeLocalSafe bool, limit int) ([]*types.ContextEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID)
	if !includeLocalSafe {
		q = q.Where("scope <> ?", types.ScopeLocalSafe)
	}
	var out []*types.ContextEntry
	if err := q.Order("seq DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	// Newest-first query, oldest-first result.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *entryRepo) ListSince(dbc dbctx.Context, sessionID string, afterSeq int64, includeLocalSafe bool, limit int) ([]*types.ContextEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("session_id = ? AND seq > ?", sessionID, afterSeq)
	if !includeLocalSafe {
		q = q.Where("scope <> ?", types.ScopeLocalSafe)
	}
	var out []*types.ContextEntry
	if err := q.Order("seq ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ContextEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContextEntry
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
