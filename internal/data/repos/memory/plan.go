package memory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/scribe-backend/internal/domain"
	"github.com/yungbote/scribe-backend/internal/pkg/dbctx"
	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

type PlanRepo interface {
	UpsertPlan(dbc dbctx.Context, plan *types.Plan, steps []*types.PlanStep) (*types.Plan, error)
	ListBySession(dbc dbctx.Context, sessionID string, limit int) ([]*types.Plan, error)
	ListSteps(dbc dbctx.Context, planIDs []uuid.UUID) ([]*types.PlanStep, error)
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return &planRepo{
		db:  db,
		log: baseLog.With("repo", "PlanRepo"),
	}
}

func (r *planRepo) UpsertPlan(dbc dbctx.Context, plan *types.Plan, steps []*types.PlanStep) (*types.Plan, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if plan == nil {
		return nil, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "status", "updated_at"}),
		}).
		Create(plan).Error
	if err != nil {
		return nil, err
	}
	if len(steps) > 0 {
		for _, st := range steps {
			st.PlanID = plan.ID
		}
		err = transaction.WithContext(dbc.Ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"position", "title", "status", "updated_at"}),
			}).
			Create(&steps).Error
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (r *planRepo) ListBySession(dbc dbctx.Context, sessionID string, limit int) ([]*types.Plan, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Plan
	err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *planRepo) ListSteps(dbc dbctx.Context, planIDs []uuid.UUID) ([]*types.PlanStep, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PlanStep
	if len(planIDs) == 0 {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("plan_id IN ?", planIDs).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
