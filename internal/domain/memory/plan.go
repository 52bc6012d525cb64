package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PlanStatusPending   = "pending"
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
	PlanStatusAbandoned = "abandoned"
)

type Plan struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID string    `gorm:"type:text;not null;index" json:"session_id"`

	Title  string `gorm:"type:text;not null;default:''" json:"title"`
	Status string `gorm:"type:text;not null;default:'pending';index" json:"status"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Plan) TableName() string { return "scribe_plan" }

type PlanStep struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PlanID uuid.UUID `gorm:"type:uuid;not null;index" json:"plan_id"`

	Position int    `gorm:"not null;default:0;index" json:"position"`
	Title    string `gorm:"type:text;not null;default:''" json:"title"`
	Status   string `gorm:"type:text;not null;default:'pending';index" json:"status"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PlanStep) TableName() string { return "scribe_plan_step" }
