package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Funnel stage enum constants. won/lost are terminal.
const (
	StageLead      = "lead"
	StageContacted = "contacted"
	StageVisited   = "visited"
	StageProposal  = "proposal"
	StageWon       = "won"
	StageLost      = "lost"
)

// FunnelStages lists the stages in pipeline order.
var FunnelStages = []string{StageLead, StageContacted, StageVisited, StageProposal, StageWon, StageLost}

// Client is a prospect moving through the sales funnel.
type Client struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Email       string          `gorm:"type:varchar(255);index" json:"email"`
	Phone       string          `gorm:"type:varchar(30)" json:"phone"`
	Campaign    string          `gorm:"type:varchar(100)" json:"campaign"` // lead source, e.g. sheet campaign column
	FunnelStage string          `gorm:"type:varchar(20);not null;default:'lead';index" json:"funnel_stage"`
	LostReason  string          `gorm:"type:varchar(255)" json:"lost_reason,omitempty"`
	Budget      decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"budget"`
	PropertyID  *uuid.UUID      `gorm:"type:uuid;index" json:"property_id"` // development of interest, if any
	Notes       []ClientNote    `gorm:"foreignKey:ClientID" json:"notes,omitempty"`
	Tasks       []Task          `gorm:"foreignKey:ClientID" json:"tasks,omitempty"`
	WonAt       *time.Time      `json:"won_at,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ClientNote is a free-form annotation on a client, newest first in listings.
type ClientNote struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	AuthorID  *uuid.UUID `gorm:"type:uuid" json:"author_id"`
	Author    *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Note      string     `gorm:"type:text;not null" json:"note"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

// Task status/type enum constants
const (
	TaskPending = "pending"
	TaskDone    = "done"

	TaskTypeCall    = "call"
	TaskTypeVisit   = "visit"
	TaskTypeEmail   = "email"
	TaskTypeMeeting = "meeting"
)

// Task is a follow-up scheduled against a client.
type Task struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	AssigneeID *uuid.UUID `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee   *User      `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Title      string     `gorm:"type:varchar(255);not null" json:"title"`
	Type       string     `gorm:"type:varchar(20);not null;default:'call'" json:"type"`
	Status     string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DueAt      *time.Time `json:"due_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
