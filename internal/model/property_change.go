package model

import (
	"time"

	"github.com/google/uuid"
)

// PropertyChange status enum constants
const (
	ChangePending  = "pending"
	ChangeApproved = "approved"
	ChangeRejected = "rejected"
)

// PropertyChange is one proposed field edit in the approval ledger.
// Rows are append-only: after creation the only transition is
// pending -> approved|rejected, which also stamps the reviewer.
// OldValue/NewValue hold the JSON-serialized value as submitted.
type PropertyChange struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PropertyID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"property_id"`
	SubmittedBy *uuid.UUID `gorm:"type:uuid;index" json:"submitted_by"`
	Submitter   *User      `gorm:"foreignKey:SubmittedBy" json:"submitter,omitempty"`
	Field       string     `gorm:"type:varchar(50);not null" json:"field"`
	OldValue    string     `gorm:"type:jsonb" json:"old_value"`
	NewValue    string     `gorm:"type:jsonb" json:"new_value"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedBy  *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer    *User      `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

// Terminal reports whether the change can no longer be decided.
func (c *PropertyChange) Terminal() bool {
	return c.Status == ChangeApproved || c.Status == ChangeRejected
}
