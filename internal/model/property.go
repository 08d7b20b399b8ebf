package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Property status enum constants
const (
	PropertyStatusPlanning     = "planning"
	PropertyStatusConstruction = "construction"
	PropertyStatusReady        = "ready"
	PropertyStatusDelivered    = "delivered"
)

// Property is a development managed by the back office. Direct edits are
// not written here; they go through the property_changes ledger and land
// field by field on approval.
type Property struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title              string         `gorm:"type:varchar(255);not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	Address            string         `gorm:"type:varchar(255)" json:"address"`
	City               string         `gorm:"type:varchar(100);index" json:"city"`
	State              string         `gorm:"type:varchar(50)" json:"state"`
	ZipCode            string         `gorm:"type:varchar(20)" json:"zip_code"`
	PropertyType       string         `gorm:"type:varchar(50)" json:"property_type"`
	Status             string         `gorm:"type:varchar(30);not null;default:'planning';index" json:"status"`
	TotalUnits         int            `gorm:"not null;default:0" json:"total_units"`
	DeliveryDate       string         `gorm:"type:varchar(20)" json:"delivery_date"` // YYYY-MM-DD, free-form in legacy rows
	DeveloperName      string         `gorm:"type:varchar(255)" json:"developer_name"`
	PartnershipManager string         `gorm:"type:varchar(255)" json:"partnership_manager"`
	Typologies         string         `gorm:"type:jsonb;default:'[]'" json:"typologies"` // JSON array of Typology
	Images             string         `gorm:"type:jsonb;default:'[]'" json:"images"`     // JSON array of URLs
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// Typology is one unit layout offered by a property, e.g. {"2BR", 350000}.
// Serialized into the Typologies jsonb column.
type Typology struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}
