package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyChangeRepository is the change ledger. Rows are append-only;
// MarkDecided is the only permitted mutation and flips status exactly once.
type PropertyChangeRepository interface {
	Create(ctx context.Context, change *model.PropertyChange) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PropertyChange, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID, limit int) ([]model.PropertyChange, error)
	// FindForDecision loads the given changes scoped to propertyID with a
	// row lock, so concurrent decisions on the same change serialize.
	FindForDecision(ctx context.Context, propertyID uuid.UUID, ids []uuid.UUID) ([]model.PropertyChange, error)
	MarkDecided(ctx context.Context, propertyID uuid.UUID, ids []uuid.UUID, status string, reviewedBy uuid.UUID, reviewedAt time.Time) (int64, error)
}

type propertyChangeRepository struct {
	db *gorm.DB
}

func NewPropertyChangeRepository(db *gorm.DB) PropertyChangeRepository {
	return &propertyChangeRepository{db: db}
}

func (r *propertyChangeRepository) Create(ctx context.Context, change *model.PropertyChange) error {
	return GetDB(ctx, r.db).Create(change).Error
}

func (r *propertyChangeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PropertyChange, error) {
	var change model.PropertyChange
	if err := GetDB(ctx, r.db).
		Preload("Submitter").
		Preload("Reviewer").
		First(&change, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &change, nil
}

func (r *propertyChangeRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID, limit int) ([]model.PropertyChange, error) {
	var changes []model.PropertyChange
	if err := GetDB(ctx, r.db).
		Preload("Submitter").
		Preload("Reviewer").
		Where("property_id = ?", propertyID).
		Order("created_at DESC").
		Limit(limit).
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

func (r *propertyChangeRepository) FindForDecision(ctx context.Context, propertyID uuid.UUID, ids []uuid.UUID) ([]model.PropertyChange, error) {
	var changes []model.PropertyChange
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("property_id = ? AND id IN ?", propertyID, ids).
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}

func (r *propertyChangeRepository) MarkDecided(ctx context.Context, propertyID uuid.UUID, ids []uuid.UUID, status string, reviewedBy uuid.UUID, reviewedAt time.Time) (int64, error) {
	res := GetDB(ctx, r.db).
		Model(&model.PropertyChange{}).
		Where("property_id = ? AND id IN ? AND status = ?", propertyID, ids, model.ChangePending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewedBy,
			"reviewed_at": reviewedAt,
		})
	return res.RowsAffected, res.Error
}
