package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PropertyRepository interface {
	Create(ctx context.Context, property *model.Property) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Property, error)
	List(ctx context.Context, search, status string, page, limit int) ([]model.Property, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// UpdateField writes a single column. Returns the number of rows
	// touched so callers can verify the write landed before committing
	// anything that depends on it.
	UpdateField(ctx context.Context, id uuid.UUID, column string, value interface{}) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) Create(ctx context.Context, property *model.Property) error {
	return GetDB(ctx, r.db).Create(property).Error
}

func (r *propertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Property, error) {
	var property model.Property
	if err := GetDB(ctx, r.db).First(&property, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepository) List(ctx context.Context, search, status string, page, limit int) ([]model.Property, int64, error) {
	var properties []model.Property
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Property{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if search != "" {
		query = query.Where("title ILIKE ? OR city ILIKE ? OR developer_name ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&properties).Error; err != nil {
		return nil, 0, err
	}

	return properties, total, nil
}

func (r *propertyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Property{}).Error
}

func (r *propertyRepository) UpdateField(ctx context.Context, id uuid.UUID, column string, value interface{}) (int64, error) {
	res := GetDB(ctx, r.db).
		Model(&model.Property{}).
		Where("id = ?", id).
		Update(column, value)
	return res.RowsAffected, res.Error
}

func (r *propertyRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Property{}).Count(&total).Error
	return total, err
}
