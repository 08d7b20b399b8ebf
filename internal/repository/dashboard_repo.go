package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"gorm.io/gorm"
)

// DashboardRepository runs the aggregate queries behind the summary page.
type DashboardRepository interface {
	CountClients(ctx context.Context) (int64, error)
	CountClientsByStages(ctx context.Context, stages []string) (int64, error)
	CountClientsWonSince(ctx context.Context, since time.Time) (int64, error)
	SumWonBudgetsSince(ctx context.Context, since time.Time) (string, error)
	CountPendingChanges(ctx context.Context) (int64, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) CountClients(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Client{}).Count(&total).Error
	return total, err
}

func (r *dashboardRepository) CountClientsByStages(ctx context.Context, stages []string) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Client{}).
		Where("funnel_stage IN ?", stages).
		Count(&total).Error
	return total, err
}

func (r *dashboardRepository) CountClientsWonSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Client{}).
		Where("funnel_stage = ? AND won_at >= ?", model.StageWon, since).
		Count(&total).Error
	return total, err
}

func (r *dashboardRepository) SumWonBudgetsSince(ctx context.Context, since time.Time) (string, error) {
	var result struct {
		Value string
	}
	err := GetDB(ctx, r.db).Model(&model.Client{}).
		Select("COALESCE(CAST(SUM(budget) AS TEXT), '0') as value").
		Where("funnel_stage = ? AND won_at >= ?", model.StageWon, since).
		Scan(&result).Error
	return result.Value, err
}

func (r *dashboardRepository) CountPendingChanges(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.PropertyChange{}).
		Where("status = ?", model.ChangePending).
		Count(&total).Error
	return total, err
}
