package service

import (
	"context"
	"time"

	"backend/internal/apperr"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DashboardSummary is the headline numbers for the overview page.
type DashboardSummary struct {
	TotalClients    int64  `json:"total_clients"`
	ActiveClients   int64  `json:"active_clients"`
	WonThisMonth    int64  `json:"won_this_month"`
	ConversionRate  string `json:"conversion_rate"` // percentage, 1 decimal
	MonthlyRevenue  string `json:"monthly_revenue"` // decimal string
	TotalProperties int64  `json:"total_properties"`
	PendingChanges  int64  `json:"pending_changes"`
}

type DashboardService interface {
	GetSummary(ctx context.Context) (DashboardSummary, error)
}

type dashboardService struct {
	dashboards repository.DashboardRepository
	properties repository.PropertyRepository
	log        *logrus.Logger
}

func NewDashboardService(
	dashboards repository.DashboardRepository,
	properties repository.PropertyRepository,
	log *logrus.Logger,
) DashboardService {
	return &dashboardService{dashboards: dashboards, properties: properties, log: log}
}

func (s *dashboardService) GetSummary(ctx context.Context) (DashboardSummary, error) {
	const op = "dashboard.summary"

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	total, err := s.dashboards.CountClients(ctx)
	if err != nil {
		return DashboardSummary{}, apperr.Wrap(apperr.KindPersistence, op, "failed to count clients", err)
	}

	active, err := s.dashboards.CountClientsByStages(ctx, []string{
		model.StageLead, model.StageContacted, model.StageVisited, model.StageProposal,
	})
	if err != nil {
		return DashboardSummary{}, apperr.Wrap(apperr.KindPersistence, op, "failed to count active clients", err)
	}

	wonMonth, err := s.dashboards.CountClientsWonSince(ctx, monthStart)
	if err != nil {
		return DashboardSummary{}, apperr.Wrap(apperr.KindPersistence, op, "failed to count won clients", err)
	}

	revenueRaw, err := s.dashboards.SumWonBudgetsSince(ctx, monthStart)
	if err != nil {
		return DashboardSummary{}, apperr.Wrap(apperr.KindPersistence, op, "failed to sum revenue", err)
	}
	revenue, parseErr := decimal.NewFromString(revenueRaw)
	if parseErr != nil {
		revenue = decimal.Zero
	}

	pending, err := s.dashboards.CountPendingChanges(ctx)
	if err != nil {
		return DashboardSummary{}, apperr.Wrap(apperr.KindPersistence, op, "failed to count pending changes", err)
	}

	propertyCount, err := s.properties.Count(ctx)
	if err != nil {
		return DashboardSummary{}, apperr.Wrap(apperr.KindPersistence, op, "failed to count properties", err)
	}

	allWon, err := s.dashboards.CountClientsByStages(ctx, []string{model.StageWon})
	if err != nil {
		return DashboardSummary{}, apperr.Wrap(apperr.KindPersistence, op, "failed to count won clients", err)
	}

	conversion := decimal.Zero
	if total > 0 {
		conversion = decimal.NewFromInt(allWon).
			Div(decimal.NewFromInt(total)).
			Mul(decimal.NewFromInt(100))
	}

	return DashboardSummary{
		TotalClients:    total,
		ActiveClients:   active,
		WonThisMonth:    wonMonth,
		ConversionRate:  conversion.StringFixed(1),
		MonthlyRevenue:  revenue.StringFixed(2),
		TotalProperties: propertyCount,
		PendingChanges:  pending,
	}, nil
}
