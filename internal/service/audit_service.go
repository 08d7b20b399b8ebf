package service

import (
	"context"

	"backend/internal/apperr"
	"backend/internal/model"
	"backend/internal/repository"
)

// AuditService exposes the audit trail for review screens.
type AuditService interface {
	GetAuditLogs(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	const op = "audit.list"

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, op, "failed to list audit logs", err)
	}
	return logs, total, nil
}
