package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"backend/internal/apperr"
	"backend/internal/metrics"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Decision actions accepted on the approve endpoint.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// --- DTOs ---

type DecideDTO struct {
	ChangeID  string   `json:"change_id"`
	ChangeIDs []string `json:"change_ids"`
	Action    string   `json:"action" binding:"required"`
}

type DecisionResult struct {
	Status  string   `json:"status"` // approved or rejected
	Changes []string `json:"changes"`
}

// Reviewer is the authenticated identity attempting a decision.
type Reviewer struct {
	ID   string
	Role string
}

// EventBroadcaster pushes domain events to connected dashboards.
type EventBroadcaster interface {
	BroadcastEvent(eventType string, payload interface{})
}

// --- Interface ---

// ApprovalService decides pending property changes. An approval applies
// the proposed value to the property first and only then flips the
// ledger row, all inside one transaction; if the mutation does not land,
// the row stays pending.
type ApprovalService interface {
	Decide(ctx context.Context, propertyID string, reviewer Reviewer, req DecideDTO) (DecisionResult, error)
}

type approvalService struct {
	changes       repository.PropertyChangeRepository
	properties    repository.PropertyRepository
	audits        repository.AuditRepository
	tx            repository.TransactionManager
	approverRoles map[string]bool
	events        EventBroadcaster
	log           *logrus.Logger
}

// NewApprovalService builds the service. approverRoles is the
// deployment-configured set of roles allowed to decide changes.
func NewApprovalService(
	changes repository.PropertyChangeRepository,
	properties repository.PropertyRepository,
	audits repository.AuditRepository,
	tx repository.TransactionManager,
	approverRoles []string,
	events EventBroadcaster,
	log *logrus.Logger,
) ApprovalService {
	roles := make(map[string]bool, len(approverRoles))
	for _, r := range approverRoles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			roles[r] = true
		}
	}
	return &approvalService{
		changes:       changes,
		properties:    properties,
		audits:        audits,
		tx:            tx,
		approverRoles: roles,
		events:        events,
		log:           log,
	}
}

func (s *approvalService) Decide(ctx context.Context, propertyID string, reviewer Reviewer, req DecideDTO) (DecisionResult, error) {
	const op = "approvals.decide"

	if req.Action != ActionApprove && req.Action != ActionReject {
		return DecisionResult{}, apperr.New(apperr.KindValidation, op, "action must be approve or reject")
	}

	propID, err := uuid.Parse(propertyID)
	if err != nil {
		return DecisionResult{}, apperr.Wrap(apperr.KindValidation, op, "invalid property id", err)
	}

	reviewerID, err := uuid.Parse(reviewer.ID)
	if err != nil {
		return DecisionResult{}, apperr.New(apperr.KindUnauthorized, op, "missing reviewer identity")
	}

	if !s.approverRoles[strings.ToLower(reviewer.Role)] {
		metrics.DecisionRejectedAuth.Inc()
		s.log.WithFields(logrus.Fields{
			"op":          op,
			"property_id": propertyID,
			"role":        reviewer.Role,
		}).Warn("decision attempt without approver role")
		return DecisionResult{}, apperr.New(apperr.KindForbidden, op, "role not allowed to decide changes")
	}

	ids, err := collectChangeIDs(req)
	if err != nil {
		return DecisionResult{}, apperr.Wrap(apperr.KindValidation, op, "invalid change id", err)
	}
	if len(ids) == 0 {
		return DecisionResult{}, apperr.New(apperr.KindValidation, op, "no change id given")
	}

	status := model.ChangeApproved
	if req.Action == ActionReject {
		status = model.ChangeRejected
	}
	now := time.Now()

	// Single transaction: lock the rows, apply mutations, flip statuses,
	// write the audit entry. Any failure rolls the whole batch back.
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		changes, findErr := s.changes.FindForDecision(txCtx, propID, ids)
		if findErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to load changes", findErr)
		}
		if len(changes) != len(ids) {
			return apperr.New(apperr.KindNotFound, op, "change not found for this property")
		}
		for i := range changes {
			if changes[i].Terminal() {
				return apperr.New(apperr.KindConflict, op, "change already "+changes[i].Status)
			}
		}

		if req.Action == ActionApprove {
			for i := range changes {
				if applyErr := s.applyChange(txCtx, propID, &changes[i]); applyErr != nil {
					return applyErr
				}
			}
		}

		updated, markErr := s.changes.MarkDecided(txCtx, propID, ids, status, reviewerID, now)
		if markErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to update ledger", markErr)
		}
		if updated != int64(len(ids)) {
			// A concurrent decision won the race on at least one row.
			return apperr.New(apperr.KindConflict, op, "change decided concurrently")
		}

		fields := make([]string, 0, len(changes))
		for i := range changes {
			fields = append(fields, changes[i].Field)
		}
		details, _ := json.Marshal(map[string]interface{}{
			"property_id": propID.String(),
			"fields":      fields,
			"decision":    req.Action,
		})
		auditAction := model.ActionApproveChange
		if req.Action == ActionReject {
			auditAction = model.ActionRejectChange
		}
		audit := model.AuditLog{
			UserID:     &reviewerID,
			Action:     auditAction,
			EntityID:   propID.String(),
			EntityName: strings.Join(fields, ","),
			Details:    string(details),
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to write audit log", auditErr)
		}
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"op":          op,
			"property_id": propertyID,
			"change_ids":  ids,
			"action":      req.Action,
		}).WithError(err).Error("decision failed")
		return DecisionResult{}, err
	}

	metrics.ChangesDecided.WithLabelValues(status).Add(float64(len(ids)))

	changeIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		changeIDs = append(changeIDs, id.String())
	}
	if s.events != nil {
		s.events.BroadcastEvent("change_decided", map[string]interface{}{
			"property_id": propID.String(),
			"change_ids":  changeIDs,
			"status":      status,
			"reviewed_by": reviewerID.String(),
		})
	}

	return DecisionResult{Status: status, Changes: changeIDs}, nil
}

// applyChange resolves the field mutation and writes it onto the
// property. Zero rows touched means the property vanished under us;
// the caller rolls back so the ledger row stays pending.
func (s *approvalService) applyChange(ctx context.Context, propID uuid.UUID, change *model.PropertyChange) error {
	const op = "approvals.apply"

	column, value, err := ResolveFieldUpdate(change.Field, change.NewValue)
	if err != nil {
		return err
	}

	affected, err := s.properties.UpdateField(ctx, propID, column, value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.KindNotFound, op, "property not found", err)
		}
		return apperr.Wrap(apperr.KindPersistence, op, "failed to apply "+change.Field, err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, op, "property not found")
	}
	return nil
}

// collectChangeIDs merges the single and batch id forms, deduplicated.
func collectChangeIDs(req DecideDTO) ([]uuid.UUID, error) {
	raw := req.ChangeIDs
	if req.ChangeID != "" {
		raw = append([]string{req.ChangeID}, raw...)
	}

	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
