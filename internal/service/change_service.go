package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend/internal/apperr"
	"backend/internal/metrics"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- DTOs ---

type SubmitChangeDTO struct {
	Field       string          `json:"field" binding:"required"`
	OldValue    json.RawMessage `json:"oldValue"`
	NewValue    json.RawMessage `json:"newValue" binding:"required"`
	SubmittedBy string          `json:"submittedBy"`
}

type PropertyChangeResponse struct {
	ID            string          `json:"id"`
	PropertyID    string          `json:"property_id"`
	Field         string          `json:"field"`
	OldValue      json.RawMessage `json:"old_value"`
	NewValue      json.RawMessage `json:"new_value"`
	Status        string          `json:"status"`
	SubmittedBy   *string         `json:"submitted_by"`
	SubmitterName string          `json:"submitter_name,omitempty"`
	ReviewedBy    *string         `json:"reviewed_by"`
	ReviewerName  string          `json:"reviewer_name,omitempty"`
	ReviewedAt    *string         `json:"reviewed_at"`
	CreatedAt     string          `json:"created_at"`
}

// --- Interface ---

// ChangeService records proposed property edits in the pending ledger
// and lists them for review. It never mutates the property itself.
type ChangeService interface {
	SubmitChange(ctx context.Context, propertyID string, req SubmitChangeDTO) (PropertyChangeResponse, error)
	ListChanges(ctx context.Context, propertyID string) ([]PropertyChangeResponse, error)
}

type changeService struct {
	changes    repository.PropertyChangeRepository
	properties repository.PropertyRepository
	audits     repository.AuditRepository
	tx         repository.TransactionManager
	log        *logrus.Logger
}

func NewChangeService(
	changes repository.PropertyChangeRepository,
	properties repository.PropertyRepository,
	audits repository.AuditRepository,
	tx repository.TransactionManager,
	log *logrus.Logger,
) ChangeService {
	return &changeService{changes: changes, properties: properties, audits: audits, tx: tx, log: log}
}

// listLimit caps the change history returned for display.
const listLimit = 50

func (s *changeService) SubmitChange(ctx context.Context, propertyID string, req SubmitChangeDTO) (PropertyChangeResponse, error) {
	const op = "changes.submit"

	propID, err := uuid.Parse(propertyID)
	if err != nil {
		return PropertyChangeResponse{}, apperr.Wrap(apperr.KindValidation, op, "invalid property id", err)
	}

	if !SupportedField(req.Field) {
		return PropertyChangeResponse{}, apperr.New(apperr.KindValidation, op, "unknown field: "+req.Field)
	}

	var submitterID *uuid.UUID
	if req.SubmittedBy != "" {
		parsed, parseErr := uuid.Parse(req.SubmittedBy)
		if parseErr != nil {
			return PropertyChangeResponse{}, apperr.Wrap(apperr.KindValidation, op, "invalid submitter id", parseErr)
		}
		submitterID = &parsed
	}

	if _, err := s.properties.FindByID(ctx, propID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PropertyChangeResponse{}, apperr.Wrap(apperr.KindNotFound, op, "property not found", err)
		}
		return PropertyChangeResponse{}, apperr.Wrap(apperr.KindPersistence, op, "failed to load property", err)
	}

	change := model.PropertyChange{
		PropertyID:  propID,
		SubmittedBy: submitterID,
		Field:       req.Field,
		OldValue:    normalizeRaw(req.OldValue),
		NewValue:    normalizeRaw(req.NewValue),
		Status:      model.ChangePending,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.changes.Create(txCtx, &change); createErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to record change", createErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"field":       req.Field,
			"property_id": propID.String(),
		})
		audit := model.AuditLog{
			UserID:     submitterID,
			Action:     model.ActionSubmitChange,
			EntityID:   change.ID.String(),
			EntityName: req.Field,
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
			"field":       req.Field,
		}).WithError(err).Error("change submission failed")
		return PropertyChangeResponse{}, err
	}

	metrics.ChangesSubmitted.Inc()

	// Reload with submitter for the response
	created, loadErr := s.changes.FindByID(ctx, change.ID)
	if loadErr != nil {
		return toChangeResponse(change), nil
	}
	return toChangeResponse(*created), nil
}

func (s *changeService) ListChanges(ctx context.Context, propertyID string) ([]PropertyChangeResponse, error) {
	const op = "changes.list"

	propID, err := uuid.Parse(propertyID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, "invalid property id", err)
	}

	changes, err := s.changes.ListByProperty(ctx, propID, listLimit)
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "property_id": propertyID}).
			WithError(err).Error("failed to list changes")
		return nil, apperr.Wrap(apperr.KindPersistence, op, "failed to list changes", err)
	}

	result := make([]PropertyChangeResponse, 0, len(changes))
	for _, c := range changes {
		result = append(result, toChangeResponse(c))
	}
	return result, nil
}

// --- Helpers ---

// normalizeRaw keeps the ledger columns valid JSON even when the caller
// sent a bare string or nothing at all.
func normalizeRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	if json.Valid(raw) {
		return string(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return string(quoted)
}

func toChangeResponse(c model.PropertyChange) PropertyChangeResponse {
	resp := PropertyChangeResponse{
		ID:         c.ID.String(),
		PropertyID: c.PropertyID.String(),
		Field:      c.Field,
		OldValue:   json.RawMessage(c.OldValue),
		NewValue:   json.RawMessage(c.NewValue),
		Status:     c.Status,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}

	if c.SubmittedBy != nil {
		s := c.SubmittedBy.String()
		resp.SubmittedBy = &s
	}
	if c.Submitter != nil {
		resp.SubmitterName = c.Submitter.Username
	}
	if c.ReviewedBy != nil {
		s := c.ReviewedBy.String()
		resp.ReviewedBy = &s
	}
	if c.Reviewer != nil {
		resp.ReviewerName = c.Reviewer.Username
	}
	if c.ReviewedAt != nil {
		s := c.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &s
	}

	return resp
}
