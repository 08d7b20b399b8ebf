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
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateClientDTO struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Campaign   string `json:"campaign"`
	Budget     string `json:"budget"` // decimal string
	PropertyID string `json:"property_id"`
}

type MoveStageDTO struct {
	Stage      string `json:"stage" binding:"required"`
	LostReason string `json:"lost_reason"`
}

type AddNoteDTO struct {
	Note string `json:"note" binding:"required"`
}

type AddTaskDTO struct {
	Title string `json:"title" binding:"required"`
	Type  string `json:"type"`
	DueAt string `json:"due_at"` // RFC3339
}

type ClientFilter struct {
	Stage  string
	Search string
	Page   int
	Limit  int
}

// --- Interface ---

type ClientService interface {
	CreateClient(ctx context.Context, req CreateClientDTO, createdBy string) (*model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, int64, error)
	MoveStage(ctx context.Context, id string, req MoveStageDTO, movedBy string) (*model.Client, error)
	AddNote(ctx context.Context, clientID string, req AddNoteDTO, authorID string) (*model.ClientNote, error)
	AddTask(ctx context.Context, clientID string, req AddTaskDTO, assigneeID string) (*model.Task, error)
}

type clientService struct {
	clients repository.ClientRepository
	audits  repository.AuditRepository
	tx      repository.TransactionManager
	events  EventBroadcaster
	log     *logrus.Logger
}

func NewClientService(
	clients repository.ClientRepository,
	audits repository.AuditRepository,
	tx repository.TransactionManager,
	events EventBroadcaster,
	log *logrus.Logger,
) ClientService {
	return &clientService{clients: clients, audits: audits, tx: tx, events: events, log: log}
}

func validStage(stage string) bool {
	for _, s := range model.FunnelStages {
		if s == stage {
			return true
		}
	}
	return false
}

func (s *clientService) CreateClient(ctx context.Context, req CreateClientDTO, createdBy string) (*model.Client, error) {
	const op = "clients.create"

	budget := decimal.Zero
	if req.Budget != "" {
		parsed, err := decimal.NewFromString(req.Budget)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, op, "budget is not a number", err)
		}
		budget = parsed
	}

	var propertyID *uuid.UUID
	if req.PropertyID != "" {
		parsed, err := uuid.Parse(req.PropertyID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, op, "invalid property id", err)
		}
		propertyID = &parsed
	}

	client := &model.Client{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Campaign:    req.Campaign,
		FunnelStage: model.StageLead,
		Budget:      budget,
		PropertyID:  propertyID,
	}

	var creatorID *uuid.UUID
	if parsed, err := uuid.Parse(createdBy); err == nil {
		creatorID = &parsed
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.clients.Create(txCtx, client); createErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to create client", createErr)
		}
		audit := model.AuditLog{
			UserID:     creatorID,
			Action:     model.ActionCreateClient,
			EntityID:   client.ID.String(),
			EntityName: client.Name,
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to write audit log", auditErr)
		}
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "name": req.Name}).
			WithError(err).Error("client creation failed")
		return nil, err
	}

	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, id string) (*model.Client, error) {
	const op = "clients.get"

	clientID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, "invalid client id", err)
	}

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, op, "client not found", err)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, op, "failed to load client", err)
	}
	return client, nil
}

func (s *clientService) ListClients(ctx context.Context, filter ClientFilter) ([]model.Client, int64, error) {
	const op = "clients.list"

	if filter.Stage != "" && !validStage(filter.Stage) {
		return nil, 0, apperr.New(apperr.KindValidation, op, "unknown funnel stage: "+filter.Stage)
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	clients, total, err := s.clients.List(ctx, filter.Stage, filter.Search, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, op, "failed to list clients", err)
	}
	return clients, total, nil
}

func (s *clientService) MoveStage(ctx context.Context, id string, req MoveStageDTO, movedBy string) (*model.Client, error) {
	const op = "clients.move_stage"

	if !validStage(req.Stage) {
		return nil, apperr.New(apperr.KindValidation, op, "unknown funnel stage: "+req.Stage)
	}

	clientID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, "invalid client id", err)
	}

	var actorID *uuid.UUID
	if parsed, parseErr := uuid.Parse(movedBy); parseErr == nil {
		actorID = &parsed
	}

	var client *model.Client
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, findErr := s.clients.FindByID(txCtx, clientID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.KindNotFound, op, "client not found", findErr)
			}
			return apperr.Wrap(apperr.KindPersistence, op, "failed to load client", findErr)
		}

		// won/lost are terminal stages
		if found.FunnelStage == model.StageWon || found.FunnelStage == model.StageLost {
			return apperr.New(apperr.KindConflict, op, "client already "+found.FunnelStage)
		}

		from := found.FunnelStage
		found.FunnelStage = req.Stage
		action := model.ActionMoveClient
		switch req.Stage {
		case model.StageWon:
			now := time.Now()
			found.WonAt = &now
			action = model.ActionWinClient
		case model.StageLost:
			found.LostReason = req.LostReason
			action = model.ActionLoseClient
		}

		if saveErr := s.clients.Update(txCtx, found); saveErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to update client", saveErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"from": from,
			"to":   req.Stage,
		})
		audit := model.AuditLog{
			UserID:     actorID,
			Action:     action,
			EntityID:   found.ID.String(),
			EntityName: found.Name,
			Details:    string(details),
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to write audit log", auditErr)
		}

		client = found
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "client_id": id, "stage": req.Stage}).
			WithError(err).Error("stage move failed")
		return nil, err
	}

	metrics.PipelineMoves.WithLabelValues(req.Stage).Inc()
	if s.events != nil {
		s.events.BroadcastEvent("pipeline_moved", map[string]interface{}{
			"client_id": client.ID.String(),
			"stage":     client.FunnelStage,
		})
	}

	return client, nil
}

func (s *clientService) AddNote(ctx context.Context, clientID string, req AddNoteDTO, authorID string) (*model.ClientNote, error) {
	const op = "clients.add_note"

	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, "invalid client id", err)
	}
	if _, err := s.clients.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, op, "client not found", err)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, op, "failed to load client", err)
	}

	note := &model.ClientNote{ClientID: id, Note: req.Note}
	if parsed, parseErr := uuid.Parse(authorID); parseErr == nil {
		note.AuthorID = &parsed
	}

	if err := s.clients.AddNote(ctx, note); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, "failed to add note", err)
	}
	return note, nil
}

func (s *clientService) AddTask(ctx context.Context, clientID string, req AddTaskDTO, assigneeID string) (*model.Task, error) {
	const op = "clients.add_task"

	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, "invalid client id", err)
	}
	if _, err := s.clients.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, op, "client not found", err)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, op, "failed to load client", err)
	}

	taskType := req.Type
	if taskType == "" {
		taskType = model.TaskTypeCall
	}

	task := &model.Task{
		ClientID: id,
		Title:    req.Title,
		Type:     taskType,
		Status:   model.TaskPending,
	}
	if parsed, parseErr := uuid.Parse(assigneeID); parseErr == nil {
		task.AssigneeID = &parsed
	}
	if req.DueAt != "" {
		due, parseErr := time.Parse(time.RFC3339, req.DueAt)
		if parseErr != nil {
			return nil, apperr.Wrap(apperr.KindValidation, op, "due_at must be RFC3339", parseErr)
		}
		task.DueAt = &due
	}

	if err := s.clients.AddTask(ctx, task); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, op, "failed to add task", err)
	}
	return task, nil
}
