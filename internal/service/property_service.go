package service

import (
	"context"
	"encoding/json"
	"errors"

	"backend/internal/apperr"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// --- DTOs ---

type TypologyDTO struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value" binding:"required"` // decimal string, e.g. "350000"
}

type CreatePropertyDTO struct {
	Title              string        `json:"title" binding:"required"`
	Description        string        `json:"description"`
	Address            string        `json:"address"`
	City               string        `json:"city"`
	State              string        `json:"state"`
	ZipCode            string        `json:"zipCode"`
	PropertyType       string        `json:"propertyType"`
	Status             string        `json:"status"`
	TotalUnits         int           `json:"totalUnits"`
	DeliveryDate       string        `json:"deliveryDate"`
	DeveloperName      string        `json:"developerName"`
	PartnershipManager string        `json:"partnershipManager"`
	Typologies         []TypologyDTO `json:"typologies"`
	Images             []string      `json:"images"`
}

type PropertyFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// --- Interface ---

type PropertyService interface {
	CreateProperty(ctx context.Context, req CreatePropertyDTO, createdBy string) (*model.Property, error)
	GetProperty(ctx context.Context, id string) (*model.Property, error)
	ListProperties(ctx context.Context, filter PropertyFilter) ([]model.Property, int64, error)
	DeleteProperty(ctx context.Context, id string, deletedBy string) error
}

type propertyService struct {
	properties repository.PropertyRepository
	audits     repository.AuditRepository
	tx         repository.TransactionManager
	log        *logrus.Logger
}

func NewPropertyService(
	properties repository.PropertyRepository,
	audits repository.AuditRepository,
	tx repository.TransactionManager,
	log *logrus.Logger,
) PropertyService {
	return &propertyService{properties: properties, audits: audits, tx: tx, log: log}
}

func (s *propertyService) CreateProperty(ctx context.Context, req CreatePropertyDTO, createdBy string) (*model.Property, error) {
	const op = "properties.create"

	status := req.Status
	if status == "" {
		status = model.PropertyStatusPlanning
	}

	typologies := make([]model.Typology, 0, len(req.Typologies))
	for _, t := range req.Typologies {
		value, err := decimal.NewFromString(t.Value)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, op, "typology value is not a number: "+t.Name, err)
		}
		typologies = append(typologies, model.Typology{Name: t.Name, Value: value})
	}
	typologyJSON, err := json.Marshal(typologies)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, "failed to encode typologies", err)
	}

	images := req.Images
	if images == nil {
		images = []string{}
	}
	imageJSON, err := json.Marshal(images)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, "failed to encode images", err)
	}

	property := &model.Property{
		Title:              req.Title,
		Description:        req.Description,
		Address:            req.Address,
		City:               req.City,
		State:              req.State,
		ZipCode:            req.ZipCode,
		PropertyType:       req.PropertyType,
		Status:             status,
		TotalUnits:         req.TotalUnits,
		DeliveryDate:       req.DeliveryDate,
		DeveloperName:      req.DeveloperName,
		PartnershipManager: req.PartnershipManager,
		Typologies:         string(typologyJSON),
		Images:             string(imageJSON),
	}

	var creatorID *uuid.UUID
	if parsed, parseErr := uuid.Parse(createdBy); parseErr == nil {
		creatorID = &parsed
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.properties.Create(txCtx, property); createErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to create property", createErr)
		}
		audit := model.AuditLog{
			UserID:     creatorID,
			Action:     model.ActionCreateProperty,
			EntityID:   property.ID.String(),
			EntityName: property.Title,
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to write audit log", auditErr)
		}
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op, "title": req.Title}).
			WithError(err).Error("property creation failed")
		return nil, err
	}

	return property, nil
}

func (s *propertyService) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	const op = "properties.get"

	propID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, "invalid property id", err)
	}

	property, err := s.properties.FindByID(ctx, propID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, op, "property not found", err)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, op, "failed to load property", err)
	}
	return property, nil
}

func (s *propertyService) ListProperties(ctx context.Context, filter PropertyFilter) ([]model.Property, int64, error) {
	const op = "properties.list"

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	properties, total, err := s.properties.List(ctx, filter.Search, filter.Status, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindPersistence, op, "failed to list properties", err)
	}
	return properties, total, nil
}

func (s *propertyService) DeleteProperty(ctx context.Context, id string, deletedBy string) error {
	const op = "properties.delete"

	propID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, op, "invalid property id", err)
	}

	property, err := s.properties.FindByID(ctx, propID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.KindNotFound, op, "property not found", err)
		}
		return apperr.Wrap(apperr.KindPersistence, op, "failed to load property", err)
	}

	var actorID *uuid.UUID
	if parsed, parseErr := uuid.Parse(deletedBy); parseErr == nil {
		actorID = &parsed
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.properties.Delete(txCtx, propID); delErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to delete property", delErr)
		}
		audit := model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionDeleteProperty,
			EntityID:   propID.String(),
			EntityName: property.Title,
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return apperr.Wrap(apperr.KindPersistence, op, "failed to write audit log", auditErr)
		}
		return nil
	})
}
