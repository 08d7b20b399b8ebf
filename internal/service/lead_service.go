package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"backend/internal/apperr"
	"backend/internal/metrics"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SheetLead is one row of the marketing lead sheet
// (Leads!A2:E → name, email, phone, campaign, timestamp).
type SheetLead struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Campaign  string `json:"campaign"`
	Timestamp string `json:"timestamp"`
}

// SheetReader fetches a value range from the configured spreadsheet.
type SheetReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]string, error)
}

// leadRange is the sheet tab and columns the importer consumes.
const leadRange = "Leads!A2:E"

type ImportResult struct {
	Fetched  int `json:"fetched"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"` // already known by email
}

type LeadService interface {
	ImportLeads(ctx context.Context, importedBy string) (ImportResult, error)
}

type leadService struct {
	sheets  SheetReader
	clients repository.ClientRepository
	audits  repository.AuditRepository
	log     *logrus.Logger
}

func NewLeadService(
	sheets SheetReader,
	clients repository.ClientRepository,
	audits repository.AuditRepository,
	log *logrus.Logger,
) LeadService {
	return &leadService{sheets: sheets, clients: clients, audits: audits, log: log}
}

func (s *leadService) ImportLeads(ctx context.Context, importedBy string) (ImportResult, error) {
	const op = "leads.import"

	rows, err := s.sheets.ReadRange(ctx, leadRange)
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": op}).WithError(err).Error("sheet read failed")
		return ImportResult{}, apperr.Wrap(apperr.KindPersistence, op, "failed to read lead sheet", err)
	}

	result := ImportResult{Fetched: len(rows)}
	for _, row := range rows {
		lead := rowToLead(row)
		if lead.Name == "" {
			result.Skipped++
			continue
		}
		if lead.Email != "" {
			_, findErr := s.clients.FindByEmail(ctx, lead.Email)
			switch {
			case findErr == nil:
				result.Skipped++
				continue
			case !errors.Is(findErr, gorm.ErrRecordNotFound):
				return result, apperr.Wrap(apperr.KindPersistence, op, "failed to check lead "+lead.Email, findErr)
			}
		}

		client := &model.Client{
			Name:        lead.Name,
			Email:       lead.Email,
			Phone:       lead.Phone,
			Campaign:    lead.Campaign,
			FunnelStage: model.StageLead,
		}
		if err := s.clients.Create(ctx, client); err != nil {
			return result, apperr.Wrap(apperr.KindPersistence, op, "failed to store lead "+lead.Name, err)
		}
		result.Imported++
	}

	metrics.LeadsImported.Add(float64(result.Imported))

	var actorID *uuid.UUID
	if parsed, parseErr := uuid.Parse(importedBy); parseErr == nil {
		actorID = &parsed
	}
	details, _ := json.Marshal(result)
	audit := model.AuditLog{
		UserID:  actorID,
		Action:  model.ActionImportLeads,
		Details: string(details),
	}
	if err := s.audits.Log(ctx, &audit); err != nil {
		s.log.WithFields(logrus.Fields{"op": op}).WithError(err).Warn("audit write failed after import")
	}

	return result, nil
}

func rowToLead(row []string) SheetLead {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	lead := SheetLead{
		Name:      get(0),
		Email:     get(1),
		Phone:     get(2),
		Campaign:  get(3),
		Timestamp: get(4),
	}
	if lead.Campaign == "" {
		lead.Campaign = "unknown"
	}
	if lead.Timestamp == "" {
		lead.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return lead
}

// --- Google Sheets values.get client ---

// GoogleSheetReader reads value ranges through the Sheets v4 REST API
// using an API key. Read-only; never writes back to the sheet.
type GoogleSheetReader struct {
	HTTPClient    *http.Client
	BaseURL       string
	SpreadsheetID string
	APIKey        string
}

func NewGoogleSheetReader(spreadsheetID, apiKey string) *GoogleSheetReader {
	return &GoogleSheetReader{
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		BaseURL:       "https://sheets.googleapis.com/v4/spreadsheets",
		SpreadsheetID: spreadsheetID,
		APIKey:        apiKey,
	}
}

func (g *GoogleSheetReader) ReadRange(ctx context.Context, rangeSpec string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/%s/values/%s?key=%s",
		g.BaseURL, url.PathEscape(g.SpreadsheetID), url.PathEscape(rangeSpec), url.QueryEscape(g.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheets API returned %d", resp.StatusCode)
	}

	var body struct {
		Values [][]string `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Values, nil
}
