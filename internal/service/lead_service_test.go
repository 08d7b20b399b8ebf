package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/apperr"
	"backend/internal/model"

	"github.com/google/uuid"
)

type stubSheetReader struct {
	rows     [][]string
	err      error
	gotRange string
}

func (s *stubSheetReader) ReadRange(_ context.Context, rangeSpec string) ([][]string, error) {
	s.gotRange = rangeSpec
	return s.rows, s.err
}

func TestImportLeadsCreatesLeadStageClients(t *testing.T) {
	sheets := &stubSheetReader{rows: [][]string{
		{"Maria Lima", "maria@example.com", "+5511999990000", "instagram-jul", "2026-07-01T10:00:00Z"},
		{"João Alves", "joao@example.com"},
	}}
	clients := newFakeClientRepo()
	audits := &fakeAuditRepo{}
	svc := NewLeadService(sheets, clients, audits, discardLogger())

	result, err := svc.ImportLeads(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("ImportLeads returned error: %v", err)
	}
	if result.Fetched != 2 || result.Imported != 2 || result.Skipped != 0 {
		t.Errorf("result = %+v, want fetched=2 imported=2 skipped=0", result)
	}
	if sheets.gotRange != "Leads!A2:E" {
		t.Errorf("range = %q, want Leads!A2:E", sheets.gotRange)
	}

	maria, err := clients.FindByEmail(context.Background(), "maria@example.com")
	if err != nil {
		t.Fatalf("imported lead missing: %v", err)
	}
	if maria.FunnelStage != model.StageLead {
		t.Errorf("stage = %q, want lead", maria.FunnelStage)
	}
	if maria.Campaign != "instagram-jul" {
		t.Errorf("campaign = %q", maria.Campaign)
	}

	// Short rows default the campaign.
	joao, _ := clients.FindByEmail(context.Background(), "joao@example.com")
	if joao.Campaign != "unknown" {
		t.Errorf("defaulted campaign = %q, want unknown", joao.Campaign)
	}

	if len(audits.entries) != 1 || audits.entries[0].Action != model.ActionImportLeads {
		t.Errorf("audit entries = %+v", audits.entries)
	}
}

func TestImportLeadsSkipsKnownEmailsAndBlankRows(t *testing.T) {
	clients := newFakeClientRepo()
	_ = clients.Create(context.Background(), &model.Client{
		Name:        "Maria Lima",
		Email:       "maria@example.com",
		FunnelStage: model.StageContacted,
	})

	sheets := &stubSheetReader{rows: [][]string{
		{"Maria Lima", "maria@example.com", "", "instagram-jul"},
		{"", "noname@example.com"},
		{"Novo Lead", "novo@example.com"},
	}}
	svc := NewLeadService(sheets, clients, &fakeAuditRepo{}, discardLogger())

	result, err := svc.ImportLeads(context.Background(), "")
	if err != nil {
		t.Fatalf("ImportLeads returned error: %v", err)
	}
	if result.Fetched != 3 || result.Imported != 1 || result.Skipped != 2 {
		t.Errorf("result = %+v, want fetched=3 imported=1 skipped=2", result)
	}

	// Existing client is left alone, not demoted back to lead.
	maria, _ := clients.FindByEmail(context.Background(), "maria@example.com")
	if maria.FunnelStage != model.StageContacted {
		t.Errorf("existing client stage = %q, want contacted", maria.FunnelStage)
	}
}

// brokenEmailClientRepo fails the email lookup with a non-not-found
// error, as a dropped connection would.
type brokenEmailClientRepo struct {
	*fakeClientRepo
	err error
}

func (f *brokenEmailClientRepo) FindByEmail(context.Context, string) (*model.Client, error) {
	return nil, f.err
}

func TestImportLeadsEmailLookupFailureIsNotADuplicate(t *testing.T) {
	clients := &brokenEmailClientRepo{
		fakeClientRepo: newFakeClientRepo(),
		err:            errors.New("driver: bad connection"),
	}
	sheets := &stubSheetReader{rows: [][]string{
		{"Maria Lima", "maria@example.com"},
	}}
	svc := NewLeadService(sheets, clients, &fakeAuditRepo{}, discardLogger())

	result, err := svc.ImportLeads(context.Background(), "")
	if apperr.KindOf(err) != apperr.KindPersistence {
		t.Fatalf("kind = %q, want persistence (err: %v)", apperr.KindOf(err), err)
	}
	if result.Imported != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v, want the lookup failure to import or skip nothing", result)
	}
	if len(clients.fakeClientRepo.clients) != 0 {
		t.Error("lead stored despite failed dedupe check")
	}
}

func TestImportLeadsSheetFailure(t *testing.T) {
	sheets := &stubSheetReader{err: errors.New("quota exceeded")}
	svc := NewLeadService(sheets, newFakeClientRepo(), &fakeAuditRepo{}, discardLogger())

	_, err := svc.ImportLeads(context.Background(), "")
	if apperr.KindOf(err) != apperr.KindPersistence {
		t.Fatalf("kind = %q, want persistence (err: %v)", apperr.KindOf(err), err)
	}
}

func TestGoogleSheetReaderReadRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Leads!A2:E","values":[["Ana","ana@example.com"],["Bia","bia@example.com"]]}`))
	}))
	defer server.Close()

	reader := NewGoogleSheetReader("sheet-id", "test-key")
	reader.BaseURL = server.URL

	rows, err := reader.ReadRange(context.Background(), "Leads!A2:E")
	if err != nil {
		t.Fatalf("ReadRange returned error: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Ana" || rows[1][1] != "bia@example.com" {
		t.Errorf("rows = %v", rows)
	}
}

func TestGoogleSheetReaderNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	reader := NewGoogleSheetReader("sheet-id", "key")
	reader.BaseURL = server.URL

	if _, err := reader.ReadRange(context.Background(), "Leads!A2:E"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
