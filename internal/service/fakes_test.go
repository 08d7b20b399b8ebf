package service

import (
	"context"
	"io"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakePropertyRepo keeps properties as column maps so field-level writes
// can be asserted directly in tests.
type fakePropertyRepo struct {
	cols      map[uuid.UUID]map[string]interface{}
	updateErr error
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{cols: map[uuid.UUID]map[string]interface{}{}}
}

func (f *fakePropertyRepo) add(id uuid.UUID) {
	f.cols[id] = map[string]interface{}{}
}

func (f *fakePropertyRepo) Create(_ context.Context, p *model.Property) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.cols[p.ID] = map[string]interface{}{}
	return nil
}

func (f *fakePropertyRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Property, error) {
	if _, ok := f.cols[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.Property{ID: id}, nil
}

func (f *fakePropertyRepo) List(_ context.Context, _, _ string, _, _ int) ([]model.Property, int64, error) {
	return nil, int64(len(f.cols)), nil
}

func (f *fakePropertyRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.cols, id)
	return nil
}

func (f *fakePropertyRepo) UpdateField(_ context.Context, id uuid.UUID, column string, value interface{}) (int64, error) {
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	c, ok := f.cols[id]
	if !ok {
		return 0, nil
	}
	c[column] = value
	return 1, nil
}

func (f *fakePropertyRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.cols)), nil
}

func (f *fakePropertyRepo) snapshot() map[uuid.UUID]map[string]interface{} {
	out := make(map[uuid.UUID]map[string]interface{}, len(f.cols))
	for id, cols := range f.cols {
		cp := make(map[string]interface{}, len(cols))
		for k, v := range cols {
			cp[k] = v
		}
		out[id] = cp
	}
	return out
}

// fakeChangeRepo is an in-memory change ledger.
type fakeChangeRepo struct {
	rows  map[uuid.UUID]model.PropertyChange
	order []uuid.UUID
}

func newFakeChangeRepo() *fakeChangeRepo {
	return &fakeChangeRepo{rows: map[uuid.UUID]model.PropertyChange{}}
}

func (f *fakeChangeRepo) seed(c model.PropertyChange) uuid.UUID {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	f.rows[c.ID] = c
	f.order = append(f.order, c.ID)
	return c.ID
}

func (f *fakeChangeRepo) Create(_ context.Context, change *model.PropertyChange) error {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	change.CreatedAt = time.Now()
	f.rows[change.ID] = *change
	f.order = append(f.order, change.ID)
	return nil
}

func (f *fakeChangeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PropertyChange, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (f *fakeChangeRepo) ListByProperty(_ context.Context, propertyID uuid.UUID, limit int) ([]model.PropertyChange, error) {
	var out []model.PropertyChange
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		row := f.rows[f.order[i]]
		if row.PropertyID == propertyID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeChangeRepo) FindForDecision(_ context.Context, propertyID uuid.UUID, ids []uuid.UUID) ([]model.PropertyChange, error) {
	var out []model.PropertyChange
	for _, id := range ids {
		if row, ok := f.rows[id]; ok && row.PropertyID == propertyID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeChangeRepo) MarkDecided(_ context.Context, propertyID uuid.UUID, ids []uuid.UUID, status string, reviewedBy uuid.UUID, reviewedAt time.Time) (int64, error) {
	var updated int64
	for _, id := range ids {
		row, ok := f.rows[id]
		if !ok || row.PropertyID != propertyID || row.Status != model.ChangePending {
			continue
		}
		row.Status = status
		row.ReviewedBy = &reviewedBy
		at := reviewedAt
		row.ReviewedAt = &at
		f.rows[id] = row
		updated++
	}
	return updated, nil
}

func (f *fakeChangeRepo) snapshot() map[uuid.UUID]model.PropertyChange {
	out := make(map[uuid.UUID]model.PropertyChange, len(f.rows))
	for id, row := range f.rows {
		out[id] = row
	}
	return out
}

// fakeClientRepo is an in-memory client store keyed by id, with an
// email index for the lead importer's dedupe path.
type fakeClientRepo struct {
	clients map[uuid.UUID]*model.Client
	notes   []model.ClientNote
	tasks   []model.Task
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: map[uuid.UUID]*model.Client{}}
}

func (f *fakeClientRepo) Create(_ context.Context, client *model.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	cp := *client
	f.clients[client.ID] = &cp
	return nil
}

func (f *fakeClientRepo) Update(_ context.Context, client *model.Client) error {
	if _, ok := f.clients[client.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *client
	f.clients[client.ID] = &cp
	return nil
}

func (f *fakeClientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *client
	return &cp, nil
}

func (f *fakeClientRepo) FindByEmail(_ context.Context, email string) (*model.Client, error) {
	for _, client := range f.clients {
		if client.Email == email {
			cp := *client
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeClientRepo) List(_ context.Context, stage, _ string, _, _ int) ([]model.Client, int64, error) {
	var out []model.Client
	for _, client := range f.clients {
		if stage == "" || client.FunnelStage == stage {
			out = append(out, *client)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeClientRepo) AddNote(_ context.Context, note *model.ClientNote) error {
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeClientRepo) AddTask(_ context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	f.tasks = append(f.tasks, *task)
	return nil
}

// fakeAuditRepo collects audit entries in order.
type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _, _ int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

// fakeTx mimics transactional rollback over the in-memory fakes: it
// snapshots their state before fn and restores it when fn errors.
type fakeTx struct {
	changes *fakeChangeRepo
	props   *fakePropertyRepo
	audits  *fakeAuditRepo
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	var chSnap map[uuid.UUID]model.PropertyChange
	var chOrder []uuid.UUID
	var prSnap map[uuid.UUID]map[string]interface{}
	var auLen int
	if f.changes != nil {
		chSnap = f.changes.snapshot()
		chOrder = append([]uuid.UUID(nil), f.changes.order...)
	}
	if f.props != nil {
		prSnap = f.props.snapshot()
	}
	if f.audits != nil {
		auLen = len(f.audits.entries)
	}

	if err := fn(ctx); err != nil {
		if f.changes != nil {
			f.changes.rows = chSnap
			f.changes.order = chOrder
		}
		if f.props != nil {
			f.props.cols = prSnap
		}
		if f.audits != nil {
			f.audits.entries = f.audits.entries[:auLen]
		}
		return err
	}
	return nil
}

// fakeBroadcaster records pushed events.
type fakeBroadcaster struct {
	events []struct {
		Type    string
		Payload interface{}
	}
}

func (f *fakeBroadcaster) BroadcastEvent(eventType string, payload interface{}) {
	f.events = append(f.events, struct {
		Type    string
		Payload interface{}
	}{eventType, payload})
}
