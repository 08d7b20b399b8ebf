package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/apperr"
	"backend/internal/model"

	"github.com/google/uuid"
)

func newApprovalFixture() (*fakeChangeRepo, *fakePropertyRepo, *fakeAuditRepo, *fakeBroadcaster, ApprovalService) {
	changes := newFakeChangeRepo()
	props := newFakePropertyRepo()
	audits := &fakeAuditRepo{}
	events := &fakeBroadcaster{}
	tx := &fakeTx{changes: changes, props: props, audits: audits}
	svc := NewApprovalService(changes, props, audits, tx,
		[]string{"admin", "director", "manager"}, events, discardLogger())
	return changes, props, audits, events, svc
}

func pendingChange(propID uuid.UUID, field, newValue string) model.PropertyChange {
	return model.PropertyChange{
		PropertyID: propID,
		Field:      field,
		OldValue:   "null",
		NewValue:   newValue,
		Status:     model.ChangePending,
	}
}

func TestDecideApproveAppliesFieldAndFlipsStatus(t *testing.T) {
	changes, props, audits, events, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)
	changeID := changes.seed(pendingChange(propID, "title", `"Vista Tower"`))
	reviewer := Reviewer{ID: uuid.NewString(), Role: "director"}

	result, err := svc.Decide(context.Background(), propID.String(), reviewer,
		DecideDTO{ChangeID: changeID.String(), Action: ActionApprove})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if result.Status != model.ChangeApproved {
		t.Errorf("result status = %q, want %q", result.Status, model.ChangeApproved)
	}

	if got := props.cols[propID]["title"]; got != "Vista Tower" {
		t.Errorf("title column = %v, want %q", got, "Vista Tower")
	}

	row := changes.rows[changeID]
	if row.Status != model.ChangeApproved {
		t.Errorf("ledger status = %q, want approved", row.Status)
	}
	if row.ReviewedBy == nil || row.ReviewedBy.String() != reviewer.ID {
		t.Errorf("reviewed_by = %v, want %s", row.ReviewedBy, reviewer.ID)
	}
	if row.ReviewedAt == nil {
		t.Error("reviewed_at not stamped")
	}

	if len(audits.entries) != 1 || audits.entries[0].Action != model.ActionApproveChange {
		t.Errorf("audit entries = %+v, want one APPROVE_PROPERTY_CHANGE", audits.entries)
	}
	if len(events.events) != 1 || events.events[0].Type != "change_decided" {
		t.Errorf("events = %+v, want one change_decided", events.events)
	}
}

func TestDecideRejectLeavesPropertyUntouched(t *testing.T) {
	changes, props, _, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)
	changeID := changes.seed(pendingChange(propID, "city", `"Lisbon"`))

	result, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{ChangeID: changeID.String(), Action: ActionReject})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if result.Status != model.ChangeRejected {
		t.Errorf("result status = %q, want rejected", result.Status)
	}
	if len(props.cols[propID]) != 0 {
		t.Errorf("property mutated on reject: %v", props.cols[propID])
	}
	if changes.rows[changeID].Status != model.ChangeRejected {
		t.Errorf("ledger status = %q, want rejected", changes.rows[changeID].Status)
	}
}

func TestDecideForbiddenRole(t *testing.T) {
	changes, props, audits, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)
	changeID := changes.seed(pendingChange(propID, "title", `"New"`))

	_, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "agent"},
		DecideDTO{ChangeID: changeID.String(), Action: ActionApprove})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("kind = %q, want forbidden (err: %v)", apperr.KindOf(err), err)
	}
	if changes.rows[changeID].Status != model.ChangePending {
		t.Errorf("ledger status = %q, want pending", changes.rows[changeID].Status)
	}
	if len(props.cols[propID]) != 0 {
		t.Error("property mutated despite forbidden role")
	}
	if len(audits.entries) != 0 {
		t.Error("audit written despite forbidden role")
	}
}

func TestDecideTerminalChangeConflicts(t *testing.T) {
	changes, props, _, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)
	decided := pendingChange(propID, "title", `"Old"`)
	decided.Status = model.ChangeApproved
	changeID := changes.seed(decided)

	_, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{ChangeID: changeID.String(), Action: ActionReject})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("kind = %q, want conflict (err: %v)", apperr.KindOf(err), err)
	}
	if changes.rows[changeID].Status != model.ChangeApproved {
		t.Errorf("terminal status rewritten to %q", changes.rows[changeID].Status)
	}
}

func TestDecideUnknownChangeNotFound(t *testing.T) {
	_, props, _, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)

	_, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{ChangeID: uuid.NewString(), Action: ActionApprove})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("kind = %q, want not_found (err: %v)", apperr.KindOf(err), err)
	}
}

func TestDecideChangeFromOtherPropertyNotFound(t *testing.T) {
	changes, props, _, _, svc := newApprovalFixture()

	propID := uuid.New()
	otherID := uuid.New()
	props.add(propID)
	props.add(otherID)
	changeID := changes.seed(pendingChange(otherID, "title", `"X"`))

	_, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{ChangeID: changeID.String(), Action: ActionApprove})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("kind = %q, want not_found (err: %v)", apperr.KindOf(err), err)
	}
	if changes.rows[changeID].Status != model.ChangePending {
		t.Error("foreign change decided through wrong property scope")
	}
}

func TestDecideInvalidAction(t *testing.T) {
	_, _, _, _, svc := newApprovalFixture()

	_, err := svc.Decide(context.Background(), uuid.NewString(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{ChangeID: uuid.NewString(), Action: "maybe"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %q, want validation (err: %v)", apperr.KindOf(err), err)
	}
}

func TestDecideMissingReviewerUnauthorized(t *testing.T) {
	_, props, _, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)

	_, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: "", Role: "admin"},
		DecideDTO{ChangeID: uuid.NewString(), Action: ActionApprove})
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("kind = %q, want unauthorized (err: %v)", apperr.KindOf(err), err)
	}
}

func TestDecideBatchAllOrNothing(t *testing.T) {
	changes, props, audits, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)
	goodID := changes.seed(pendingChange(propID, "title", `"Vista Tower"`))
	// Non-numeric totalUnits makes the second mutation fail validation.
	badID := changes.seed(pendingChange(propID, "totalUnits", `"lots"`))

	_, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "manager"},
		DecideDTO{ChangeIDs: []string{goodID.String(), badID.String()}, Action: ActionApprove})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %q, want validation (err: %v)", apperr.KindOf(err), err)
	}

	// The whole batch rolls back: first change stays pending and its
	// mutation is undone.
	if changes.rows[goodID].Status != model.ChangePending {
		t.Errorf("first change status = %q, want pending", changes.rows[goodID].Status)
	}
	if changes.rows[badID].Status != model.ChangePending {
		t.Errorf("second change status = %q, want pending", changes.rows[badID].Status)
	}
	if len(props.cols[propID]) != 0 {
		t.Errorf("property mutated despite rollback: %v", props.cols[propID])
	}
	if len(audits.entries) != 0 {
		t.Error("audit written despite rollback")
	}
}

func TestDecideBatchApprovesAll(t *testing.T) {
	changes, props, _, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)
	titleID := changes.seed(pendingChange(propID, "title", `"Vista Tower"`))
	unitsID := changes.seed(pendingChange(propID, "totalUnits", `"120"`))
	typoID := changes.seed(pendingChange(propID, "typologies",
		`[{"name":"2BR","value":"350000"}]`))

	result, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{
			ChangeIDs: []string{titleID.String(), unitsID.String(), typoID.String()},
			Action:    ActionApprove,
		})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if len(result.Changes) != 3 {
		t.Errorf("decided %d changes, want 3", len(result.Changes))
	}

	cols := props.cols[propID]
	if cols["title"] != "Vista Tower" {
		t.Errorf("title = %v", cols["title"])
	}
	if cols["total_units"] != 120 {
		t.Errorf("total_units = %v, want 120", cols["total_units"])
	}
	if cols["typologies"] != `[{"name":"2BR","value":"350000"}]` {
		t.Errorf("typologies = %v", cols["typologies"])
	}
	for _, id := range []uuid.UUID{titleID, unitsID, typoID} {
		if changes.rows[id].Status != model.ChangeApproved {
			t.Errorf("change %s status = %q, want approved", id, changes.rows[id].Status)
		}
	}
}

func TestDecideApproveMissingPropertyRollsBack(t *testing.T) {
	changes, _, _, _, svc := newApprovalFixture()

	// Ledger row exists but the property was deleted underneath it.
	propID := uuid.New()
	changeID := changes.seed(pendingChange(propID, "title", `"Ghost"`))

	_, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{ChangeID: changeID.String(), Action: ActionApprove})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("kind = %q, want not_found (err: %v)", apperr.KindOf(err), err)
	}
	if changes.rows[changeID].Status != model.ChangePending {
		t.Errorf("ledger status = %q, want pending after failed mutation", changes.rows[changeID].Status)
	}
}

func TestDecideDuplicateIDsCollapse(t *testing.T) {
	changes, props, _, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)
	changeID := changes.seed(pendingChange(propID, "state", `"SP"`))

	result, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{
			ChangeID:  changeID.String(),
			ChangeIDs: []string{changeID.String()},
			Action:    ActionApprove,
		})
	if err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}
	if len(result.Changes) != 1 {
		t.Errorf("decided %d changes, want 1 after dedupe", len(result.Changes))
	}
}

func TestDecideReviewedAtIsRecent(t *testing.T) {
	changes, props, _, _, svc := newApprovalFixture()

	propID := uuid.New()
	props.add(propID)
	changeID := changes.seed(pendingChange(propID, "title", `"T"`))

	before := time.Now()
	if _, err := svc.Decide(context.Background(), propID.String(),
		Reviewer{ID: uuid.NewString(), Role: "admin"},
		DecideDTO{ChangeID: changeID.String(), Action: ActionApprove}); err != nil {
		t.Fatalf("Decide returned error: %v", err)
	}

	at := changes.rows[changeID].ReviewedAt
	if at == nil || at.Before(before.Add(-time.Second)) || at.After(time.Now().Add(time.Second)) {
		t.Errorf("reviewed_at = %v, want around now", at)
	}
}
