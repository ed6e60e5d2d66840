package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox/payloads"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

type stubModerationRepo struct {
	item           *Item
	updates        map[string]any
	appliedVersion int
	rowsAffected   int64
	list           *QueueList
}

func (s *stubModerationRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubModerationRepo) FindByID(ctx context.Context, kind enums.ModerationKind, itemID uuid.UUID) (*Item, error) {
	if s.item == nil || s.item.ID != itemID || s.item.Kind != kind {
		return nil, gorm.ErrRecordNotFound
	}
	return s.item, nil
}

func (s *stubModerationRepo) ApplyDecision(ctx context.Context, kind enums.ModerationKind, itemID uuid.UUID, version int, updates map[string]any) (int64, error) {
	s.updates = updates
	s.appliedVersion = version
	return s.rowsAffected, nil
}

func (s *stubModerationRepo) ListPending(ctx context.Context, kind enums.ModerationKind, params pagination.Params) (*QueueList, error) {
	return s.list, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func pendingListing() *Item {
	return &Item{
		ID:        uuid.New(),
		Kind:      enums.ModerationKindListing,
		OwnerID:   uuid.New(),
		Title:     "2x hardware wallet",
		Status:    enums.ModerationStatusPending,
		Version:   3,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func newTestService(t *testing.T, repo Repository, ob outboxPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, ob, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestApproveListing(t *testing.T) {
	item := pendingListing()
	repo := &stubModerationRepo{item: item, rowsAffected: 1}
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob)

	admin := uuid.New()
	err := svc.Approve(context.Background(), DecisionInput{
		Kind:      enums.ModerationKindListing,
		ItemID:    item.ID,
		ActorID:   admin,
		ActorRole: "admin",
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got := repo.updates["status"]; got != enums.ModerationStatusApproved {
		t.Fatalf("status = %v", got)
	}
	if repo.appliedVersion != item.Version {
		t.Fatalf("applied version = %d", repo.appliedVersion)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != enums.EventListingApproved {
		t.Fatalf("unexpected events: %+v", ob.events)
	}
	payload := ob.events[0].Data.(payloads.ListingApprovedEvent)
	if payload.VendorID != item.OwnerID || payload.ReviewedBy != admin {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestApproveApplicationEmitsApplicationEvent(t *testing.T) {
	item := pendingListing()
	item.Kind = enums.ModerationKindVendorApplication
	repo := &stubModerationRepo{item: item, rowsAffected: 1}
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob)

	err := svc.Approve(context.Background(), DecisionInput{
		Kind:      enums.ModerationKindVendorApplication,
		ItemID:    item.ID,
		ActorID:   uuid.New(),
		ActorRole: "admin",
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if ob.events[0].EventType != enums.EventApplicationApproved {
		t.Fatalf("event type = %s", ob.events[0].EventType)
	}
	if ob.events[0].AggregateType != enums.AggregateVendorApplication {
		t.Fatalf("aggregate type = %s", ob.events[0].AggregateType)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	item := pendingListing()
	repo := &stubModerationRepo{item: item, rowsAffected: 1}
	svc := newTestService(t, repo, &stubOutbox{})

	for _, reason := range []string{"", "   "} {
		err := svc.Reject(context.Background(), DecisionInput{
			Kind:      enums.ModerationKindListing,
			ItemID:    item.ID,
			Reason:    reason,
			ActorID:   uuid.New(),
			ActorRole: "admin",
		})
		assertCode(t, err, pkgerrors.CodeValidation)
	}
	if repo.updates != nil {
		t.Fatal("no decision should be written without a reason")
	}
}

func TestRejectWritesReason(t *testing.T) {
	item := pendingListing()
	repo := &stubModerationRepo{item: item, rowsAffected: 1}
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob)

	err := svc.Reject(context.Background(), DecisionInput{
		Kind:      enums.ModerationKindListing,
		ItemID:    item.ID,
		Reason:    "  counterfeit goods  ",
		ActorID:   uuid.New(),
		ActorRole: "admin",
	})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got := repo.updates["rejection_reason"]; got != "counterfeit goods" {
		t.Fatalf("rejection_reason = %v", got)
	}
	payload := ob.events[0].Data.(payloads.ListingRejectedEvent)
	if payload.Reason != "counterfeit goods" {
		t.Fatalf("payload reason = %q", payload.Reason)
	}
}

func TestDecisionOnDecidedItemConflicts(t *testing.T) {
	item := pendingListing()
	item.Status = enums.ModerationStatusApproved
	repo := &stubModerationRepo{item: item, rowsAffected: 1}
	svc := newTestService(t, repo, &stubOutbox{})

	err := svc.Approve(context.Background(), DecisionInput{
		Kind:      enums.ModerationKindListing,
		ItemID:    item.ID,
		ActorID:   uuid.New(),
		ActorRole: "admin",
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestVersionMismatchConflicts(t *testing.T) {
	item := pendingListing()
	repo := &stubModerationRepo{item: item, rowsAffected: 0}
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob)

	stale := item.Version - 1
	err := svc.Approve(context.Background(), DecisionInput{
		Kind:            enums.ModerationKindListing,
		ItemID:          item.ID,
		ExpectedVersion: &stale,
		ActorID:         uuid.New(),
		ActorRole:       "admin",
	})
	assertCode(t, err, pkgerrors.CodeConflict)
	if repo.appliedVersion != stale {
		t.Fatalf("applied version = %d, want the client's %d", repo.appliedVersion, stale)
	}
	if len(ob.events) != 0 {
		t.Fatal("no event should be emitted when the version check fails")
	}
}

func TestReconsiderRejectedOnly(t *testing.T) {
	item := pendingListing()
	repo := &stubModerationRepo{item: item, rowsAffected: 1}
	svc := newTestService(t, repo, &stubOutbox{})

	err := svc.Reconsider(context.Background(), DecisionInput{
		Kind:      enums.ModerationKindListing,
		ItemID:    item.ID,
		ActorID:   uuid.New(),
		ActorRole: "admin",
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestReconsiderReopensRejectedItem(t *testing.T) {
	item := pendingListing()
	item.Status = enums.ModerationStatusRejected
	repo := &stubModerationRepo{item: item, rowsAffected: 1}
	ob := &stubOutbox{}
	svc := newTestService(t, repo, ob)

	err := svc.Reconsider(context.Background(), DecisionInput{
		Kind:      enums.ModerationKindListing,
		ItemID:    item.ID,
		ActorID:   uuid.New(),
		ActorRole: "admin",
	})
	if err != nil {
		t.Fatalf("Reconsider: %v", err)
	}
	if got := repo.updates["status"]; got != enums.ModerationStatusPending {
		t.Fatalf("status = %v", got)
	}
	if reason, ok := repo.updates["rejection_reason"]; !ok || reason != nil {
		t.Fatalf("rejection_reason should be cleared, got %v", reason)
	}
	if by, ok := repo.updates["reviewed_by"]; !ok || by != nil {
		t.Fatalf("reviewed_by should be cleared, got %v", by)
	}
	if at, ok := repo.updates["reviewed_at"]; !ok || at != nil {
		t.Fatalf("reviewed_at should be cleared, got %v", at)
	}
	if ob.events[0].EventType != enums.EventModerationReopened {
		t.Fatalf("event type = %s", ob.events[0].EventType)
	}
}

func TestDecisionItemNotFound(t *testing.T) {
	repo := &stubModerationRepo{rowsAffected: 1}
	svc := newTestService(t, repo, &stubOutbox{})

	err := svc.Approve(context.Background(), DecisionInput{
		Kind:      enums.ModerationKindListing,
		ItemID:    uuid.New(),
		ActorID:   uuid.New(),
		ActorRole: "admin",
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListPendingRejectsUnknownKind(t *testing.T) {
	repo := &stubModerationRepo{list: &QueueList{}}
	svc := newTestService(t, repo, &stubOutbox{})

	_, err := svc.ListPending(context.Background(), enums.ModerationKind("coupon"), pagination.Params{})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestListPendingRejectsMalformedCursor(t *testing.T) {
	repo := &stubModerationRepo{list: &QueueList{}}
	svc := newTestService(t, repo, &stubOutbox{})

	_, err := svc.ListPending(context.Background(), enums.ModerationKindListing, pagination.Params{Cursor: "!!not-base64!!"})
	assertCode(t, err, pkgerrors.CodeValidation)
}
