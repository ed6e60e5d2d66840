package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/metrics"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox"
	"github.com/velara-labs/cryptomart-backend/pkg/outbox/payloads"
	"github.com/velara-labs/cryptomart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DecisionInput carries an admin action against a queued item. When
// ExpectedVersion is set the decision only applies if the row still carries
// that version; otherwise the version read inside the transaction is used.
type DecisionInput struct {
	Kind            enums.ModerationKind
	ItemID          uuid.UUID
	Reason          string
	AdminNotes      *string
	ExpectedVersion *int
	ActorID         uuid.UUID
	ActorRole       string
}

// Service drives the shared review workflow for listings and vendor applications.
type Service interface {
	Approve(ctx context.Context, input DecisionInput) error
	Reject(ctx context.Context, input DecisionInput) error
	Reconsider(ctx context.Context, input DecisionInput) error
	ListPending(ctx context.Context, kind enums.ModerationKind, params pagination.Params) (*QueueList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.AdminActionMetrics
}

// NewService builds the moderation service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, admin *metrics.AdminActionMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("moderation repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, metrics: admin}, nil
}

func (s *service) Approve(ctx context.Context, input DecisionInput) error {
	return s.decide(ctx, input, "approved", func(item *Item, now time.Time) (map[string]any, outbox.DomainEvent) {
		updates := map[string]any{
			"status":      enums.ModerationStatusApproved,
			"reviewed_by": input.ActorID,
			"reviewed_at": now,
		}
		if input.AdminNotes != nil && strings.TrimSpace(*input.AdminNotes) != "" {
			updates["admin_notes"] = strings.TrimSpace(*input.AdminNotes)
		}
		return updates, s.approvedEvent(item, input, now)
	}, func(item *Item) error {
		if !item.Status.IsReviewable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("item is already %s", item.Status))
		}
		return nil
	})
}

func (s *service) Reject(ctx context.Context, input DecisionInput) error {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	input.Reason = reason
	return s.decide(ctx, input, "rejected", func(item *Item, now time.Time) (map[string]any, outbox.DomainEvent) {
		updates := map[string]any{
			"status":           enums.ModerationStatusRejected,
			"rejection_reason": reason,
			"reviewed_by":      input.ActorID,
			"reviewed_at":      now,
		}
		if input.AdminNotes != nil && strings.TrimSpace(*input.AdminNotes) != "" {
			updates["admin_notes"] = strings.TrimSpace(*input.AdminNotes)
		}
		return updates, s.rejectedEvent(item, input, now)
	}, func(item *Item) error {
		if !item.Status.IsReviewable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("item is already %s", item.Status))
		}
		return nil
	})
}

// Reconsider sends a rejected item back to the pending queue. The previous
// decision trail is cleared so the next reviewer starts fresh.
func (s *service) Reconsider(ctx context.Context, input DecisionInput) error {
	return s.decide(ctx, input, "reconsidered", func(item *Item, now time.Time) (map[string]any, outbox.DomainEvent) {
		updates := map[string]any{
			"status":           enums.ModerationStatusPending,
			"rejection_reason": nil,
			"reviewed_by":      nil,
			"reviewed_at":      nil,
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventModerationReopened,
			AggregateType: aggregateFor(item.Kind),
			AggregateID:   item.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole},
			Data: payloads.ModerationReopenedEvent{
				Kind:       item.Kind,
				ItemID:     item.ID,
				ReopenedBy: input.ActorID,
				ReopenedAt: now,
			},
		}
		return updates, event
	}, func(item *Item) error {
		if item.Status != enums.ModerationStatusRejected {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only rejected items can be reconsidered")
		}
		return nil
	})
}

func (s *service) ListPending(ctx context.Context, kind enums.ModerationKind, params pagination.Params) (*QueueList, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid moderation kind")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.ListPending(ctx, kind, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending items")
	}
	return list, nil
}

func (s *service) decide(
	ctx context.Context,
	input DecisionInput,
	decision string,
	build func(item *Item, now time.Time) (map[string]any, outbox.DomainEvent),
	check func(item *Item) error,
) error {
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid moderation kind")
	}
	if input.ItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindByID(ctx, input.Kind, input.ItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}
		if err := check(item); err != nil {
			return err
		}
		version := item.Version
		if input.ExpectedVersion != nil {
			version = *input.ExpectedVersion
		}

		now := time.Now()
		updates, event := build(item, now)
		affected, err := repo.ApplyDecision(ctx, input.Kind, item.ID, version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply decision")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "item was modified by another reviewer")
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncModerationDecision(input.Kind.String(), decision)
	}
	return nil
}

func (s *service) approvedEvent(item *Item, input DecisionInput, now time.Time) outbox.DomainEvent {
	event := outbox.DomainEvent{
		AggregateType: aggregateFor(item.Kind),
		AggregateID:   item.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole},
	}
	if item.Kind == enums.ModerationKindListing {
		event.EventType = enums.EventListingApproved
		event.Data = payloads.ListingApprovedEvent{
			ListingID:  item.ID,
			VendorID:   item.OwnerID,
			ReviewedBy: input.ActorID,
			ReviewedAt: now,
		}
		return event
	}
	event.EventType = enums.EventApplicationApproved
	event.Data = payloads.ApplicationApprovedEvent{
		ApplicationID: item.ID,
		ApplicantID:   item.OwnerID,
		ReviewedBy:    input.ActorID,
		ReviewedAt:    now,
	}
	return event
}

func (s *service) rejectedEvent(item *Item, input DecisionInput, now time.Time) outbox.DomainEvent {
	event := outbox.DomainEvent{
		AggregateType: aggregateFor(item.Kind),
		AggregateID:   item.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole},
	}
	if item.Kind == enums.ModerationKindListing {
		event.EventType = enums.EventListingRejected
		event.Data = payloads.ListingRejectedEvent{
			ListingID:  item.ID,
			VendorID:   item.OwnerID,
			Reason:     input.Reason,
			ReviewedBy: input.ActorID,
			ReviewedAt: now,
		}
		return event
	}
	event.EventType = enums.EventApplicationRejected
	event.Data = payloads.ApplicationRejectedEvent{
		ApplicationID: item.ID,
		ApplicantID:   item.OwnerID,
		Reason:        input.Reason,
		ReviewedBy:    input.ActorID,
		ReviewedAt:    now,
	}
	return event
}

func aggregateFor(kind enums.ModerationKind) enums.OutboxAggregateType {
	if kind == enums.ModerationKindVendorApplication {
		return enums.AggregateVendorApplication
	}
	return enums.AggregateListing
}
