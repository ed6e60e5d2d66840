package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velara-labs/cryptomart-backend/api/responses"
	"github.com/velara-labs/cryptomart-backend/api/validators"
	internalmoderation "github.com/velara-labs/cryptomart-backend/internal/moderation"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/logger"
)

type approveRequest struct {
	AdminNotes      *string `json:"admin_notes,omitempty"`
	ExpectedVersion *int    `json:"expected_version,omitempty"`
}

type rejectRequest struct {
	Reason          string  `json:"reason" validate:"required,min=3,max=2000"`
	AdminNotes      *string `json:"admin_notes,omitempty"`
	ExpectedVersion *int    `json:"expected_version,omitempty"`
}

type reconsiderRequest struct {
	AdminNotes      *string `json:"admin_notes,omitempty"`
	ExpectedVersion *int    `json:"expected_version,omitempty"`
}

// AdminModerationQueue lists pending items of one kind awaiting review.
func AdminModerationQueue(svc internalmoderation.Service, kind enums.ModerationKind, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderation service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListPending(r.Context(), kind, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminModerationApprove approves the queued item.
func AdminModerationApprove(svc internalmoderation.Service, kind enums.ModerationKind, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body approveRequest
		input, err := decisionInput(r, kind, &body, func() (*string, *int) { return body.AdminNotes, body.ExpectedVersion })
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Approve(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(enums.ModerationStatusApproved)})
	}
}

// AdminModerationReject rejects the queued item with a reason.
func AdminModerationReject(svc internalmoderation.Service, kind enums.ModerationKind, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body rejectRequest
		input, err := decisionInput(r, kind, &body, func() (*string, *int) { return body.AdminNotes, body.ExpectedVersion })
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Reason = strings.TrimSpace(body.Reason)
		if err := svc.Reject(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(enums.ModerationStatusRejected)})
	}
}

// AdminModerationReconsider moves a rejected item back into the pending queue.
func AdminModerationReconsider(svc internalmoderation.Service, kind enums.ModerationKind, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body reconsiderRequest
		input, err := decisionInput(r, kind, &body, func() (*string, *int) { return body.AdminNotes, body.ExpectedVersion })
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Reconsider(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(enums.ModerationStatusPending)})
	}
}

// decisionInput decodes the shared pieces of a moderation decision: the item
// id from the route, the request body, and the acting admin from the session.
func decisionInput(r *http.Request, kind enums.ModerationKind, body any, extract func() (*string, *int)) (internalmoderation.DecisionInput, error) {
	itemID, err := itemIDParam(r)
	if err != nil {
		return internalmoderation.DecisionInput{}, err
	}
	actor, err := actorFromContext(r)
	if err != nil {
		return internalmoderation.DecisionInput{}, err
	}
	if err := validators.DecodeJSONBody(r, body); err != nil {
		return internalmoderation.DecisionInput{}, err
	}
	notes, version := extract()
	return internalmoderation.DecisionInput{
		Kind:            kind,
		ItemID:          itemID,
		AdminNotes:      notes,
		ExpectedVersion: version,
		ActorID:         actor.UserID,
		ActorRole:       actor.Role,
	}, nil
}

func itemIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return id, nil
}
