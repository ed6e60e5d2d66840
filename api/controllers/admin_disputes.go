package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/velara-labs/cryptomart-backend/api/responses"
	"github.com/velara-labs/cryptomart-backend/api/validators"
	internaldisputes "github.com/velara-labs/cryptomart-backend/internal/disputes"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/logger"
)

type resolveDisputeRequest struct {
	Resolution string  `json:"resolution" validate:"required,oneof=buyer_wins vendor_wins partial_refund"`
	BuyerShare *string `json:"buyer_share,omitempty"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

// AdminDisputes returns the open dispute queue.
func AdminDisputes(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOpen(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminResolveDispute applies the admin decision to a disputed order.
func AdminResolveDispute(svc internaldisputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resolution, err := enums.ParseDisputeResolution(body.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resolution"))
			return
		}

		var buyerShare *decimal.Decimal
		if body.BuyerShare != nil {
			share, err := decimal.NewFromString(*body.BuyerShare)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid buyer_share"))
				return
			}
			buyerShare = &share
		}

		input := internaldisputes.ResolveInput{
			OrderID:    orderID,
			Resolution: resolution,
			BuyerShare: buyerShare,
			AdminNotes: body.AdminNotes,
			ActorID:    actor.UserID,
			ActorRole:  actor.Role,
		}
		if err := svc.Resolve(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"resolution": string(resolution)})
	}
}
