package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/velara-labs/cryptomart-backend/api/responses"
	internalledger "github.com/velara-labs/cryptomart-backend/internal/ledger"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	pkgerrors "github.com/velara-labs/cryptomart-backend/pkg/errors"
	"github.com/velara-labs/cryptomart-backend/pkg/logger"
)

// AdminLedger lists escrow ledger events for audit, filterable by order, type and currency.
func AdminLedger(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseLedgerFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parseLedgerFilters(r *http.Request) (internalledger.Filters, error) {
	var filters internalledger.Filters

	if raw := strings.TrimSpace(r.URL.Query().Get("order_id")); raw != "" {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id filter")
		}
		filters.OrderID = &orderID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		eventType, err := enums.ParseLedgerEventType(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		filters.Type = &eventType
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("currency")); raw != "" {
		currency, err := enums.ParseCurrency(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency filter")
		}
		filters.Currency = &currency
	}
	return filters, nil
}
