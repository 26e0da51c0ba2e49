package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/feastly/cloudkitchen/internal/domain/cart"
	"github.com/feastly/cloudkitchen/internal/domain/catalog"
	"github.com/feastly/cloudkitchen/internal/domain/coupon"
	"github.com/feastly/cloudkitchen/internal/domain/order"
	"github.com/feastly/cloudkitchen/internal/domain/pricing"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

// writeDomainError maps domain errors to HTTP responses. Unrecognized errors
// are logged and surfaced as a generic retry message, never with internals.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		mismatch   *pricing.PriceMismatchError
		transition *order.InvalidTransitionError
	)

	switch {
	case errors.Is(err, catalog.ErrStoreClosed):
		writeError(w, r, http.StatusServiceUnavailable, "the store is currently closed")
	case errors.Is(err, catalog.ErrItemUnavailable),
		errors.Is(err, catalog.ErrOptionNotFound):
		writeError(w, r, http.StatusUnprocessableEntity, "some items are no longer available, please review your cart")
	case errors.As(err, &mismatch):
		writeError(w, r, http.StatusConflict, "prices have changed, please clear your cart and retry")
	case errors.Is(err, catalog.ErrAreaUnavailable):
		writeError(w, r, http.StatusUnprocessableEntity, "delivery area is unavailable")
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, r, http.StatusUnprocessableEntity, cart.ErrInvalidQuantity.Error())
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, r, http.StatusBadRequest, order.ErrEmptyCart.Error())
	case errors.Is(err, order.ErrInvalidCustomerInfo):
		writeError(w, r, http.StatusBadRequest, order.ErrInvalidCustomerInfo.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, r, http.StatusNotFound, order.ErrNotFound.Error())
	case errors.As(err, &transition):
		writeError(w, r, http.StatusConflict, transition.Error())
	case coupon.IsRejection(err):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "something went wrong, please retry")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
