package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feastly/cloudkitchen/internal/domain/coupon"
	"github.com/feastly/cloudkitchen/internal/domain/order"
)

// AdminListOrders returns order headers, newest first. The live dashboard
// polls this endpoint; ?status= filters by lifecycle state.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	status := order.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, r, http.StatusBadRequest, "unknown status filter")
		return
	}

	orders, err := h.orderRepo.List(r.Context(), order.ListFilter{Status: status})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i], false)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// AdminGetOrder returns one order with items and option snapshots.
func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o, true))
}

type updateStatusRequest struct {
	Status    string `json:"status"`
	RiderName string `json:"rider_name"`
}

// AdminUpdateOrderStatus applies a status transition. Transitions outside
// the table (including un-cancelling) are rejected.
func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), order.Status(req.Status), req.RiderName)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o, false))
}

// AdminDeleteOrder removes an order and its children.
func (h *Handler) AdminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type couponRequest struct {
	Code           string     `json:"code"`
	DiscountType   string     `json:"discount_type"`
	Value          float64    `json:"value"`
	MinOrderAmount float64    `json:"min_order_amount"`
	StartsAt       *time.Time `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
	MaxUses        int        `json:"max_uses"`
	Active         bool       `json:"active"`
}

type couponResponse struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	DiscountType   string     `json:"discount_type"`
	Value          float64    `json:"value"`
	MinOrderAmount float64    `json:"min_order_amount"`
	StartsAt       *time.Time `json:"starts_at,omitempty"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	MaxUses        int        `json:"max_uses"`
	CurrentUses    int        `json:"current_uses"`
	Active         bool       `json:"active"`
}

// AdminListCoupons returns all coupons.
func (h *Handler) AdminListCoupons(w http.ResponseWriter, r *http.Request) {
	rules, err := h.couponAdmin.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := make([]couponResponse, len(rules))
	for i := range rules {
		resp[i] = toCouponResponse(&rules[i])
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// AdminCreateCoupon creates a coupon rule.
func (h *Handler) AdminCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rule, ok := ruleFromRequest(w, r, &req)
	if !ok {
		return
	}
	rule.ID = uuid.New().String()

	if err := h.couponAdmin.Create(r.Context(), rule); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toCouponResponse(rule))
}

// AdminUpdateCoupon rewrites a coupon's rule fields; code and usage counter
// are immutable.
func (h *Handler) AdminUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rule, ok := ruleFromRequest(w, r, &req)
	if !ok {
		return
	}
	rule.ID = chi.URLParam(r, "id")

	if err := h.couponAdmin.Update(r.Context(), rule); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCouponResponse(rule))
}

// AdminDeactivateCoupon switches a coupon off. Orders referencing it keep
// their snapshot.
func (h *Handler) AdminDeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.couponAdmin.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ruleFromRequest(w http.ResponseWriter, r *http.Request, req *couponRequest) (*coupon.Rule, bool) {
	if req.Code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return nil, false
	}

	dt := coupon.DiscountType(req.DiscountType)
	if dt != coupon.DiscountPercentage && dt != coupon.DiscountFixed {
		writeError(w, r, http.StatusBadRequest, "discount_type must be percentage or fixed")
		return nil, false
	}
	if req.Value < 0 || req.MinOrderAmount < 0 || req.MaxUses < 0 {
		writeError(w, r, http.StatusBadRequest, "value, min_order_amount, and max_uses must not be negative")
		return nil, false
	}

	return &coupon.Rule{
		Code:           req.Code,
		Type:           dt,
		Value:          decimal.NewFromFloat(req.Value),
		MinOrderAmount: decimal.NewFromFloat(req.MinOrderAmount),
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		MaxUses:        req.MaxUses,
		Active:         req.Active,
	}, true
}

func toCouponResponse(rule *coupon.Rule) couponResponse {
	return couponResponse{
		ID:             rule.ID,
		Code:           rule.Code,
		DiscountType:   string(rule.Type),
		Value:          rule.Value.InexactFloat64(),
		MinOrderAmount: rule.MinOrderAmount.InexactFloat64(),
		StartsAt:       rule.StartsAt,
		EndsAt:         rule.EndsAt,
		MaxUses:        rule.MaxUses,
		CurrentUses:    rule.Uses,
		Active:         rule.Active,
	}
}
