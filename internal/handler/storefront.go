package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/feastly/cloudkitchen/internal/domain/catalog"
	"github.com/feastly/cloudkitchen/internal/domain/coupon"
	"github.com/feastly/cloudkitchen/internal/domain/pricing"
)

type menuItemResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Category  string  `json:"category"`
	Available bool    `json:"available"`
}

type optionResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	PriceDelta float64 `json:"price_delta"`
}

type optionGroupResponse struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Kind    string           `json:"kind"`
	Options []optionResponse `json:"options"`
}

type menuItemDetailResponse struct {
	menuItemResponse
	OptionGroups []optionGroupResponse `json:"option_groups"`
}

// ListMenu returns the full menu ordered by category.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, item := range items {
		resp[i] = toMenuItemResponse(item)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// GetMenuItem returns one menu item with its option groups.
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrItemUnavailable) {
			writeError(w, r, http.StatusNotFound, "menu item not found")
			return
		}
		writeDomainError(w, r, err)
		return
	}

	groups, err := h.catalog.ListItemOptionGroups(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := menuItemDetailResponse{
		menuItemResponse: toMenuItemResponse(*item),
		OptionGroups:     make([]optionGroupResponse, len(groups)),
	}
	for i, g := range groups {
		gr := optionGroupResponse{
			ID:      g.ID,
			Name:    g.Name,
			Kind:    string(g.Kind),
			Options: make([]optionResponse, len(g.Options)),
		}
		for j, o := range g.Options {
			gr.Options[j] = optionResponse{ID: o.ID, Name: o.Name, PriceDelta: o.PriceDelta.InexactFloat64()}
		}
		resp.OptionGroups[i] = gr
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type deliveryAreaResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	BaseCharge float64 `json:"base_charge"`
}

// ListDeliveryAreas returns all active delivery areas.
func (h *Handler) ListDeliveryAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.catalog.ListDeliveryAreas(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := make([]deliveryAreaResponse, len(areas))
	for i, a := range areas {
		resp[i] = deliveryAreaResponse{ID: a.ID, Name: a.Name, BaseCharge: a.BaseCharge.InexactFloat64()}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type deliveryFeeResponse struct {
	AreaID         string  `json:"area_id"`
	Fee            float64 `json:"fee"`
	NightSurcharge bool    `json:"night_surcharge"`
}

// GetDeliveryFee returns the current delivery fee for an area, including
// the night surcharge when its window is active. This is the interactive
// pre-submission fee check; checkout recomputes the fee authoritatively.
func (h *Handler) GetDeliveryFee(w http.ResponseWriter, r *http.Request) {
	areaID := r.URL.Query().Get("area_id")
	if areaID == "" {
		writeError(w, r, http.StatusBadRequest, "area_id is required")
		return
	}

	area, err := h.catalog.GetDeliveryArea(r.Context(), areaID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !area.Active {
		writeDomainError(w, r, catalog.ErrAreaUnavailable)
		return
	}

	settings, err := h.catalog.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	fee, surcharged := pricing.DeliveryFee(area, settings.NightSurcharge, time.Now())
	writeJSON(w, r, http.StatusOK, deliveryFeeResponse{
		AreaID:         area.ID,
		Fee:            fee.InexactFloat64(),
		NightSurcharge: surcharged,
	})
}

type couponPreviewRequest struct {
	Code string `json:"code"`
}

type couponPreviewResponse struct {
	Code         string  `json:"code"`
	DiscountType string  `json:"discount_type"`
	Discount     float64 `json:"discount"`
	Subtotal     float64 `json:"subtotal"`
}

// PreviewCoupon validates a coupon against the session cart's subtotal
// without consuming a use. The authoritative re-check happens inside the
// submission transaction.
func (h *Handler) PreviewCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	c, err := h.carts.Get(r.Context(), sessionID(w, r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	subtotal := c.Subtotal()

	discount, err := h.coupons.Validate(r.Context(), req.Code, subtotal, time.Now())
	if err != nil {
		if coupon.IsRejection(err) {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, couponPreviewResponse{
		Code:         discount.Rule.Code,
		DiscountType: string(discount.Rule.Type),
		Discount:     discount.Amount.InexactFloat64(),
		Subtotal:     subtotal.InexactFloat64(),
	})
}

func toMenuItemResponse(item catalog.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:        item.ID,
		Name:      item.Name,
		Price:     item.Price.InexactFloat64(),
		Category:  item.Category,
		Available: item.Available,
	}
}
