package handler

import (
	"net/http"
	"time"

	"github.com/feastly/cloudkitchen/internal/domain/order"
)

type checkoutRequest struct {
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	AreaID       string `json:"area_id"`
	CouponCode   string `json:"coupon_code"`
}

type orderItemOptionResponse struct {
	Name       string  `json:"name"`
	PriceDelta float64 `json:"price_delta"`
}

type orderItemResponse struct {
	ItemID    string                    `json:"item_id"`
	Name      string                    `json:"name"`
	Quantity  int                       `json:"quantity"`
	BasePrice float64                   `json:"base_price"`
	LineTotal float64                   `json:"line_total"`
	Options   []orderItemOptionResponse `json:"options,omitempty"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	Status         string              `json:"status"`
	Subtotal       float64             `json:"subtotal"`
	DeliveryFee    float64             `json:"delivery_fee"`
	DiscountType   string              `json:"discount_type"`
	DiscountAmount float64             `json:"discount_amount"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	Total          float64             `json:"total"`
	RiderName      string              `json:"rider_name,omitempty"`
	CreatedAt      string              `json:"created_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

// Checkout submits the session's cart as an order. Prices are re-derived
// from the catalog; client-supplied totals are never accepted. An invalid
// coupon does not fail the submission, the order is placed undiscounted.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.Submit(r.Context(), sessionID(w, r), order.SubmitRequest{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Address:      req.Address,
		AreaID:       req.AreaID,
		CouponCode:   req.CouponCode,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, toOrderResponse(o, true))
}

func toOrderResponse(o *order.Order, withItems bool) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		Status:         string(o.Status),
		Subtotal:       o.Subtotal.InexactFloat64(),
		DeliveryFee:    o.DeliveryFee.InexactFloat64(),
		DiscountType:   o.DiscountType,
		DiscountAmount: o.DiscountAmount.InexactFloat64(),
		CouponCode:     o.CouponCode,
		Total:          o.Total.InexactFloat64(),
		RiderName:      o.RiderName,
		CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !withItems {
		return resp
	}

	resp.Items = make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		opts := make([]orderItemOptionResponse, len(item.Options))
		for j, opt := range item.Options {
			opts[j] = orderItemOptionResponse{Name: opt.Name, PriceDelta: opt.PriceDelta.InexactFloat64()}
		}
		resp.Items[i] = orderItemResponse{
			ItemID:    item.MenuItemID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			BasePrice: item.BasePrice.InexactFloat64(),
			LineTotal: item.LineTotal.InexactFloat64(),
			Options:   opts,
		}
	}
	return resp
}
