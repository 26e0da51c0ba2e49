package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/feastly/cloudkitchen/internal/domain/cart"
)

type cartLineResponse struct {
	Key       string           `json:"key"`
	ItemID    string           `json:"item_id"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity"`
	Options   []optionResponse `json:"options,omitempty"`
	UnitPrice float64          `json:"unit_price"`
	LineTotal float64          `json:"line_total"`
}

type cartResponse struct {
	Lines    []cartLineResponse `json:"lines"`
	Subtotal float64            `json:"subtotal"`
}

// GetCart returns the session's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), sessionID(w, r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(c))
}

type addCartItemRequest struct {
	ItemID    string   `json:"item_id"`
	Quantity  int      `json:"quantity"`
	OptionIDs []string `json:"option_ids"`
}

// AddCartItem validates the item against the catalog and merges it into the
// cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeError(w, r, http.StatusBadRequest, "item_id is required")
		return
	}

	c, err := h.carts.Add(r.Context(), sessionID(w, r), req.ItemID, req.Quantity, req.OptionIDs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(c))
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem sets a line's quantity; zero or less removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.carts.Update(r.Context(), sessionID(w, r), chi.URLParam(r, "key"), req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(c))
}

// RemoveCartItem deletes a line. Removing an unknown key succeeds.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Remove(r.Context(), sessionID(w, r), chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(c))
}

// ClearCart empties the session's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionID(w, r)
	if err := h.carts.Clear(r.Context(), sess); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cartResponse{Lines: []cartLineResponse{}})
}

func toCartResponse(c *cart.Cart) cartResponse {
	resp := cartResponse{
		Lines:    make([]cartLineResponse, len(c.Lines)),
		Subtotal: c.Subtotal().InexactFloat64(),
	}
	for i, l := range c.Lines {
		opts := make([]optionResponse, len(l.Options))
		for j, o := range l.Options {
			opts[j] = optionResponse{ID: o.ID, Name: o.Name, PriceDelta: o.PriceDelta.InexactFloat64()}
		}
		resp.Lines[i] = cartLineResponse{
			Key:       l.Key,
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Options:   opts,
			UnitPrice: l.UnitPrice.InexactFloat64(),
			LineTotal: l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).InexactFloat64(),
		}
	}
	return resp
}
