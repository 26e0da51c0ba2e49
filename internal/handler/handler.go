// Package handler exposes the storefront and admin HTTP surface.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feastly/cloudkitchen/internal/domain/cart"
	"github.com/feastly/cloudkitchen/internal/domain/catalog"
	"github.com/feastly/cloudkitchen/internal/domain/coupon"
	"github.com/feastly/cloudkitchen/internal/domain/order"
	"github.com/feastly/cloudkitchen/internal/domain/pricing"
)

// CouponAdmin is the admin-facing coupon CRUD surface.
type CouponAdmin interface {
	List(ctx context.Context) ([]coupon.Rule, error)
	Create(ctx context.Context, rule *coupon.Rule) error
	Update(ctx context.Context, rule *coupon.Rule) error
	Deactivate(ctx context.Context, id string) error
}

// Handler routes storefront and admin requests to the domain services.
type Handler struct {
	catalog     catalog.Reader
	pricer      *pricing.Engine
	coupons     coupon.Validator
	couponAdmin CouponAdmin
	carts       *cart.Service
	orders      *order.Service
	orderRepo   order.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	reader catalog.Reader,
	pricer *pricing.Engine,
	coupons coupon.Validator,
	couponAdmin CouponAdmin,
	carts *cart.Service,
	orders *order.Service,
	orderRepo order.Repository,
) *Handler {
	return &Handler{
		catalog:     reader,
		pricer:      pricer,
		coupons:     coupons,
		couponAdmin: couponAdmin,
		carts:       carts,
		orders:      orders,
		orderRepo:   orderRepo,
	}
}

// Routes mounts all API routes. Admin routes require the given auth
// middleware.
func (h *Handler) Routes(adminAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/menu", h.ListMenu)
	r.Get("/menu/{id}", h.GetMenuItem)
	r.Get("/delivery-areas", h.ListDeliveryAreas)
	r.Get("/delivery-fee", h.GetDeliveryFee)
	r.Post("/coupon/preview", h.PreviewCoupon)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Patch("/items/{key}", h.UpdateCartItem)
		r.Delete("/items/{key}", h.RemoveCartItem)
	})

	r.Post("/checkout", h.Checkout)

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuth)
		r.Get("/orders", h.AdminListOrders)
		r.Get("/orders/{id}", h.AdminGetOrder)
		r.Patch("/orders/{id}/status", h.AdminUpdateOrderStatus)
		r.Delete("/orders/{id}", h.AdminDeleteOrder)
		r.Get("/coupons", h.AdminListCoupons)
		r.Post("/coupons", h.AdminCreateCoupon)
		r.Put("/coupons/{id}", h.AdminUpdateCoupon)
		r.Delete("/coupons/{id}", h.AdminDeactivateCoupon)
	})

	return r
}
