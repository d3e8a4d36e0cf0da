// Package handler exposes the storefront over HTTP: the public catalog,
// coupon preview, and checkout endpoints plus the API-key protected admin
// surface for coupon management.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"storefront-backend/internal/domain/coupon"
	"storefront-backend/internal/domain/order"
	"storefront-backend/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler wires HTTP routes to the domain services.
type Handler struct {
	products     product.Repository
	orders       order.Repository
	orderService *order.Service
	coupons      *coupon.Service
	admin        coupon.AdminRepository
	security     *Security
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	orders order.Repository,
	orderService *order.Service,
	coupons *coupon.Service,
	admin coupon.AdminRepository,
	security *Security,
) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		orderService: orderService,
		coupons:      coupons,
		admin:        admin,
		security:     security,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Router builds the service's route tree.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Post("/coupons/check", h.CheckCoupon)
		r.Post("/orders", h.PlaceOrder)

		r.Route("/admin/coupons", func(r chi.Router) {
			r.Use(h.security.RequireAPIKey)

			r.Get("/", h.ListCoupons)
			r.Post("/", h.CreateCoupon)
			r.Get("/{id}", h.GetCoupon)
			r.Put("/{id}", h.UpdateCoupon)
			r.Delete("/{id}", h.DeleteCoupon)
			r.Get("/{id}/usage", h.ListCouponUsage)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Code: status, Message: message})
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
