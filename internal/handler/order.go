package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"storefront-backend/internal/domain/coupon"
	"storefront-backend/internal/domain/order"
)

// PlaceOrder decodes the checkout request, delegates to the order service,
// and maps domain errors to HTTP responses.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]order.OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.orderService.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		CustomerID: req.CustomerID,
		Items:      items,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, h.toOrderResponse(result.Order, result.Products))
}

func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyItems) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, coupon.ErrInvalidInput) {
		writeError(w, r, http.StatusBadRequest, "invalid coupon code")
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, r, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		writeError(w, r, http.StatusUnprocessableEntity, pnfErr.Error())
		return
	}

	var ineligible *order.CouponIneligibleError
	if errors.As(err, &ineligible) {
		writeJSON(w, r, http.StatusUnprocessableEntity, struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Reason  string `json:"reason"`
		}{
			Code:    http.StatusUnprocessableEntity,
			Message: ineligible.Reason.Message(),
			Reason:  string(ineligible.Reason),
		})
		return
	}

	writeInternalError(w, r, err)
}
