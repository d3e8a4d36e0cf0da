package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-backend/internal/domain/coupon"
)

// CheckCoupon previews a coupon against a prospective order without
// redeeming anything. Prices come from the catalog, never from the client.
func (h *Handler) CheckCoupon(w http.ResponseWriter, r *http.Request) {
	var req checkCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	ids := make([]string, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			writeError(w, r, http.StatusUnprocessableEntity, "quantity must be greater than 0")
			return
		}
		ids[i] = it.ProductID
	}

	fetched, err := h.products.GetByIDs(ctx, ids)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	byID := make(map[string]int, len(fetched))
	for i, p := range fetched {
		byID[p.ID] = i
	}

	lineItems := make([]coupon.LineItem, len(req.Items))
	subtotal := decimal.Zero
	for i, it := range req.Items {
		idx, ok := byID[it.ProductID]
		if !ok {
			writeError(w, r, http.StatusUnprocessableEntity, "product "+it.ProductID+" not found")
			return
		}
		p := fetched[idx]
		lineItems[i] = coupon.LineItem{ProductID: p.ID, CategoryID: p.CategoryID}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	subtotal = subtotal.Round(2)

	isNew := false
	if req.CustomerID != "" {
		n, err := h.orders.CountCompletedByCustomer(ctx, req.CustomerID)
		if err != nil {
			writeInternalError(w, r, err)
			return
		}
		isNew = n == 0
	}

	check, err := h.coupons.Check(ctx, req.Code, &coupon.OrderContext{
		Subtotal:      subtotal,
		Items:         lineItems,
		CustomerID:    req.CustomerID,
		IsNewCustomer: isNew,
	})
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, "invalid coupon code")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	resp := checkCouponResponse{
		Valid:    check.Result.Valid,
		Discount: check.Discount,
		Subtotal: subtotal,
		Total:    subtotal.Sub(check.Discount),
	}
	if !check.Result.Valid {
		resp.Reason = string(check.Result.Reason)
		resp.Message = check.Result.Reason.Message()
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// --- Admin surface ---

// ListCoupons returns all live coupons.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.admin.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	resp := make([]couponResponse, len(coupons))
	for i := range coupons {
		resp[i] = toCouponResponse(&coupons[i])
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// GetCoupon returns a single coupon by ID.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.couponID(w, r)
	if !ok {
		return
	}

	c, err := h.admin.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCouponResponse(c))
}

// CreateCoupon validates and stores a new coupon. The code is normalized
// before storage, so SAVE20 and save20 are the same coupon.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := coupon.NormalizeCode(req.Code)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid coupon code")
		return
	}
	req.Code = code

	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c := req.toDomain()
	if err := h.admin.Create(r.Context(), c); err != nil {
		if errors.Is(err, coupon.ErrInvalidInput) {
			writeError(w, r, http.StatusConflict, "coupon code already exists")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toCouponResponse(c))
}

// UpdateCoupon rewrites a coupon's rules. The code itself is immutable.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.couponID(w, r)
	if !ok {
		return
	}

	existing, err := h.admin.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	var req couponPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Code = existing.Code

	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c := req.toDomain()
	c.ID = id
	if err := h.admin.Update(r.Context(), c); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	updated, err := h.admin.GetByID(r.Context(), id)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCouponResponse(updated))
}

// DeleteCoupon soft-deletes a coupon. Its usage history stays queryable.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.couponID(w, r)
	if !ok {
		return
	}

	if err := h.admin.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCouponUsage returns the redemption ledger for a coupon.
func (h *Handler) ListCouponUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.couponID(w, r)
	if !ok {
		return
	}

	if _, err := h.admin.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	records, err := h.admin.ListUsage(r.Context(), id)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	resp := make([]usageRecordResponse, len(records))
	for i, rec := range records {
		resp[i] = usageRecordResponse{
			ID:              rec.ID,
			CouponID:        rec.CouponID,
			CustomerID:      rec.CustomerID,
			OrderID:         rec.OrderID,
			UsedAt:          rec.UsedAt,
			DiscountApplied: rec.DiscountApplied,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) couponID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid coupon id")
		return uuid.Nil, false
	}
	return id, true
}
