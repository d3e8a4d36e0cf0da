package handler

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront-backend/internal/domain/coupon"
	"storefront-backend/internal/domain/order"
	"storefront-backend/internal/domain/product"
)

var codeFormat = validation.Match(coupon.CodePattern).
	Error("must contain only letters, digits and hyphens")

// --- Public requests ---

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (r orderItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.Required),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
	)
}

type checkCouponRequest struct {
	Code       string             `json:"code"`
	CustomerID string             `json:"customer_id"`
	Items      []orderItemRequest `json:"items"`
}

func (r checkCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required),
		validation.Field(&r.Items, validation.Required, validation.Length(1, 0)),
	)
}

type placeOrderRequest struct {
	CustomerID string             `json:"customer_id"`
	CouponCode string             `json:"coupon_code"`
	Items      []orderItemRequest `json:"items"`
}

func (r placeOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 0)),
	)
}

// --- Admin requests ---

type couponPayload struct {
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	MinOrderAmount    decimal.Decimal  `json:"min_order_amount"`

	UsageLimit       *int `json:"usage_limit"`
	UsagePerCustomer int  `json:"usage_per_customer"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`

	ApplicableCategories []string `json:"applicable_categories"`
	ExcludeCategories    []string `json:"exclude_categories"`
	ApplicableProducts   []string `json:"applicable_products"`
	ExcludeProducts      []string `json:"exclude_products"`

	RestrictToNewCustomers bool     `json:"restrict_to_new_customers"`
	ApplicableCustomers    []string `json:"applicable_customers"`
}

func (r couponPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 64), codeFormat),
		validation.Field(&r.DiscountType,
			validation.Required,
			validation.In(string(coupon.DiscountPercentage), string(coupon.DiscountFixed)),
		),
		validation.Field(&r.DiscountValue,
			validation.Required,
			validation.By(positiveDecimal),
			validation.By(r.percentageInRange),
		),
		validation.Field(&r.MaxDiscountAmount, validation.By(positiveDecimalPtr)),
		validation.Field(&r.MinOrderAmount, validation.By(nonNegativeDecimal)),
		validation.Field(&r.UsageLimit, validation.By(positiveIntPtr)),
		validation.Field(&r.UsagePerCustomer, validation.Min(0)),
		validation.Field(&r.StartDate, validation.Required),
		validation.Field(&r.EndDate, validation.Required, validation.By(r.endAfterStart)),
	)
}

func (r couponPayload) percentageInRange(value any) error {
	if r.DiscountType != string(coupon.DiscountPercentage) {
		return nil
	}
	v := value.(decimal.Decimal)
	if v.GreaterThan(decimal.NewFromInt(100)) {
		return validation.NewError("validation_percentage_range", "percentage cannot exceed 100")
	}
	return nil
}

func (r couponPayload) endAfterStart(any) error {
	if !r.EndDate.After(r.StartDate) {
		return validation.NewError("validation_date_window", "end_date must be after start_date")
	}
	return nil
}

func positiveDecimal(value any) error {
	v := value.(decimal.Decimal)
	if !v.IsPositive() {
		return validation.NewError("validation_positive", "must be greater than 0")
	}
	return nil
}

func nonNegativeDecimal(value any) error {
	v := value.(decimal.Decimal)
	if v.IsNegative() {
		return validation.NewError("validation_non_negative", "must not be negative")
	}
	return nil
}

func positiveDecimalPtr(value any) error {
	v, _ := value.(*decimal.Decimal)
	if v == nil {
		return nil
	}
	if !v.IsPositive() {
		return validation.NewError("validation_positive", "must be greater than 0")
	}
	return nil
}

func positiveIntPtr(value any) error {
	v, _ := value.(*int)
	if v == nil {
		return nil
	}
	if *v < 1 {
		return validation.NewError("validation_positive", "must be greater than 0")
	}
	return nil
}

func (r couponPayload) toDomain() *coupon.Coupon {
	perCustomer := r.UsagePerCustomer
	if perCustomer == 0 {
		perCustomer = 1
	}
	return &coupon.Coupon{
		Code:                   r.Code,
		Description:            r.Description,
		DiscountType:           coupon.DiscountType(r.DiscountType),
		DiscountValue:          r.DiscountValue,
		MaxDiscountAmount:      r.MaxDiscountAmount,
		MinOrderAmount:         r.MinOrderAmount,
		UsageLimit:             r.UsageLimit,
		UsagePerCustomer:       perCustomer,
		StartDate:              r.StartDate,
		EndDate:                r.EndDate,
		IsActive:               r.IsActive,
		ApplicableCategories:   r.ApplicableCategories,
		ExcludeCategories:      r.ExcludeCategories,
		ApplicableProducts:     r.ApplicableProducts,
		ExcludeProducts:        r.ExcludeProducts,
		RestrictToNewCustomers: r.RestrictToNewCustomers,
		ApplicableCustomers:    r.ApplicableCustomers,
	}
}

// --- Responses ---

type imageResponse struct {
	Thumbnail string `json:"thumbnail"`
	Mobile    string `json:"mobile"`
	Tablet    string `json:"tablet"`
	Desktop   string `json:"desktop"`
}

type productResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"category_id"`
	Image      imageResponse   `json:"image"`
}

type checkCouponResponse struct {
	Valid    bool            `json:"valid"`
	Reason   string          `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
	Discount decimal.Decimal `json:"discount"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

type orderResponse struct {
	ID         string             `json:"id"`
	CustomerID string             `json:"customer_id,omitempty"`
	Items      []orderItemRequest `json:"items"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	Discount   decimal.Decimal    `json:"discount"`
	Total      decimal.Decimal    `json:"total"`
	CouponCode string             `json:"coupon_code,omitempty"`
	Products   []productResponse  `json:"products"`
}

type couponResponse struct {
	ID                string           `json:"id"`
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	MinOrderAmount    decimal.Decimal  `json:"min_order_amount"`

	UsageLimit       *int `json:"usage_limit,omitempty"`
	UsagePerCustomer int  `json:"usage_per_customer"`
	CurrentUsage     int  `json:"current_usage"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`

	ApplicableCategories []string `json:"applicable_categories,omitempty"`
	ExcludeCategories    []string `json:"exclude_categories,omitempty"`
	ApplicableProducts   []string `json:"applicable_products,omitempty"`
	ExcludeProducts      []string `json:"exclude_products,omitempty"`

	RestrictToNewCustomers bool     `json:"restrict_to_new_customers"`
	ApplicableCustomers    []string `json:"applicable_customers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type usageRecordResponse struct {
	ID              uuid.UUID       `json:"id"`
	CouponID        uuid.UUID       `json:"coupon_id"`
	CustomerID      string          `json:"customer_id"`
	OrderID         string          `json:"order_id"`
	UsedAt          time.Time       `json:"used_at"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		CategoryID: p.CategoryID,
		Image: imageResponse{
			Thumbnail: h.imageURL(p.Image.Thumbnail),
			Mobile:    h.imageURL(p.Image.Mobile),
			Tablet:    h.imageURL(p.Image.Tablet),
			Desktop:   h.imageURL(p.Image.Desktop),
		},
	}
}

func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" {
		return path
	}
	return h.imageBaseURL + path
}

func (h *Handler) toOrderResponse(o *order.Order, products []product.Product) orderResponse {
	items := make([]orderItemRequest, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = h.toProductResponse(p)
	}

	return orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Items:      items,
		Subtotal:   o.Subtotal,
		Discount:   o.Discount,
		Total:      o.Total,
		CouponCode: o.CouponCode,
		Products:   resp,
	}
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:                     c.ID.String(),
		Code:                   c.Code,
		Description:            c.Description,
		DiscountType:           string(c.DiscountType),
		DiscountValue:          c.DiscountValue,
		MaxDiscountAmount:      c.MaxDiscountAmount,
		MinOrderAmount:         c.MinOrderAmount,
		UsageLimit:             c.UsageLimit,
		UsagePerCustomer:       c.UsagePerCustomer,
		CurrentUsage:           c.CurrentUsage,
		StartDate:              c.StartDate,
		EndDate:                c.EndDate,
		IsActive:               c.IsActive,
		ApplicableCategories:   c.ApplicableCategories,
		ExcludeCategories:      c.ExcludeCategories,
		ApplicableProducts:     c.ApplicableProducts,
		ExcludeProducts:        c.ExcludeProducts,
		RestrictToNewCustomers: c.RestrictToNewCustomers,
		ApplicableCustomers:    c.ApplicableCustomers,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}
