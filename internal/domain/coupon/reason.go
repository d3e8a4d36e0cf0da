package coupon

// ReasonCode identifies why a coupon was rejected for an order. The set is
// closed: API clients key UI copy off these values, so new codes are added
// deliberately and existing ones never change meaning.
type ReasonCode string

const (
	ReasonNotFound                = ReasonCode("COUPON_NOT_FOUND")
	ReasonInactive                = ReasonCode("COUPON_INACTIVE")
	ReasonNotYetStarted           = ReasonCode("NOT_YET_STARTED")
	ReasonExpired                 = ReasonCode("EXPIRED")
	ReasonGlobalLimitReached      = ReasonCode("GLOBAL_LIMIT_REACHED")
	ReasonBelowMinimumOrder       = ReasonCode("BELOW_MINIMUM_ORDER")
	ReasonCategoryNotEligible     = ReasonCode("CATEGORY_NOT_ELIGIBLE")
	ReasonCategoryExcluded        = ReasonCode("CATEGORY_EXCLUDED")
	ReasonProductNotEligible      = ReasonCode("PRODUCT_NOT_ELIGIBLE")
	ReasonProductExcluded         = ReasonCode("PRODUCT_EXCLUDED")
	ReasonNotNewCustomer          = ReasonCode("NOT_NEW_CUSTOMER")
	ReasonCustomerNotEligible     = ReasonCode("CUSTOMER_NOT_ELIGIBLE")
	ReasonPerCustomerLimitReached = ReasonCode("PER_CUSTOMER_LIMIT_REACHED")
)

var reasonMessages = map[ReasonCode]string{
	ReasonNotFound:                "coupon code not found",
	ReasonInactive:                "coupon is not active",
	ReasonNotYetStarted:           "coupon is not valid yet",
	ReasonExpired:                 "coupon has expired",
	ReasonGlobalLimitReached:      "coupon usage limit has been reached",
	ReasonBelowMinimumOrder:       "order does not meet the minimum amount for this coupon",
	ReasonCategoryNotEligible:     "no items in the order belong to an eligible category",
	ReasonCategoryExcluded:        "order contains items from an excluded category",
	ReasonProductNotEligible:      "no items in the order are eligible products",
	ReasonProductExcluded:         "order contains excluded products",
	ReasonNotNewCustomer:          "coupon is limited to new customers",
	ReasonCustomerNotEligible:     "coupon is not available for this customer",
	ReasonPerCustomerLimitReached: "you have already used this coupon the maximum number of times",
}

// Message returns human-readable copy for the reason. Unknown codes fall back
// to a generic message rather than leaking the raw code.
func (r ReasonCode) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "coupon is not applicable to this order"
}

// Result is the outcome of an eligibility evaluation. Reason is set only
// when Valid is false.
type Result struct {
	Valid  bool
	Reason ReasonCode
}

func accepted() Result {
	return Result{Valid: true}
}

func rejected(reason ReasonCode) Result {
	return Result{Valid: false, Reason: reason}
}
