//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestPlaceOrder_EmptyItems(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidProduct(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: "999", Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_SingleItem(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: "1", Quantity: 1}}, // Waffle $6.50
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a UUID", order.ID)
	}
	assertMoney(t, "subtotal", order.Subtotal, 6.5)
	assertMoney(t, "discount", order.Discount, 0)
	assertMoney(t, "total", order.Total, 6.5)
	if len(order.Products) != 1 {
		t.Errorf("products: got %d, want 1", len(order.Products))
	}
}

func TestPlaceOrder_MultipleItems(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{
			{ProductID: "1", Quantity: 2}, // 2x Waffle $6.50 = $13.00
			{ProductID: "2", Quantity: 1}, // 1x Creme Brulee $7.00
		},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	assertMoney(t, "total", order.Total, 20)
}

func TestPlaceOrder_PercentageCoupon(t *testing.T) {
	req := orderRequest{
		CustomerID: "order-save20-once",
		CouponCode: "save20", // normalized to SAVE20
		Items:      []orderItemRequest{{ProductID: "3", Quantity: 1}}, // Macaron $8.00
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.CouponCode != "SAVE20" {
		t.Errorf("coupon_code: got %q, want %q", order.CouponCode, "SAVE20")
	}
	// 8.00 * 20% = 1.60
	assertMoney(t, "discount", order.Discount, 1.6)
	assertMoney(t, "total", order.Total, 6.4)
}

func TestPlaceOrder_PerCustomerLimit(t *testing.T) {
	req := orderRequest{
		CustomerID: "order-save20-limit",
		CouponCode: "SAVE20",
		Items:      []orderItemRequest{{ProductID: "5", Quantity: 1}},
	}

	first := doPost(t, "/api/orders", req)
	defer first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first order: expected 201, got %d", first.StatusCode)
	}

	second := doPost(t, "/api/orders", req)
	defer second.Body.Close()
	if second.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("second order: expected 422, got %d", second.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, second)
	if errResp.Reason != "PER_CUSTOMER_LIMIT_REACHED" {
		t.Errorf("reason: got %q, want PER_CUSTOMER_LIMIT_REACHED", errResp.Reason)
	}
}

func TestPlaceOrder_AnonymousCouponRepeats(t *testing.T) {
	// Orders without a customer id are not subject to the per-customer cap,
	// so every anonymous checkout keeps the discount it was quoted.
	req := orderRequest{
		CouponCode: "SAVE20",
		Items:      []orderItemRequest{{ProductID: "5", Quantity: 1}}, // Baklava $4.00
	}

	for _, attempt := range []string{"first", "second"} {
		resp := doPost(t, "/api/orders", req)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("%s order: expected 201, got %d", attempt, resp.StatusCode)
		}

		order := decodeJSON[orderResponse](t, resp)
		if order.CouponCode != "SAVE20" {
			t.Errorf("%s order: coupon_code: got %q, want %q", attempt, order.CouponCode, "SAVE20")
		}
		// 4.00 * 20% = 0.80
		assertMoney(t, "discount", order.Discount, 0.8)
		assertMoney(t, "total", order.Total, 3.2)
	}
}

func TestPlaceOrder_NewCustomerCoupon(t *testing.T) {
	req := orderRequest{
		CustomerID: "order-welcome-fresh",
		CouponCode: "WELCOME10",
		Items:      []orderItemRequest{{ProductID: "2", Quantity: 1}}, // Creme Brulee $7.00
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	// 7.00 * 10% = 0.70
	assertMoney(t, "discount", order.Discount, 0.7)
	assertMoney(t, "total", order.Total, 6.3)
}

func TestPlaceOrder_NewCustomerCoupon_ReturningCustomer(t *testing.T) {
	customer := "order-welcome-returning"

	first := doPost(t, "/api/orders", orderRequest{
		CustomerID: customer,
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}},
	})
	defer first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first order: expected 201, got %d", first.StatusCode)
	}

	second := doPost(t, "/api/orders", orderRequest{
		CustomerID: customer,
		CouponCode: "WELCOME10",
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}},
	})
	defer second.Body.Close()
	if second.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("second order: expected 422, got %d", second.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, second)
	if errResp.Reason != "NOT_NEW_CUSTOMER" {
		t.Errorf("reason: got %q, want NOT_NEW_CUSTOMER", errResp.Reason)
	}
}

func TestPlaceOrder_BelowMinimumOrder(t *testing.T) {
	req := orderRequest{
		CustomerID: "order-flat-small",
		CouponCode: "FLAT5000",
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Reason != "BELOW_MINIMUM_ORDER" {
		t.Errorf("reason: got %q, want BELOW_MINIMUM_ORDER", errResp.Reason)
	}
}

func TestPlaceOrder_MalformedCouponCode(t *testing.T) {
	req := orderRequest{
		CouponCode: "not a code!",
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_UnknownCoupon(t *testing.T) {
	req := orderRequest{
		CouponCode: "NOSUCHCODE",
		Items:      []orderItemRequest{{ProductID: "1", Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Reason != "COUPON_NOT_FOUND" {
		t.Errorf("reason: got %q, want COUPON_NOT_FOUND", errResp.Reason)
	}
}
