package command

import "github.com/shopspring/decimal"

// CreateCheckoutIntent asks the gateway for a payment intent before the user
// pays.
type CreateCheckoutIntent struct {
	UserID         string          `json:"-"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	CouponCode     string          `json:"couponCode"`
	CouponID       string          `json:"couponId"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// VerifyPayment converts a completed gateway payment plus the user's cart
// into a durable order.
type VerifyPayment struct {
	UserID            string          `json:"-"`
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	RazorpaySignature string          `json:"razorpay_signature"`
	ShippingAddressID string          `json:"shippingAddressId"`
	CouponCode        string          `json:"couponCode"`
	CouponID          string          `json:"couponId"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	Notes             string          `json:"notes"`
}

type CancelOrder struct {
	OrderID string `json:"-"`
	UserID  string `json:"-"`
	Actor   string `json:"-"`
	Reason  string `json:"reason"`
}

// UpdateOrderStatus drives the lifecycle state machine (admin-only).
type UpdateOrderStatus struct {
	OrderID string `json:"-"`
	Actor   string `json:"-"`
	Status  string `json:"status"`
}
