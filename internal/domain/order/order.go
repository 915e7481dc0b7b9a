package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentCaptured PaymentStatus = "CAPTURED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status transition")
	ErrOrderDelivered    = errors.New("order is already delivered")
	ErrOrderCancelled    = errors.New("order is already cancelled")
	ErrOrderRefunded     = errors.New("order is already refunded")
	ErrNotCancellable    = errors.New("order cannot be cancelled in its current status")
	ErrCancelReasonEmpty = errors.New("cancellation reason is required")
	ErrUnknownStatus     = errors.New("unknown order status")
)

// validTransitions defines the allowed state transitions.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusPaid, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusPaid:       {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:    {StatusDelivered, StatusRefunded},
	StatusDelivered:  {}, // terminal
	StatusCancelled:  {}, // terminal
	StatusRefunded:   {}, // terminal
}

// ParseStatus validates a status string against the closed enum.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRefunded
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing || s == StatusPaid
}

// CanTransitionTo checks if an order in status s may move to target.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionError returns the specific error for an illegal transition.
func TransitionError(from, to Status) error {
	switch {
	case from == StatusCancelled:
		return ErrOrderCancelled
	case from == StatusDelivered:
		return ErrOrderDelivered
	case from == StatusRefunded:
		return ErrOrderRefunded
	case to == StatusCancelled:
		return ErrNotCancellable
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, from, to)
	}
}

type Order struct {
	ID                string          `db:"id" json:"id"`
	OrderNumber       string          `db:"order_number" json:"order_number"`
	UserID            string          `db:"user_id" json:"user_id"`
	SubTotal          decimal.Decimal `db:"sub_total" json:"sub_total"`
	Tax               decimal.Decimal `db:"tax" json:"tax"`
	ShippingCost      decimal.Decimal `db:"shipping_cost" json:"shipping_cost"`
	Discount          decimal.Decimal `db:"discount" json:"discount"`
	Total             decimal.Decimal `db:"total" json:"total"`
	Status            Status          `db:"status" json:"status"`
	CouponCode        *string         `db:"coupon_code" json:"coupon_code,omitempty"`
	CouponID          *string         `db:"coupon_id" json:"coupon_id,omitempty"`
	ShippingAddressID string          `db:"shipping_address_id" json:"shipping_address_id"`
	CancelReason      *string         `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledAt       *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy       *string         `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Item is an immutable snapshot of a purchased line. Price and quantity are
// fixed at purchase time and never follow later catalog changes.
type Item struct {
	ID        string          `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"order_id"`
	ProductID string          `db:"product_id" json:"product_id"`
	VariantID string          `db:"variant_id" json:"variant_id"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// Payment links an order to its gateway payment. RazorpayPaymentID carries a
// unique constraint: it is the idempotency key against callback replays.
type Payment struct {
	ID                string          `db:"id" json:"id"`
	OrderID           string          `db:"order_id" json:"order_id"`
	RazorpayOrderID   string          `db:"razorpay_order_id" json:"razorpay_order_id"`
	RazorpayPaymentID string          `db:"razorpay_payment_id" json:"razorpay_payment_id"`
	RazorpaySignature string          `db:"razorpay_signature" json:"-"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Status            PaymentStatus   `db:"status" json:"status"`
	PaymentMethod     string          `db:"payment_method" json:"payment_method"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// NewOrderNumber generates a human-readable unique order number.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
