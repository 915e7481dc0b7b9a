package coupon

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	TypePercentage  DiscountType = "PERCENTAGE"
	TypeFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Percentage discounts are capped here regardless of configuration, so a
// misconfigured coupon can never produce a near-zero-cost order.
var maxPercentage = decimal.NewFromInt(90)

var (
	ErrCouponNotFound = errors.New("coupon not found")
	ErrCouponInactive = errors.New("coupon is not active")
	ErrCouponExpired  = errors.New("coupon is outside its validity window")
	ErrCouponUsedUp   = errors.New("coupon has reached its usage limit")
)

type Coupon struct {
	ID               string          `db:"id" json:"id"`
	Code             string          `db:"code" json:"code"`
	DiscountType     DiscountType    `db:"discount_type" json:"discount_type"`
	DiscountValue    decimal.Decimal `db:"discount_value" json:"discount_value"`
	UsedCount        int             `db:"used_count" json:"used_count"`
	IsDiscountCapped bool            `db:"is_discount_capped" json:"is_discount_capped"`
	MaxUses          *int            `db:"max_uses" json:"max_uses,omitempty"`
	StartDate        time.Time       `db:"start_date" json:"start_date"`
	EndDate          time.Time       `db:"end_date" json:"end_date"`
}

// Partner is an affiliate attributed to a coupon, earning a commission
// percentage on delivered orders placed with it.
type Partner struct {
	ID                   string          `db:"id" json:"id"`
	CouponID             string          `db:"coupon_id" json:"coupon_id"`
	PartnerID            string          `db:"partner_id" json:"partner_id"`
	CommissionPercentage decimal.Decimal `db:"commission_percentage" json:"commission_percentage"`
}

// UserCoupon is a per-user activation. At most one row per user is active;
// it is consumed exactly once, at order creation.
type UserCoupon struct {
	ID       string `db:"id" json:"id"`
	UserID   string `db:"user_id" json:"user_id"`
	CouponID string `db:"coupon_id" json:"coupon_id"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// Validate checks the coupon's validity window and usage limit at the given
// instant.
func (c *Coupon) Validate(now time.Time) error {
	if now.Before(c.StartDate) || now.After(c.EndDate) {
		return ErrCouponExpired
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return ErrCouponUsedUp
	}
	return nil
}

// Discount computes the discount the coupon grants on the given subtotal.
// PERCENTAGE values are clamped to 90 when the coupon is capped or the value
// exceeds 90. FIXED_AMOUNT never exceeds the subtotal, so a total can never
// go negative.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case TypePercentage:
		pct := c.DiscountValue
		if c.IsDiscountCapped || pct.GreaterThan(maxPercentage) {
			pct = decimal.Min(pct, maxPercentage)
		}
		return subtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	case TypeFixedAmount:
		return decimal.Min(c.DiscountValue, subtotal)
	default:
		return decimal.Zero
	}
}
