package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission is a partner payout obligation. Rows are created only when an
// order reaches DELIVERED: a paid-but-never-delivered order produces none,
// even though its coupon was already consumed.
type Commission struct {
	ID         string          `db:"id" json:"id"`
	OrderID    string          `db:"order_id" json:"order_id"`
	PartnerID  string          `db:"partner_id" json:"partner_id"`
	CouponID   string          `db:"coupon_id" json:"coupon_id"`
	Percentage decimal.Decimal `db:"percentage" json:"percentage"`
	Base       decimal.Decimal `db:"base" json:"base"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Compute derives the commission amount from the net order value (subtotal
// minus discount, i.e. what the customer actually paid) and the partner's
// percentage, rounded to cents.
func Compute(netTotal, percentage decimal.Decimal) decimal.Decimal {
	return netTotal.Mul(percentage).Div(decimal.NewFromInt(100)).Round(2)
}
