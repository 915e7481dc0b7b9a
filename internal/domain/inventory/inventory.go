package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Reason codes for stock mutations. The log is append-only: every quantity
// change on a variant is bracketed by exactly one entry.
type Reason string

const (
	ReasonSale         Reason = "sale"
	ReasonCancellation Reason = "cancellation"
)

var (
	ErrVariantNotFound = errors.New("product variant not found")
)

// ErrInsufficientStock identifies the variant that could not cover the
// requested quantity.
type ErrInsufficientStock struct {
	VariantID string
	Requested int
	Available int
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// Variant is a purchasable SKU (product x color x size) with its own price
// and stock. Quantity is mutated only by checkout (decrement) and
// cancellation (increment).
type Variant struct {
	ID        string           `db:"id" json:"id"`
	ProductID string           `db:"product_id" json:"product_id"`
	ColorID   string           `db:"color_id" json:"color_id"`
	SizeID    string           `db:"size_id" json:"size_id"`
	Price     decimal.Decimal  `db:"price" json:"price"`
	SalePrice *decimal.Decimal `db:"sale_price" json:"sale_price,omitempty"`
	Quantity  int              `db:"quantity" json:"quantity"`
}

// EffectivePrice is the sale price when one is set, else the list price.
func (v *Variant) EffectivePrice() decimal.Decimal {
	if v.SalePrice != nil && v.SalePrice.IsPositive() {
		return *v.SalePrice
	}
	return v.Price
}

// Log is one append-only audit entry. Summing QuantityChange for a variant
// reconstructs its current quantity from zero.
type Log struct {
	ID               string    `db:"id" json:"id"`
	VariantID        string    `db:"variant_id" json:"variant_id"`
	OrderID          string    `db:"order_id" json:"order_id"`
	QuantityChange   int       `db:"quantity_change" json:"quantity_change"`
	PreviousQuantity int       `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int       `db:"new_quantity" json:"new_quantity"`
	Reason           Reason    `db:"reason" json:"reason"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
