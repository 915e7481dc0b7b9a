package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/apparel-commerce/internal/domain/commission"
	"github.com/example/apparel-commerce/internal/domain/coupon"
	"github.com/example/apparel-commerce/internal/domain/inventory"
	"github.com/example/apparel-commerce/internal/domain/order"
)

// postgresTx implements TxInterface over a live transaction.
type postgresTx struct {
	tx *sqlx.Tx
}

func (t *postgresTx) CreateOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, user_id, sub_total, tax, shipping_cost, discount,
		                     total, status, coupon_code, coupon_id, shipping_address_id,
		                     created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.OrderNumber, o.UserID, o.SubTotal, o.Tax, o.ShippingCost, o.Discount,
		o.Total, o.Status, o.CouponCode, o.CouponID, o.ShippingAddressID,
		o.CreatedAt, o.UpdatedAt)
	return err
}

func (t *postgresTx) CreateOrderItem(ctx context.Context, it *order.Item) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO order_items (id, order_id, product_id, variant_id, price, quantity, subtotal)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		it.ID, it.OrderID, it.ProductID, it.VariantID, it.Price, it.Quantity, it.Subtotal)
	return err
}

func (t *postgresTx) CreatePayment(ctx context.Context, p *order.Payment) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO razorpay_payments (id, order_id, razorpay_order_id, razorpay_payment_id,
		                                razorpay_signature, amount, status, payment_method, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.OrderID, p.RazorpayOrderID, p.RazorpayPaymentID,
		p.RazorpaySignature, p.Amount, p.Status, p.PaymentMethod, p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicatePayment
	}
	return err
}

func (t *postgresTx) UpdatePaymentStatus(ctx context.Context, orderID string, status order.PaymentStatus) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE razorpay_payments SET status = $1 WHERE order_id = $2`, status, orderID)
	return err
}

// GetVariantForUpdate reads a variant under FOR UPDATE so the quantity seen
// here cannot be changed by a concurrent checkout or cancellation until this
// transaction commits.
func (t *postgresTx) GetVariantForUpdate(ctx context.Context, variantID string) (*inventory.Variant, error) {
	var v inventory.Variant
	err := t.tx.GetContext(ctx, &v,
		`SELECT id, product_id, color_id, size_id, price, sale_price, quantity
		 FROM product_variants WHERE id = $1 FOR UPDATE`,
		variantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (t *postgresTx) SetVariantQuantity(ctx context.Context, variantID string, quantity int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE product_variants SET quantity = $1 WHERE id = $2`, quantity, variantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrVariantNotFound
	}
	return nil
}

func (t *postgresTx) CreateInventoryLog(ctx context.Context, l *inventory.Log) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO inventory_logs (id, variant_id, order_id, quantity_change,
		                             previous_quantity, new_quantity, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.VariantID, l.OrderID, l.QuantityChange,
		l.PreviousQuantity, l.NewQuantity, l.Reason, l.CreatedAt)
	return err
}

// ConsumeUserCoupon flips the activation off. The WHERE clause on is_active
// makes double consumption a no-op failure rather than a silent success.
func (t *postgresTx) ConsumeUserCoupon(ctx context.Context, userCouponID string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE user_coupons SET is_active = FALSE WHERE id = $1 AND is_active = TRUE`,
		userCouponID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user coupon %s is not active", userCouponID)
	}
	return nil
}

func (t *postgresTx) IncrementCouponUsage(ctx context.Context, couponID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`, couponID)
	return err
}

func (t *postgresTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

func (t *postgresTx) GetOrderForUpdate(ctx context.Context, orderID string) (*order.Order, error) {
	var o order.Order
	err := t.tx.GetContext(ctx, &o, selectOrder+` WHERE id = $1 FOR UPDATE`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *postgresTx) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, orderID)
	return err
}

func (t *postgresTx) MarkOrderCancelled(ctx context.Context, orderID, reason, actor string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, cancel_reason = $2, cancelled_by = $3,
		        cancelled_at = $4, updated_at = NOW()
		 WHERE id = $5`,
		order.StatusCancelled, reason, actor, at, orderID)
	return err
}

func (t *postgresTx) GetOrderItems(ctx context.Context, orderID string) ([]order.Item, error) {
	return getOrderItems(ctx, t.tx, orderID)
}

func (t *postgresTx) GetPaymentByOrderID(ctx context.Context, orderID string) (*order.Payment, error) {
	return getPayment(ctx, t.tx, `order_id = $1`, orderID)
}

func (t *postgresTx) GetCouponPartners(ctx context.Context, couponID string) ([]coupon.Partner, error) {
	var partners []coupon.Partner
	err := t.tx.SelectContext(ctx, &partners,
		`SELECT id, coupon_id, partner_id, commission_percentage
		 FROM coupon_partners WHERE coupon_id = $1`,
		couponID)
	if err != nil {
		return nil, err
	}
	return partners, nil
}

// CreatePartnerCommission inserts an accrual row; ON CONFLICT keeps the
// operation idempotent per (order, partner).
func (t *postgresTx) CreatePartnerCommission(ctx context.Context, c *commission.Commission) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO partner_commissions (id, order_id, partner_id, coupon_id,
		                                  percentage, base, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (order_id, partner_id) DO NOTHING`,
		c.ID, c.OrderID, c.PartnerID, c.CouponID,
		c.Percentage, c.Base, c.Amount, c.CreatedAt)
	return err
}
