package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/apparel-commerce/internal/domain/inventory"
	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/domain/user"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "sqlmock")), mock
}

// ============================================
// WithTx
// ============================================

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM cart_items`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx TxInterface) error {
		return tx.ClearCart(context.Background(), "user-1")
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("business rule violated")
	err := s.WithTx(context.Background(), func(tx TxInterface) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// Error Mapping
// ============================================

func TestCreatePayment_UniqueViolationMapsToDuplicatePayment(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO razorpay_payments`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "razorpay_payments_razorpay_payment_id_key"})
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx TxInterface) error {
		return tx.CreatePayment(context.Background(), &order.Payment{
			ID:                "p-1",
			OrderID:           "o-1",
			RazorpayOrderID:   "order_gw",
			RazorpayPaymentID: "pay_1",
			Amount:            decimal.NewFromInt(100),
			Status:            order.PaymentCaptured,
			PaymentMethod:     "razorpay",
			CreatedAt:         time.Now(),
		})
	})

	assert.ErrorIs(t, err, ErrDuplicatePayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAddress_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, user_id, line1`).
		WithArgs("addr-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetAddress(context.Background(), "addr-1", "user-1")
	assert.ErrorIs(t, err, user.ErrAddressNotFound)
}

// ============================================
// Row Locking
// ============================================

func TestGetVariantForUpdate_UsesRowLock(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, product_id, color_id, size_id, price, sale_price, quantity\s+FROM product_variants WHERE id = \$1 FOR UPDATE`).
		WithArgs("var-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "product_id", "color_id", "size_id", "price", "sale_price", "quantity"}).
			AddRow("var-1", "prod-1", "c-1", "s-1", "100.00", nil, 7))
	mock.ExpectCommit()

	var got *inventory.Variant
	err := s.WithTx(context.Background(), func(tx TxInterface) error {
		v, err := tx.GetVariantForUpdate(context.Background(), "var-1")
		got = v
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVariantForUpdate_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM product_variants`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx TxInterface) error {
		_, err := tx.GetVariantForUpdate(context.Background(), "missing")
		return err
	})

	assert.ErrorIs(t, err, inventory.ErrVariantNotFound)
}

func TestSetVariantQuantity_MissingRowFails(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE product_variants SET quantity`).
		WithArgs(5, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx TxInterface) error {
		return tx.SetVariantQuantity(context.Background(), "missing", 5)
	})

	assert.ErrorIs(t, err, inventory.ErrVariantNotFound)
}

// ============================================
// Coupon Consumption Guard
// ============================================

func TestConsumeUserCoupon_AlreadyConsumedFails(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE user_coupons SET is_active = FALSE WHERE id = \$1 AND is_active = TRUE`).
		WithArgs("uc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(tx TxInterface) error {
		return tx.ConsumeUserCoupon(context.Background(), "uc-1")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")
}

// ============================================
// Reads
// ============================================

func TestGetPaymentByGatewayPaymentID_NilWhenAbsent(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM razorpay_payments WHERE razorpay_payment_id`).
		WithArgs("pay_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := s.GetPaymentByGatewayPaymentID(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetOrderStatusByGatewayOrderID(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT o.status FROM orders o`).
		WithArgs("order_gw").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))

	status, err := s.GetOrderStatusByGatewayOrderID(context.Background(), "order_gw")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, status)
}

func TestGetCartLines(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM cart_items ci`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "variant_id", "product_id", "quantity", "unit_price", "stock"}).
			AddRow("cl-1", "user-1", "var-a", "prod-a", 2, "100.00", 10).
			AddRow("cl-2", "user-1", "var-b", "prod-b", 1, "50.00", 5))

	lines, err := s.GetCartLines(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 10, lines[0].Stock)
}
