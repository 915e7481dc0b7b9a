package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/example/apparel-commerce/internal/domain/cart"
	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/domain/user"
)

const pqUniqueViolation = "23505"

// ConnectPostgres opens and pings a PostgreSQL connection pool.
func ConnectPostgres(connStr string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// PostgresStore implements StoreInterface on sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx runs fn inside a transaction. Any error from fn rolls everything
// back; a panic is re-raised after rollback.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx TxInterface) error) error {
	txn, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = txn.Rollback()
			panic(p)
		}
	}()

	if err := fn(&postgresTx{tx: txn}); err != nil {
		_ = txn.Rollback()
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAddress(ctx context.Context, addressID, userID string) (*user.Address, error) {
	var a user.Address
	err := s.db.GetContext(ctx, &a,
		`SELECT id, user_id, line1, line2, city, state, postal_code, country, phone
		 FROM addresses WHERE id = $1 AND user_id = $2`,
		addressID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetCartLines joins cart rows with their variant's effective price and
// current stock.
func (s *PostgresStore) GetCartLines(ctx context.Context, userID string) ([]cart.Line, error) {
	var lines []cart.Line
	err := s.db.SelectContext(ctx, &lines,
		`SELECT ci.id, ci.user_id, ci.variant_id, pv.product_id, ci.quantity,
		        COALESCE(NULLIF(pv.sale_price, 0), pv.price) AS unit_price,
		        pv.quantity AS stock
		 FROM cart_items ci
		 JOIN product_variants pv ON pv.id = ci.variant_id
		 WHERE ci.user_id = $1
		 ORDER BY ci.created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *PostgresStore) GetPaymentByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*order.Payment, error) {
	return getPayment(ctx, s.db, `razorpay_payment_id = $1`, gatewayPaymentID)
}

func (s *PostgresStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*order.Payment, error) {
	return getPayment(ctx, s.db, `order_id = $1`, orderID)
}

// GetOrderStatusByGatewayOrderID resolves the local order status for a
// gateway order, used to reject payments completed against an order the user
// already cancelled.
func (s *PostgresStore) GetOrderStatusByGatewayOrderID(ctx context.Context, gatewayOrderID string) (order.Status, error) {
	var status order.Status
	err := s.db.GetContext(ctx, &status,
		`SELECT o.status FROM orders o
		 JOIN razorpay_payments rp ON rp.order_id = o.id
		 WHERE rp.razorpay_order_id = $1`,
		gatewayOrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", order.ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

func (s *PostgresStore) GetOrderForUser(ctx context.Context, orderID, userID string) (*order.Order, error) {
	var o order.Order
	err := s.db.GetContext(ctx, &o, selectOrder+` WHERE id = $1 AND user_id = $2`, orderID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) ListOrdersForUser(ctx context.Context, userID string, limit, offset int) ([]order.Order, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID); err != nil {
		return nil, 0, err
	}

	var orders []order.Order
	err := s.db.SelectContext(ctx, &orders,
		selectOrder+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *PostgresStore) GetOrderItems(ctx context.Context, orderID string) ([]order.Item, error) {
	return getOrderItems(ctx, s.db, orderID)
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.CreatedAt)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, email, name, password_hash, role, created_at FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, email, name, password_hash, role, created_at FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const selectOrder = `SELECT id, order_number, user_id, sub_total, tax, shipping_cost, discount,
	total, status, coupon_code, coupon_id, shipping_address_id,
	cancel_reason, cancelled_at, cancelled_by, created_at, updated_at
	FROM orders`

func getPayment(ctx context.Context, q sqlx.QueryerContext, where string, arg any) (*order.Payment, error) {
	var p order.Payment
	err := sqlx.GetContext(ctx, q, &p,
		`SELECT id, order_id, razorpay_order_id, razorpay_payment_id, razorpay_signature,
		        amount, status, payment_method, created_at
		 FROM razorpay_payments WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func getOrderItems(ctx context.Context, q sqlx.QueryerContext, orderID string) ([]order.Item, error) {
	var items []order.Item
	err := sqlx.SelectContext(ctx, q, &items,
		`SELECT id, order_id, product_id, variant_id, price, quantity, subtotal
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}
