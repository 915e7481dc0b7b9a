package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/apparel-commerce/internal/domain/cart"
	"github.com/example/apparel-commerce/internal/domain/commission"
	"github.com/example/apparel-commerce/internal/domain/coupon"
	"github.com/example/apparel-commerce/internal/domain/inventory"
	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/domain/user"
)

// ErrDuplicatePayment is returned when the unique constraint on the gateway
// payment id fires. The constraint, not the application pre-check, is the
// correctness mechanism against concurrent replays.
var ErrDuplicatePayment = errors.New("payment already processed")

// StoreInterface is the persistence surface consumed by the command and
// query handlers. All multi-step writes go through WithTx.
type StoreInterface interface {
	// WithTx runs fn inside a database transaction, committing when fn
	// returns nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx TxInterface) error) error

	GetAddress(ctx context.Context, addressID, userID string) (*user.Address, error)
	GetCartLines(ctx context.Context, userID string) ([]cart.Line, error)
	GetPaymentByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*order.Payment, error)
	GetOrderStatusByGatewayOrderID(ctx context.Context, gatewayOrderID string) (order.Status, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*order.Payment, error)

	GetCouponByID(ctx context.Context, couponID string) (*coupon.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	GetActiveUserCoupon(ctx context.Context, userID string) (*coupon.UserCoupon, error)

	GetOrderForUser(ctx context.Context, orderID, userID string) (*order.Order, error)
	ListOrdersForUser(ctx context.Context, userID string, limit, offset int) ([]order.Order, int, error)
	GetOrderItems(ctx context.Context, orderID string) ([]order.Item, error)

	CreateUser(ctx context.Context, u *user.User) error
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}

// TxInterface is the transaction-scoped write surface. Variant and order
// reads here take row locks so quantities and statuses seen inside the
// transaction are consistent with committed state.
type TxInterface interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	CreateOrderItem(ctx context.Context, it *order.Item) error
	CreatePayment(ctx context.Context, p *order.Payment) error
	UpdatePaymentStatus(ctx context.Context, orderID string, status order.PaymentStatus) error

	GetVariantForUpdate(ctx context.Context, variantID string) (*inventory.Variant, error)
	SetVariantQuantity(ctx context.Context, variantID string, quantity int) error
	CreateInventoryLog(ctx context.Context, l *inventory.Log) error

	ConsumeUserCoupon(ctx context.Context, userCouponID string) error
	IncrementCouponUsage(ctx context.Context, couponID string) error
	ClearCart(ctx context.Context, userID string) error

	GetOrderForUpdate(ctx context.Context, orderID string) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error
	MarkOrderCancelled(ctx context.Context, orderID, reason, actor string, at time.Time) error
	GetOrderItems(ctx context.Context, orderID string) ([]order.Item, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*order.Payment, error)

	GetCouponPartners(ctx context.Context, couponID string) ([]coupon.Partner, error)
	CreatePartnerCommission(ctx context.Context, c *commission.Commission) error
}
