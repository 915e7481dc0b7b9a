// Package mocks provides an in-memory StoreInterface double for handler
// tests. WithTx snapshots state before running the closure and restores it
// on failure, mimicking transactional rollback.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/apparel-commerce/internal/domain/cart"
	"github.com/example/apparel-commerce/internal/domain/commission"
	"github.com/example/apparel-commerce/internal/domain/coupon"
	"github.com/example/apparel-commerce/internal/domain/inventory"
	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/domain/user"
	"github.com/example/apparel-commerce/internal/infrastructure/store"
)

type MockStore struct {
	mu sync.Mutex

	Addresses   map[string]user.Address
	Cart        map[string][]cart.Line
	Variants    map[string]inventory.Variant
	Orders      map[string]order.Order
	OrderItems  map[string][]order.Item
	Payments    []order.Payment
	Coupons     map[string]coupon.Coupon
	UserCoupons map[string]coupon.UserCoupon
	Partners    map[string][]coupon.Partner
	Commissions []commission.Commission
	Logs        []inventory.Log
	Users       map[string]user.User

	// FailOn makes the named TxInterface method return an error, to exercise
	// rollback paths.
	FailOn string
	// Calls records every tx method invoked, in order.
	Calls []string
}

func NewMockStore() *MockStore {
	return &MockStore{
		Addresses:   make(map[string]user.Address),
		Cart:        make(map[string][]cart.Line),
		Variants:    make(map[string]inventory.Variant),
		Orders:      make(map[string]order.Order),
		OrderItems:  make(map[string][]order.Item),
		Coupons:     make(map[string]coupon.Coupon),
		UserCoupons: make(map[string]coupon.UserCoupon),
		Partners:    make(map[string][]coupon.Partner),
		Users:       make(map[string]user.User),
	}
}

var _ store.StoreInterface = (*MockStore)(nil)

// snapshot deep-copies the mutable state so a failed "transaction" can be
// rolled back.
func (m *MockStore) snapshot() *MockStore {
	s := NewMockStore()
	for k, v := range m.Addresses {
		s.Addresses[k] = v
	}
	for k, v := range m.Cart {
		s.Cart[k] = append([]cart.Line(nil), v...)
	}
	for k, v := range m.Variants {
		s.Variants[k] = v
	}
	for k, v := range m.Orders {
		s.Orders[k] = v
	}
	for k, v := range m.OrderItems {
		s.OrderItems[k] = append([]order.Item(nil), v...)
	}
	s.Payments = append([]order.Payment(nil), m.Payments...)
	for k, v := range m.Coupons {
		s.Coupons[k] = v
	}
	for k, v := range m.UserCoupons {
		s.UserCoupons[k] = v
	}
	for k, v := range m.Partners {
		s.Partners[k] = append([]coupon.Partner(nil), v...)
	}
	s.Commissions = append([]commission.Commission(nil), m.Commissions...)
	s.Logs = append([]inventory.Log(nil), m.Logs...)
	for k, v := range m.Users {
		s.Users[k] = v
	}
	return s
}

func (m *MockStore) restore(s *MockStore) {
	m.Addresses = s.Addresses
	m.Cart = s.Cart
	m.Variants = s.Variants
	m.Orders = s.Orders
	m.OrderItems = s.OrderItems
	m.Payments = s.Payments
	m.Coupons = s.Coupons
	m.UserCoupons = s.UserCoupons
	m.Partners = s.Partners
	m.Commissions = s.Commissions
	m.Logs = s.Logs
	m.Users = s.Users
}

func (m *MockStore) WithTx(ctx context.Context, fn func(tx store.TxInterface) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(&mockTx{s: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *MockStore) GetAddress(ctx context.Context, addressID, userID string) (*user.Address, error) {
	a, ok := m.Addresses[addressID]
	if !ok || a.UserID != userID {
		return nil, user.ErrAddressNotFound
	}
	return &a, nil
}

func (m *MockStore) GetCartLines(ctx context.Context, userID string) ([]cart.Line, error) {
	lines := append([]cart.Line(nil), m.Cart[userID]...)
	for i := range lines {
		if v, ok := m.Variants[lines[i].VariantID]; ok {
			lines[i].UnitPrice = v.EffectivePrice()
			lines[i].Stock = v.Quantity
			lines[i].ProductID = v.ProductID
		}
	}
	return lines, nil
}

func (m *MockStore) GetPaymentByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*order.Payment, error) {
	for i := range m.Payments {
		if m.Payments[i].RazorpayPaymentID == gatewayPaymentID {
			p := m.Payments[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (m *MockStore) GetOrderStatusByGatewayOrderID(ctx context.Context, gatewayOrderID string) (order.Status, error) {
	for i := range m.Payments {
		if m.Payments[i].RazorpayOrderID == gatewayOrderID {
			if o, ok := m.Orders[m.Payments[i].OrderID]; ok {
				return o.Status, nil
			}
		}
	}
	return "", order.ErrOrderNotFound
}

func (m *MockStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*order.Payment, error) {
	for i := range m.Payments {
		if m.Payments[i].OrderID == orderID {
			p := m.Payments[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (m *MockStore) GetCouponByID(ctx context.Context, couponID string) (*coupon.Coupon, error) {
	c, ok := m.Coupons[couponID]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	return &c, nil
}

func (m *MockStore) GetCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	for _, c := range m.Coupons {
		if c.Code == code {
			cc := c
			return &cc, nil
		}
	}
	return nil, coupon.ErrCouponNotFound
}

func (m *MockStore) GetActiveUserCoupon(ctx context.Context, userID string) (*coupon.UserCoupon, error) {
	for _, uc := range m.UserCoupons {
		if uc.UserID == userID && uc.IsActive {
			u := uc
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MockStore) GetOrderForUser(ctx context.Context, orderID, userID string) (*order.Order, error) {
	o, ok := m.Orders[orderID]
	if !ok || o.UserID != userID {
		return nil, order.ErrOrderNotFound
	}
	return &o, nil
}

func (m *MockStore) ListOrdersForUser(ctx context.Context, userID string, limit, offset int) ([]order.Order, int, error) {
	var all []order.Order
	for _, o := range m.Orders {
		if o.UserID == userID {
			all = append(all, o)
		}
	}
	total := len(all)
	if offset > len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *MockStore) GetOrderItems(ctx context.Context, orderID string) ([]order.Item, error) {
	return append([]order.Item(nil), m.OrderItems[orderID]...), nil
}

func (m *MockStore) CreateUser(ctx context.Context, u *user.User) error {
	for _, existing := range m.Users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	m.Users[u.ID] = *u
	return nil
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range m.Users {
		if u.Email == email {
			uu := u
			return &uu, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *MockStore) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	u, ok := m.Users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

// mockTx mutates the parent store directly; WithTx handles rollback.
type mockTx struct {
	s *MockStore
}

var _ store.TxInterface = (*mockTx)(nil)

func (t *mockTx) call(name string) error {
	t.s.Calls = append(t.s.Calls, name)
	if t.s.FailOn == name {
		return fmt.Errorf("forced failure in %s", name)
	}
	return nil
}

func (t *mockTx) CreateOrder(ctx context.Context, o *order.Order) error {
	if err := t.call("CreateOrder"); err != nil {
		return err
	}
	t.s.Orders[o.ID] = *o
	return nil
}

func (t *mockTx) CreateOrderItem(ctx context.Context, it *order.Item) error {
	if err := t.call("CreateOrderItem"); err != nil {
		return err
	}
	t.s.OrderItems[it.OrderID] = append(t.s.OrderItems[it.OrderID], *it)
	return nil
}

func (t *mockTx) CreatePayment(ctx context.Context, p *order.Payment) error {
	if err := t.call("CreatePayment"); err != nil {
		return err
	}
	for i := range t.s.Payments {
		if t.s.Payments[i].RazorpayPaymentID == p.RazorpayPaymentID {
			return store.ErrDuplicatePayment
		}
	}
	t.s.Payments = append(t.s.Payments, *p)
	return nil
}

func (t *mockTx) UpdatePaymentStatus(ctx context.Context, orderID string, status order.PaymentStatus) error {
	if err := t.call("UpdatePaymentStatus"); err != nil {
		return err
	}
	for i := range t.s.Payments {
		if t.s.Payments[i].OrderID == orderID {
			t.s.Payments[i].Status = status
		}
	}
	return nil
}

func (t *mockTx) GetVariantForUpdate(ctx context.Context, variantID string) (*inventory.Variant, error) {
	if err := t.call("GetVariantForUpdate"); err != nil {
		return nil, err
	}
	v, ok := t.s.Variants[variantID]
	if !ok {
		return nil, inventory.ErrVariantNotFound
	}
	return &v, nil
}

func (t *mockTx) SetVariantQuantity(ctx context.Context, variantID string, quantity int) error {
	if err := t.call("SetVariantQuantity"); err != nil {
		return err
	}
	v, ok := t.s.Variants[variantID]
	if !ok {
		return inventory.ErrVariantNotFound
	}
	v.Quantity = quantity
	t.s.Variants[variantID] = v
	return nil
}

func (t *mockTx) CreateInventoryLog(ctx context.Context, l *inventory.Log) error {
	if err := t.call("CreateInventoryLog"); err != nil {
		return err
	}
	t.s.Logs = append(t.s.Logs, *l)
	return nil
}

func (t *mockTx) ConsumeUserCoupon(ctx context.Context, userCouponID string) error {
	if err := t.call("ConsumeUserCoupon"); err != nil {
		return err
	}
	uc, ok := t.s.UserCoupons[userCouponID]
	if !ok || !uc.IsActive {
		return errors.New("user coupon is not active")
	}
	uc.IsActive = false
	t.s.UserCoupons[userCouponID] = uc
	return nil
}

func (t *mockTx) IncrementCouponUsage(ctx context.Context, couponID string) error {
	if err := t.call("IncrementCouponUsage"); err != nil {
		return err
	}
	c, ok := t.s.Coupons[couponID]
	if !ok {
		return coupon.ErrCouponNotFound
	}
	c.UsedCount++
	t.s.Coupons[couponID] = c
	return nil
}

func (t *mockTx) ClearCart(ctx context.Context, userID string) error {
	if err := t.call("ClearCart"); err != nil {
		return err
	}
	delete(t.s.Cart, userID)
	return nil
}

func (t *mockTx) GetOrderForUpdate(ctx context.Context, orderID string) (*order.Order, error) {
	if err := t.call("GetOrderForUpdate"); err != nil {
		return nil, err
	}
	o, ok := t.s.Orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return &o, nil
}

func (t *mockTx) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	if err := t.call("UpdateOrderStatus"); err != nil {
		return err
	}
	o, ok := t.s.Orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = status
	t.s.Orders[orderID] = o
	return nil
}

func (t *mockTx) MarkOrderCancelled(ctx context.Context, orderID, reason, actor string, at time.Time) error {
	if err := t.call("MarkOrderCancelled"); err != nil {
		return err
	}
	o, ok := t.s.Orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.Status = order.StatusCancelled
	o.CancelReason = &reason
	o.CancelledBy = &actor
	o.CancelledAt = &at
	t.s.Orders[orderID] = o
	return nil
}

func (t *mockTx) GetOrderItems(ctx context.Context, orderID string) ([]order.Item, error) {
	if err := t.call("GetOrderItems"); err != nil {
		return nil, err
	}
	return append([]order.Item(nil), t.s.OrderItems[orderID]...), nil
}

func (t *mockTx) GetPaymentByOrderID(ctx context.Context, orderID string) (*order.Payment, error) {
	if err := t.call("GetPaymentByOrderID"); err != nil {
		return nil, err
	}
	for i := range t.s.Payments {
		if t.s.Payments[i].OrderID == orderID {
			p := t.s.Payments[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (t *mockTx) GetCouponPartners(ctx context.Context, couponID string) ([]coupon.Partner, error) {
	if err := t.call("GetCouponPartners"); err != nil {
		return nil, err
	}
	return append([]coupon.Partner(nil), t.s.Partners[couponID]...), nil
}

func (t *mockTx) CreatePartnerCommission(ctx context.Context, c *commission.Commission) error {
	if err := t.call("CreatePartnerCommission"); err != nil {
		return err
	}
	for _, existing := range t.s.Commissions {
		if existing.OrderID == c.OrderID && existing.PartnerID == c.PartnerID {
			return nil
		}
	}
	t.s.Commissions = append(t.s.Commissions, *c)
	return nil
}
