package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/apparel-commerce/internal/auth"
	"github.com/example/apparel-commerce/internal/command"
	"github.com/example/apparel-commerce/internal/domain/cart"
	"github.com/example/apparel-commerce/internal/domain/inventory"
	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/domain/user"
	"github.com/example/apparel-commerce/internal/infrastructure/store/mocks"
	"github.com/example/apparel-commerce/internal/query"
	"github.com/example/apparel-commerce/internal/razorpay"
)

type fakeGateway struct {
	validSignature bool
	notes          map[string]string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, userID string, meta *razorpay.CouponMetadata) (*razorpay.Order, error) {
	return &razorpay.Order{
		ID:       "order_gw_1",
		Amount:   razorpay.MinorUnits(amount),
		Currency: currency,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) FetchOrder(ctx context.Context, gatewayOrderID string) (*razorpay.Order, error) {
	return &razorpay.Order{ID: gatewayOrderID, Notes: g.notes}, nil
}

func (g *fakeGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return g.validSignature
}

type testEnv struct {
	store   *mocks.MockStore
	gateway *fakeGateway
	jwt     *auth.JWTService
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := mocks.NewMockStore()
	gw := &fakeGateway{validSignature: true}
	jwtSvc := auth.NewJWTService("test-secret-key", 15*time.Minute)
	log := zerolog.Nop()

	cmdHandler := command.NewHandler(st, gw, nil, log)
	queryHandler := query.NewHandler(st)

	router := NewRouter(RouterConfig{
		Handlers:     NewHandlers(cmdHandler, queryHandler, log),
		AuthHandlers: NewAuthHandlers(st, jwtSvc, log),
		JWTService:   jwtSvc,
		Logger:       log,
	})
	return &testEnv{store: st, gateway: gw, jwt: jwtSvc, router: router}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) tokenFor(t *testing.T, userID, role string) string {
	t.Helper()
	token, _, err := e.jwt.GenerateToken(userID, userID+"@example.com", role)
	require.NoError(t, err)
	return token
}

func (e *testEnv) seedCheckout(t *testing.T) (userID, addrID string) {
	t.Helper()
	userID, addrID = "user-1", "addr-1"
	e.store.Users[userID] = user.User{ID: userID, Email: "user-1@example.com", Role: "customer"}
	e.store.Addresses[addrID] = user.Address{ID: addrID, UserID: userID}
	e.store.Variants["var-a"] = inventory.Variant{
		ID: "var-a", ProductID: "prod-a", Price: decimal.NewFromInt(100), Quantity: 10,
	}
	e.store.Cart[userID] = []cart.Line{{VariantID: "var-a", Quantity: 2}}
	return userID, addrID
}

// ============================================
// Auth Endpoint Tests
// ============================================

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "str0ng-password",
		Name:     "New User",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.Equal(t, "customer", resp.User.Role)
	assert.NotEmpty(t, resp.Token)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	// Cookie carries the same session token.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// Token is immediately usable.
	claims, err := env.jwt.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.store.Users["u1"] = user.User{ID: "u1", Email: "taken@example.com"}

	rec := env.do(http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "taken@example.com",
		Password: "str0ng-password",
		Name:     "Someone",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRegister_ShortPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "short",
		Name:     "New User",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	hash, err := auth.HashPassword("correct-password")
	require.NoError(t, err)
	env.store.Users["u1"] = user.User{
		ID: "u1", Email: "login@example.com", PasswordHash: hash, Role: "customer",
	}

	rec := env.do(http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "login@example.com", Password: "correct-password",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.User.ID)
	assert.NotEmpty(t, resp.Token)

	rec = env.do(http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "login@example.com", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/auth/login", "", LoginRequest{
		Email: "nobody@example.com", Password: "correct-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "unknown email looks identical to a wrong password")
}

// ============================================
// Checkout and Verify Tests
// ============================================

func TestCreateCheckout_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/payment/checkout", "", map[string]any{"amount": "250"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateCheckout_Success(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.do(http.MethodPost, "/payment/checkout", token, map[string]any{
		"amount": "250", "currency": "INR",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var gw razorpay.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gw))
	assert.Equal(t, "order_gw_1", gw.ID)
	assert.EqualValues(t, 25000, gw.Amount)
}

func TestVerifyPayment_Success(t *testing.T) {
	env := newTestEnv(t)
	userID, addrID := env.seedCheckout(t)
	token := env.tokenFor(t, userID, "customer")

	rec := env.do(http.MethodPost, "/payment/verify", token, map[string]any{
		"razorpay_order_id":   "order_gw_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "sig",
		"shippingAddressId":   addrID,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var o order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(200)))
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	userID, _ := env.seedCheckout(t)
	token := env.tokenFor(t, userID, "customer")

	rec := env.do(http.MethodPost, "/payment/verify", token, map[string]any{
		"razorpay_order_id": "order_gw_1",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing payment details")
}

func TestVerifyPayment_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	userID, addrID := env.seedCheckout(t)
	env.gateway.validSignature = false
	token := env.tokenFor(t, userID, "customer")

	rec := env.do(http.MethodPost, "/payment/verify", token, map[string]any{
		"razorpay_order_id":   "order_gw_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "sig",
		"shippingAddressId":   addrID,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "signature")
}

func TestVerifyPayment_DuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	userID, addrID := env.seedCheckout(t)
	token := env.tokenFor(t, userID, "customer")

	body := map[string]any{
		"razorpay_order_id":   "order_gw_1",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "sig",
		"shippingAddressId":   addrID,
	}
	rec := env.do(http.MethodPost, "/payment/verify", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/payment/verify", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already processed")
}

// ============================================
// Order Endpoint Tests
// ============================================

func TestGetOrders_Empty(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.do(http.MethodGet, "/payment/orders", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var page query.OrderPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Orders)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.Page)
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.do(http.MethodGet, "/payment/orders/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_NotOwnerIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.store.Orders["ord-1"] = order.Order{ID: "ord-1", UserID: "someone-else", Status: order.StatusPaid}
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.do(http.MethodGet, "/payment/orders/ord-1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "foreign orders must be indistinguishable from missing ones")
}

func TestCancelOrder_MissingReason(t *testing.T) {
	env := newTestEnv(t)
	env.store.Orders["ord-1"] = order.Order{ID: "ord-1", UserID: "user-1", Status: order.StatusPaid}
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.do(http.MethodPost, "/payment/orders/ord-1/cancel", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "reason")
}

func TestCancelOrder_Success(t *testing.T) {
	env := newTestEnv(t)
	env.store.Orders["ord-1"] = order.Order{ID: "ord-1", UserID: "user-1", Status: order.StatusPaid}
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.do(http.MethodPost, "/payment/orders/ord-1/cancel", token, map[string]any{
		"reason": "changed my mind",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var o order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, order.StatusCancelled, o.Status)
}

// ============================================
// Admin Status Route Tests
// ============================================

func TestUpdateStatus_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.store.Orders["ord-1"] = order.Order{ID: "ord-1", UserID: "user-1", Status: order.StatusPaid}
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.do(http.MethodPost, "/payment/orders/ord-1/status", token, map[string]any{
		"status": "SHIPPED",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateStatus_AdminSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.store.Orders["ord-1"] = order.Order{ID: "ord-1", UserID: "user-1", Status: order.StatusPaid}
	token := env.tokenFor(t, "admin-1", "admin")

	rec := env.do(http.MethodPost, "/payment/orders/ord-1/status", token, map[string]any{
		"status": "SHIPPED",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var o order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, order.StatusShipped, o.Status)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	env.store.Orders["ord-1"] = order.Order{ID: "ord-1", UserID: "user-1", Status: order.StatusDelivered}
	token := env.tokenFor(t, "admin-1", "admin")

	rec := env.do(http.MethodPost, "/payment/orders/ord-1/status", token, map[string]any{
		"status": "SHIPPED",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus_CancelRejected(t *testing.T) {
	env := newTestEnv(t)
	env.store.Orders["ord-1"] = order.Order{ID: "ord-1", UserID: "user-1", Status: order.StatusPaid}
	token := env.tokenFor(t, "admin-1", "admin")

	rec := env.do(http.MethodPost, "/payment/orders/ord-1/status", token, map[string]any{
		"status": "CANCELLED",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cancel")
}

// ============================================
// Misc Routing Tests
// ============================================

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.do(http.MethodDelete, "/payment/orders", token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = env.do(http.MethodGet, "/auth/register", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
