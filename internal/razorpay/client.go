// Package razorpay is a minimal client for the Razorpay Orders API: creating
// a payment intent before the user pays and verifying the callback signature
// after. The signature check is the sole trust boundary for accepting that a
// payment happened.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Razorpay rejects receipts longer than 40 characters.
const maxReceiptLen = 40

var (
	ErrAmountTooSmall = errors.New("amount must be at least 1")
	ErrGatewayFailure = errors.New("payment gateway request failed")
)

// Order is the gateway-side payment intent.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

// CouponMetadata travels as opaque notes on the gateway order so the applied
// coupon can be recovered even if the local session is lost.
type CouponMetadata struct {
	Code     string
	CouponID string
	Discount decimal.Decimal
}

type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

func NewClient(keyID, keySecret string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(keyID, keySecret, baseURL string) *Client {
	c := NewClient(keyID, keySecret)
	c.baseURL = baseURL
	return c
}

// gatewayError is Razorpay's error envelope.
type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates a payment intent for the given amount. The amount is
// converted to the gateway's minor units by rounding the decimal to two
// places first, avoiding float drift. Coupon metadata, when present, is
// attached as notes.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, userID string, meta *CouponMetadata) (*Order, error) {
	if amount.LessThan(decimal.NewFromInt(1)) {
		return nil, ErrAmountTooSmall
	}
	if currency == "" {
		currency = "INR"
	}

	notes := map[string]string{}
	if meta != nil {
		if meta.Code != "" {
			notes["coupon_code"] = meta.Code
		}
		if meta.CouponID != "" {
			notes["coupon_id"] = meta.CouponID
		}
		if meta.Discount.IsPositive() {
			notes["discount_amount"] = meta.Discount.StringFixed(2)
		}
	}

	body := map[string]any{
		"amount":   MinorUnits(amount),
		"currency": currency,
		"receipt":  receiptID(userID, time.Now()),
		"notes":    notes,
	}

	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchOrder retrieves a gateway order, including its notes.
func (c *Client) FetchOrder(ctx context.Context, gatewayOrderID string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+gatewayOrderID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySignature recomputes the HMAC-SHA256 of "orderID|paymentID" with the
// secret key and compares it to the signature supplied by the client.
func (c *Client) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Prefer the gateway's own description; never pass through anything
		// beyond it.
		var ge gatewayError
		if json.NewDecoder(resp.Body).Decode(&ge) == nil && ge.Error.Description != "" {
			return fmt.Errorf("%w: %s", ErrGatewayFailure, ge.Error.Description)
		}
		return fmt.Errorf("%w: status %d", ErrGatewayFailure, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// MinorUnits converts a money amount to the gateway's integer minor units
// (e.g. rupees to paise), rounding to two decimal places first.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// receiptID builds a receipt within the gateway's length limit from a
// truncated timestamp and user identifier.
func receiptID(userID string, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	uid := userID
	if len(uid) > 20 {
		uid = uid[:20]
	}
	r := "rcpt_" + ts + "_" + uid
	if len(r) > maxReceiptLen {
		r = r[:maxReceiptLen]
	}
	return r
}
