package email

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"999", "999.00"},
		{"1000", "1,000.00"},
		{"250.5", "250.50"},
		{"1234567.89", "1,234,567.89"},
		{"-1500", "-1,500.00"},
	}

	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, formatAmount(d), "input %s", tt.in)
	}
}

func TestBuildOrderConfirmationBody(t *testing.T) {
	items := []OrderItem{
		{VariantID: "var-a", Name: "Linen Shirt (Blue, M)", Quantity: 2, Price: decimal.NewFromInt(100)},
		{VariantID: "var-b", Quantity: 1, Price: decimal.NewFromInt(50)},
	}

	body := BuildOrderConfirmationBody("ORD-20260830-ABCDEF12",
		decimal.NewFromInt(250), decimal.NewFromInt(50), decimal.NewFromInt(200), items)

	assert.Contains(t, body, "ORD-20260830-ABCDEF12")
	assert.Contains(t, body, "Linen Shirt (Blue, M)")
	// Unnamed items fall back to the variant id.
	assert.Contains(t, body, "var-b")
	assert.Contains(t, body, "200.00")
	assert.Contains(t, body, "Discount")
}

func TestBuildOrderConfirmationBody_NoDiscount(t *testing.T) {
	body := BuildOrderConfirmationBody("ORD-20260830-ABCDEF12",
		decimal.NewFromInt(250), decimal.Zero, decimal.NewFromInt(250), nil)

	assert.NotContains(t, body, "Discount")
	assert.Contains(t, body, "250.00")
}
