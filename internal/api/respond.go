package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/apparel-commerce/internal/command"
	"github.com/example/apparel-commerce/internal/domain/cart"
	"github.com/example/apparel-commerce/internal/domain/coupon"
	"github.com/example/apparel-commerce/internal/domain/inventory"
	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/domain/user"
	"github.com/example/apparel-commerce/internal/infrastructure/store"
	"github.com/example/apparel-commerce/internal/razorpay"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "message": message})
}

// respondDomainError maps a domain error to its HTTP status and the envelope
// the clients expect. Gateway errors are already sanitized by the razorpay
// client; everything unrecognized collapses to a generic 500.
func respondDomainError(w http.ResponseWriter, err error) {
	var stock *inventory.ErrInsufficientStock

	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrAddressNotFound),
		errors.Is(err, inventory.ErrVariantNotFound):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.As(err, &stock),
		errors.Is(err, store.ErrDuplicatePayment),
		errors.Is(err, command.ErrInvalidSignature),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, command.ErrMissingPaymentDetails),
		errors.Is(err, command.ErrShippingAddressMissing),
		errors.Is(err, command.ErrStaleCancelledPayment),
		errors.Is(err, command.ErrCancelViaStatusRoute),
		errors.Is(err, order.ErrCancelReasonEmpty),
		errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, order.ErrOrderDelivered),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderRefunded),
		errors.Is(err, coupon.ErrCouponNotFound),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponUsedUp),
		errors.Is(err, razorpay.ErrAmountTooSmall):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, razorpay.ErrGatewayFailure):
		respondError(w, http.StatusInternalServerError, err.Error())

	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
