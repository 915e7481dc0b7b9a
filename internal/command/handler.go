package command

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/apparel-commerce/internal/domain/cart"
	"github.com/example/apparel-commerce/internal/domain/commission"
	"github.com/example/apparel-commerce/internal/domain/coupon"
	"github.com/example/apparel-commerce/internal/domain/inventory"
	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/infrastructure/store"
	"github.com/example/apparel-commerce/internal/razorpay"
)

var (
	ErrMissingPaymentDetails  = errors.New("missing payment details")
	ErrShippingAddressMissing = errors.New("shipping address is required")
	ErrInvalidSignature       = errors.New("payment signature verification failed")
	ErrStaleCancelledPayment  = errors.New("payment belongs to a cancelled order")
	ErrCancelViaStatusRoute   = errors.New("cancellation must go through the cancel operation")
)

// Gateway is the payment-gateway surface the handler needs. The concrete
// razorpay client satisfies it; tests substitute a double.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, userID string, meta *razorpay.CouponMetadata) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, gatewayOrderID string) (*razorpay.Order, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// Publisher emits domain events after a transaction commits. Publish
// failures are logged, never propagated: the order must stay valid even if
// the event (and the email behind it) is lost.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	store   store.StoreInterface
	gateway Gateway
	pub     Publisher
	log     zerolog.Logger
	now     func() time.Time
}

func NewHandler(st store.StoreInterface, gw Gateway, pub Publisher, log zerolog.Logger) *Handler {
	return &Handler{store: st, gateway: gw, pub: pub, log: log, now: time.Now}
}

// CreateCheckoutIntent creates the gateway-side order carrying the coupon
// selection as recoverable metadata.
func (h *Handler) CreateCheckoutIntent(ctx context.Context, cmd CreateCheckoutIntent) (*razorpay.Order, error) {
	var meta *razorpay.CouponMetadata
	if cmd.CouponCode != "" || cmd.CouponID != "" {
		meta = &razorpay.CouponMetadata{
			Code:     cmd.CouponCode,
			CouponID: cmd.CouponID,
			Discount: cmd.DiscountAmount,
		}
	}
	return h.gateway.CreateOrder(ctx, cmd.Amount, cmd.Currency, cmd.UserID, meta)
}

// VerifyPayment runs the checkout preconditions in order, resolves the
// coupon, then persists the order atomically: order row, coupon accounting,
// payment record, per-line item snapshot + stock decrement + inventory log,
// and cart clear all commit together or not at all.
func (h *Handler) VerifyPayment(ctx context.Context, cmd VerifyPayment) (*order.Order, error) {
	if cmd.RazorpayOrderID == "" || cmd.RazorpayPaymentID == "" || cmd.RazorpaySignature == "" {
		return nil, ErrMissingPaymentDetails
	}

	if cmd.ShippingAddressID == "" {
		return nil, ErrShippingAddressMissing
	}
	addr, err := h.store.GetAddress(ctx, cmd.ShippingAddressID, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if !h.gateway.VerifySignature(cmd.RazorpayOrderID, cmd.RazorpayPaymentID, cmd.RazorpaySignature) {
		return nil, ErrInvalidSignature
	}

	// Pre-check only; the unique constraint inside the transaction is the
	// real guard against concurrent replays.
	existing, err := h.store.GetPaymentByGatewayPaymentID(ctx, cmd.RazorpayPaymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, store.ErrDuplicatePayment
	}

	// A user can complete a gateway payment after cancelling the local order
	// it was created for.
	status, err := h.store.GetOrderStatusByGatewayOrderID(ctx, cmd.RazorpayOrderID)
	if err != nil && !errors.Is(err, order.ErrOrderNotFound) {
		return nil, err
	}
	if err == nil && status == order.StatusCancelled {
		return nil, ErrStaleCancelledPayment
	}

	lines, err := h.store.GetCartLines(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, cart.ErrEmptyCart
	}
	for _, l := range lines {
		if l.Stock < l.Quantity {
			return nil, &inventory.ErrInsufficientStock{
				VariantID: l.VariantID,
				Requested: l.Quantity,
				Available: l.Stock,
			}
		}
	}

	applied, userCouponID, err := h.resolveCoupon(ctx, cmd)
	if err != nil {
		return nil, err
	}

	now := h.now()
	subtotal := cart.Subtotal(lines)
	discount := decimal.Zero
	var couponCode, couponID *string
	if applied != nil {
		discount = applied.Discount(subtotal)
		couponCode = &applied.Code
		couponID = &applied.ID
	}

	o := &order.Order{
		ID:                uuid.New().String(),
		OrderNumber:       order.NewOrderNumber(now),
		UserID:            cmd.UserID,
		SubTotal:          subtotal,
		Tax:               decimal.Zero,
		ShippingCost:      decimal.Zero,
		Discount:          discount,
		Total:             subtotal.Sub(discount),
		Status:            order.StatusPaid,
		CouponCode:        couponCode,
		CouponID:          couponID,
		ShippingAddressID: addr.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var placedItems []order.PlacedItem
	err = h.store.WithTx(ctx, func(tx store.TxInterface) error {
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}

		if applied != nil {
			if userCouponID != "" {
				if err := tx.ConsumeUserCoupon(ctx, userCouponID); err != nil {
					return err
				}
			}
			if err := tx.IncrementCouponUsage(ctx, applied.ID); err != nil {
				return err
			}
		}

		if err := tx.CreatePayment(ctx, &order.Payment{
			ID:                uuid.New().String(),
			OrderID:           o.ID,
			RazorpayOrderID:   cmd.RazorpayOrderID,
			RazorpayPaymentID: cmd.RazorpayPaymentID,
			RazorpaySignature: cmd.RazorpaySignature,
			Amount:            o.Total,
			Status:            order.PaymentCaptured,
			PaymentMethod:     "razorpay",
			CreatedAt:         now,
		}); err != nil {
			return err
		}

		for _, l := range lines {
			// Re-read under the row lock: the pre-transaction stock check can
			// be stale by the time we get here.
			v, err := tx.GetVariantForUpdate(ctx, l.VariantID)
			if err != nil {
				return err
			}
			if v.Quantity < l.Quantity {
				return &inventory.ErrInsufficientStock{
					VariantID: l.VariantID,
					Requested: l.Quantity,
					Available: v.Quantity,
				}
			}

			lineSubtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
			if err := tx.CreateOrderItem(ctx, &order.Item{
				ID:        uuid.New().String(),
				OrderID:   o.ID,
				ProductID: l.ProductID,
				VariantID: l.VariantID,
				Price:     l.UnitPrice,
				Quantity:  l.Quantity,
				Subtotal:  lineSubtotal,
			}); err != nil {
				return err
			}

			newQty := v.Quantity - l.Quantity
			if err := tx.SetVariantQuantity(ctx, l.VariantID, newQty); err != nil {
				return err
			}
			if err := tx.CreateInventoryLog(ctx, &inventory.Log{
				ID:               uuid.New().String(),
				VariantID:        l.VariantID,
				OrderID:          o.ID,
				QuantityChange:   -l.Quantity,
				PreviousQuantity: v.Quantity,
				NewQuantity:      newQty,
				Reason:           inventory.ReasonSale,
				CreatedAt:        now,
			}); err != nil {
				return err
			}

			placedItems = append(placedItems, order.PlacedItem{
				ProductID: l.ProductID,
				VariantID: l.VariantID,
				Quantity:  l.Quantity,
				Price:     l.UnitPrice,
			})
		}

		return tx.ClearCart(ctx, cmd.UserID)
	})
	if err != nil {
		return nil, err
	}

	h.publish(ctx, order.EventOrderPlaced, o.ID, order.OrderPlaced{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Items:       placedItems,
		SubTotal:    o.SubTotal,
		Discount:    o.Discount,
		Total:       o.Total,
		PlacedAt:    now,
	})

	return o, nil
}

// resolveCoupon picks the coupon source in precedence order: explicit
// request fields, then the metadata stored on the gateway order, then the
// user's active coupon. The discount is always recomputed from the coupon
// row; client-supplied discount amounts are never trusted.
func (h *Handler) resolveCoupon(ctx context.Context, cmd VerifyPayment) (*coupon.Coupon, string, error) {
	code, couponID := cmd.CouponCode, cmd.CouponID

	if code == "" && couponID == "" {
		gw, err := h.gateway.FetchOrder(ctx, cmd.RazorpayOrderID)
		if err != nil {
			return nil, "", err
		}
		code = gw.Notes["coupon_code"]
		couponID = gw.Notes["coupon_id"]
	}

	var userCouponID string
	if code == "" && couponID == "" {
		uc, err := h.store.GetActiveUserCoupon(ctx, cmd.UserID)
		if err != nil {
			return nil, "", err
		}
		if uc == nil {
			return nil, "", nil
		}
		couponID = uc.CouponID
		userCouponID = uc.ID
	}

	var c *coupon.Coupon
	var err error
	if couponID != "" {
		c, err = h.store.GetCouponByID(ctx, couponID)
	} else {
		c, err = h.store.GetCouponByCode(ctx, code)
	}
	if errors.Is(err, coupon.ErrCouponNotFound) {
		// The payment is already captured; an unresolvable coupon forfeits
		// the discount instead of failing the order.
		h.log.Warn().Str("coupon_code", code).Str("coupon_id", couponID).
			Msg("coupon could not be resolved, proceeding without discount")
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	if verr := c.Validate(h.now()); verr != nil {
		h.log.Warn().Str("coupon_id", c.ID).Err(verr).
			Msg("coupon invalid at checkout, proceeding without discount")
		return nil, "", nil
	}

	// Consume the user's activation when it references the applied coupon,
	// whichever source named it.
	if userCouponID == "" {
		uc, err := h.store.GetActiveUserCoupon(ctx, cmd.UserID)
		if err != nil {
			return nil, "", err
		}
		if uc != nil && uc.CouponID == c.ID {
			userCouponID = uc.ID
		}
	}

	return c, userCouponID, nil
}

// CancelOrder sets the terminal CANCELLED state and reverses inventory. The
// variant quantities restored are read under row locks inside the same
// transaction, so previous_quantity in the log always reflects committed
// state.
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*order.Order, error) {
	if cmd.Reason == "" {
		return nil, order.ErrCancelReasonEmpty
	}

	now := h.now()
	var cancelled *order.Order
	err := h.store.WithTx(ctx, func(tx store.TxInterface) error {
		o, err := tx.GetOrderForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if cmd.UserID != "" && o.UserID != cmd.UserID {
			return order.ErrOrderNotFound
		}
		if !o.Status.Cancellable() {
			return order.TransitionError(o.Status, order.StatusCancelled)
		}

		if err := tx.MarkOrderCancelled(ctx, o.ID, cmd.Reason, cmd.Actor, now); err != nil {
			return err
		}

		items, err := tx.GetOrderItems(ctx, o.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			v, err := tx.GetVariantForUpdate(ctx, it.VariantID)
			if err != nil {
				return err
			}
			newQty := v.Quantity + it.Quantity
			if err := tx.SetVariantQuantity(ctx, it.VariantID, newQty); err != nil {
				return err
			}
			if err := tx.CreateInventoryLog(ctx, &inventory.Log{
				ID:               uuid.New().String(),
				VariantID:        it.VariantID,
				OrderID:          o.ID,
				QuantityChange:   it.Quantity,
				PreviousQuantity: v.Quantity,
				NewQuantity:      newQty,
				Reason:           inventory.ReasonCancellation,
				CreatedAt:        now,
			}); err != nil {
				return err
			}
		}

		// Mark, not process: the actual gateway refund is a manual step.
		p, err := tx.GetPaymentByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		if p != nil {
			if err := tx.UpdatePaymentStatus(ctx, o.ID, order.PaymentRefunded); err != nil {
				return err
			}
		}

		o.Status = order.StatusCancelled
		o.CancelReason = &cmd.Reason
		o.CancelledAt = &now
		o.CancelledBy = &cmd.Actor
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(ctx, order.EventOrderCancelled, cancelled.ID, order.OrderCancelled{
		OrderID:     cancelled.ID,
		Reason:      cmd.Reason,
		CancelledBy: cmd.Actor,
		CancelledAt: now,
	})

	return cancelled, nil
}

// UpdateStatus applies a lifecycle transition. Reaching DELIVERED is the
// sole trigger for partner commission accrual, inside the same transaction.
func (h *Handler) UpdateStatus(ctx context.Context, cmd UpdateOrderStatus) (*order.Order, error) {
	target, err := order.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	if target == order.StatusCancelled {
		return nil, ErrCancelViaStatusRoute
	}

	now := h.now()
	var updated *order.Order
	var from order.Status
	err = h.store.WithTx(ctx, func(tx store.TxInterface) error {
		o, err := tx.GetOrderForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		from = o.Status
		if !o.Status.CanTransitionTo(target) {
			return order.TransitionError(o.Status, target)
		}

		if err := tx.UpdateOrderStatus(ctx, o.ID, target); err != nil {
			return err
		}

		if target == order.StatusRefunded {
			p, err := tx.GetPaymentByOrderID(ctx, o.ID)
			if err != nil {
				return err
			}
			if p != nil {
				if err := tx.UpdatePaymentStatus(ctx, o.ID, order.PaymentRefunded); err != nil {
					return err
				}
			}
		}

		if target == order.StatusDelivered {
			if err := h.accrueCommissions(ctx, tx, o, now); err != nil {
				return err
			}
		}

		o.Status = target
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.publish(ctx, order.EventOrderStatusChanged, updated.ID, order.OrderStatusChanged{
		OrderID:   updated.ID,
		From:      from,
		To:        target,
		ChangedAt: now,
	})
	if target == order.StatusDelivered {
		h.publish(ctx, order.EventOrderDelivered, updated.ID, order.OrderDelivered{
			OrderID:     updated.ID,
			DeliveredAt: now,
		})
	}

	return updated, nil
}

// accrueCommissions creates one commission row per partner attributed to the
// order's coupon. The base is the net order value: subtotal minus discount,
// which is the stored total.
func (h *Handler) accrueCommissions(ctx context.Context, tx store.TxInterface, o *order.Order, now time.Time) error {
	if o.CouponID == nil {
		return nil
	}
	partners, err := tx.GetCouponPartners(ctx, *o.CouponID)
	if err != nil {
		return err
	}
	for _, p := range partners {
		if err := tx.CreatePartnerCommission(ctx, &commission.Commission{
			ID:         uuid.New().String(),
			OrderID:    o.ID,
			PartnerID:  p.PartnerID,
			CouponID:   p.CouponID,
			Percentage: p.CommissionPercentage,
			Base:       o.Total,
			Amount:     commission.Compute(o.Total, p.CommissionPercentage),
			CreatedAt:  now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) publish(ctx context.Context, eventType, orderID string, payload any) {
	if h.pub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", eventType).Msg("failed to marshal event")
		return
	}
	evt := order.Event{
		ID:        uuid.New().String(),
		EventType: eventType,
		OrderID:   orderID,
		Data:      data,
		Timestamp: h.now(),
	}
	if err := h.pub.Publish(ctx, orderID, evt); err != nil {
		h.log.Error().Err(err).Str("event", eventType).Str("order_id", orderID).
			Msg("failed to publish event")
	}
}
