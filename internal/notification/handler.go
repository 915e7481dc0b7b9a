package notification

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/email"
	"github.com/example/apparel-commerce/internal/infrastructure/store"
)

// Handler consumes order events and sends the matching notifications.
type Handler struct {
	emailService *email.Service
	store        store.StoreInterface
	log          zerolog.Logger
}

func NewHandler(emailSvc *email.Service, st store.StoreInterface, log zerolog.Logger) *Handler {
	return &Handler{
		emailService: emailSvc,
		store:        st,
		log:          log,
	}
}

// HandleEvent processes one event from the stream. Only OrderPlaced produces
// mail; everything else is acknowledged and dropped.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.log.Error().Err(err).Msg("failed to unmarshal event")
		return err
	}

	if event.EventType == order.EventOrderPlaced {
		return h.handleOrderPlaced(ctx, event)
	}

	return nil
}

func (h *Handler) handleOrderPlaced(ctx context.Context, event order.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to unmarshal OrderPlaced")
		return err
	}

	h.log.Info().Str("order_id", e.OrderID).Str("user_id", e.UserID).Msg("processing OrderPlaced")

	u, err := h.store.GetUserByID(ctx, e.UserID)
	if err != nil {
		// Not retryable; a missing user will not appear on redelivery.
		h.log.Error().Err(err).Str("user_id", e.UserID).Msg("could not load user for notification")
		return nil
	}

	emailItems := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		emailItems[i] = email.OrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	if err := h.emailService.SendOrderConfirmation(u.Email, e.OrderNumber, e.SubTotal, e.Discount, e.Total, emailItems); err != nil {
		h.log.Error().Err(err).Str("to", u.Email).Str("order_id", e.OrderID).Msg("failed to send confirmation email")
		return err
	}

	h.log.Info().Str("to", u.Email).Str("order_id", e.OrderID).Msg("order confirmation email sent")
	return nil
}
