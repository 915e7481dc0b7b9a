package query

import (
	"context"

	"github.com/example/apparel-commerce/internal/domain/coupon"
	"github.com/example/apparel-commerce/internal/domain/order"
	"github.com/example/apparel-commerce/internal/infrastructure/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler serves the read side: order history and detail for the caller.
type Handler struct {
	store store.StoreInterface
}

func NewHandler(st store.StoreInterface) *Handler {
	return &Handler{store: st}
}

type OrderPage struct {
	Orders     []order.Order `json:"orders"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

type OrderDetail struct {
	Order   *order.Order   `json:"order"`
	Items   []order.Item   `json:"items"`
	Payment *order.Payment `json:"payment,omitempty"`
	Coupon  *coupon.Coupon `json:"coupon,omitempty"`
}

// ListOrders returns one page of the caller's order history, newest first.
func (h *Handler) ListOrders(ctx context.Context, userID string, page, pageSize int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	orders, total, err := h.store.ListOrdersForUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []order.Order{}
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	return &OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetOrder returns full order detail, scoped to the owning user.
func (h *Handler) GetOrder(ctx context.Context, orderID, userID string) (*OrderDetail, error) {
	o, err := h.store.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	items, err := h.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	payment, err := h.store.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	detail := &OrderDetail{Order: o, Items: items, Payment: payment}
	if o.CouponID != nil {
		c, err := h.store.GetCouponByID(ctx, *o.CouponID)
		if err == nil {
			detail.Coupon = c
		}
	}
	return detail, nil
}
