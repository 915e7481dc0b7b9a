package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/apparel-commerce/internal/api/middleware"
	"github.com/example/apparel-commerce/internal/command"
	"github.com/example/apparel-commerce/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	log          zerolog.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, log zerolog.Logger) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		log:          log,
	}
}

// Checkout Handlers

func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateCheckoutIntent
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	gwOrder, err := h.cmdHandler.CreateCheckoutIntent(r.Context(), cmd)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", cmd.UserID).Msg("checkout intent failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, gwOrder)
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var cmd command.VerifyPayment
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.UserID = middleware.GetUserID(r.Context())

	o, err := h.cmdHandler.VerifyPayment(r.Context(), cmd)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", cmd.UserID).
			Str("razorpay_order_id", cmd.RazorpayOrderID).Msg("payment verification failed")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.queryHandler.ListOrders(r.Context(), userID, page, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := extractOrderID(r.URL.Path)
	userID := middleware.GetUserID(r.Context())

	detail, err := h.queryHandler.GetOrder(r.Context(), orderID, userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.CancelOrder
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.OrderID = extractOrderID(r.URL.Path)
	cmd.UserID = middleware.GetUserID(r.Context())
	cmd.Actor = cmd.UserID

	o, err := h.cmdHandler.CancelOrder(r.Context(), cmd)
	if err != nil {
		h.log.Warn().Err(err).Str("order_id", cmd.OrderID).Msg("cancel rejected")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

// UpdateOrderStatus is admin-only; routing applies RequireRole("admin").
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateOrderStatus
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd.OrderID = extractOrderID(r.URL.Path)
	cmd.Actor = middleware.GetUserID(r.Context())

	o, err := h.cmdHandler.UpdateStatus(r.Context(), cmd)
	if err != nil {
		h.log.Warn().Err(err).Str("order_id", cmd.OrderID).
			Str("target", cmd.Status).Msg("status transition rejected")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// extractOrderID pulls the order id segment from /payment/orders/{id}[/...].
func extractOrderID(path string) string {
	rest := strings.TrimPrefix(path, "/payment/orders/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
