package handler

import (
	"encoding/json"
	"net/http"

	"freshcart/internal/model"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// stripeSignatureHeader is set when the gateway posts its webhook directly.
const stripeSignatureHeader = "Stripe-Signature"

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Place handles POST /api/orders requests.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.PlaceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	req.UserID = userID

	resp, err := h.service.PlaceOrder(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	orderID, err := pathUUID(chi.URLParam(r, "id"), model.ErrOrderNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), orderID, userID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Confirm handles POST /api/orders/{id}/confirm requests. The body is either
// a JSON ConfirmPaymentRequest or, when the Stripe-Signature header is set,
// the raw gateway webhook payload.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(chi.URLParam(r, "id"), model.ErrOrderNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.ConfirmPaymentRequest
	if signature := r.Header.Get(stripeSignatureHeader); signature != "" {
		req.Signature = signature
		req.Payload = string(body)
	} else if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, errInvalidJSON, h.logger)
		return
	}
	req.OrderID = orderID

	order, err := h.service.ConfirmOnlinePayment(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// StripeWebhook handles POST /webhooks/stripe. The order is taken from the
// signed event, never from the URL.
func (h *OrderHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get(stripeSignatureHeader)
	if signature == "" {
		writeError(w, r, model.NewMissingFieldError(stripeSignatureHeader), h.logger)
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.HandlePaymentWebhook(r.Context(), signature, body)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if order == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	orderID, err := pathUUID(chi.URLParam(r, "id"), model.ErrOrderNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.CancelPendingOnlineOrder(r.Context(), orderID, userID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(chi.URLParam(r, "id"), model.ErrOrderNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if req.Status == "" {
		writeError(w, r, model.NewMissingFieldError("status"), h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
