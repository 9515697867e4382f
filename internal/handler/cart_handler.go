package handler

import (
	"net/http"

	"freshcart/internal/model"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CartHandler handles cart editing requests for the calling user.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	lines, err := h.service.GetLines(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, lines)
}

// SetItem handles PUT /api/cart/items/{productId} requests.
func (h *CartHandler) SetItem(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.SetCartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	line, err := h.service.SetLine(r.Context(), userID, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if line == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, line)
}

// RemoveItem handles DELETE /api/cart/items/{productId} requests.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := requireUserID(r)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.service.RemoveLine(r.Context(), userID, chi.URLParam(r, "productId")); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
