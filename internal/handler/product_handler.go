package handler

import (
	"net/http"
	"strconv"

	"freshcart/internal/model"
	"freshcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /api/products requests with filters and pagination.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := model.ProductFilter{
		Category: query.Get("category"),
		Limit:    10,
	}

	var err error
	if v := query.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, r, invalidQueryParam("limit"), h.logger)
			return
		}
	}
	if v := query.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeError(w, r, invalidQueryParam("offset"), h.logger)
			return
		}
	}
	if v := query.Get("inStock"); v != "" {
		if filter.InStockOnly, err = strconv.ParseBool(v); err != nil {
			writeError(w, r, invalidQueryParam("inStock"), h.logger)
			return
		}
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func invalidQueryParam(name string) *model.DomainError {
	return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid "+name+" parameter").
		WithDetail("parameter", name)
}
