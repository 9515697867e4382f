// Package cart turns persisted cart lines into a priced, stock-checked
// snapshot that an order can be built from.
package cart

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LineStore reads a user's persisted cart.
type LineStore interface {
	GetLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
}

// Catalog reads current product state in bulk.
type Catalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// Builder defines the interface for building cart snapshots.
type Builder interface {
	// Build prices every line at the current catalogue price and checks that
	// each product is active and has enough stock. Quantities are never
	// clamped: the first line that cannot be served fails the whole build.
	Build(ctx context.Context, userID uuid.UUID) (*model.CartSnapshot, error)
}

type builder struct {
	lines   LineStore
	catalog Catalog
	logger  zerolog.Logger
}

// NewBuilder creates a new cart snapshot builder.
func NewBuilder(lines LineStore, catalog Catalog, logger zerolog.Logger) Builder {
	return &builder{
		lines:   lines,
		catalog: catalog,
		logger:  logger.With().Str("component", "cart-snapshot").Logger(),
	}
}

func (b *builder) Build(ctx context.Context, userID uuid.UUID) (*model.CartSnapshot, error) {
	lines, err := b.lines.GetLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, model.ErrEmptyCart
	}

	// Stock is later decremented in this order, so keep it stable.
	slices.SortFunc(lines, func(a, b model.CartLine) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})

	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	products, err := b.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	snapshot := &model.CartSnapshot{
		UserID: userID,
		Lines:  make([]model.LineItem, 0, len(lines)),
	}
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok || !product.IsActive {
			b.logger.Warn().
				Str("user_id", userID.String()).
				Str("product_id", line.ProductID).
				Msg("cart references unavailable product")
			return nil, model.NewProductUnavailableError(line.ProductID)
		}
		if product.Stock < line.Quantity {
			b.logger.Warn().
				Str("user_id", userID.String()).
				Str("product_id", line.ProductID).
				Int("requested", line.Quantity).
				Int("available", product.Stock).
				Msg("insufficient stock for cart line")
			return nil, model.NewInsufficientStockError(line.ProductID, product.Stock)
		}

		lineTotal := product.Price * model.Money(line.Quantity)
		snapshot.Lines = append(snapshot.Lines, model.LineItem{
			ProductID:    product.ID,
			Name:         product.Name,
			Quantity:     line.Quantity,
			UnitPrice:    product.Price,
			LineTotal:    lineTotal,
			PriceChanged: line.UnitPriceAtAdd != product.Price,
		})
		snapshot.Subtotal += lineTotal
	}

	return snapshot, nil
}
