package service

import (
	"context"
	"fmt"
	"time"

	"freshcart/internal/model"
	"freshcart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxCartQuantity bounds a single line.
const maxCartQuantity = 1000

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	now         func() time.Time
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, logger zerolog.Logger) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		now:         time.Now,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// GetLines returns the user's cart lines.
func (s *cartService) GetLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	lines, err := s.cartRepo.GetLines(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get cart")
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if lines == nil {
		lines = []model.CartLine{}
	}
	return lines, nil
}

// SetLine sets a line's quantity at the product's current price.
func (s *cartService) SetLine(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*model.CartLine, error) {
	if productID == "" {
		return nil, model.NewMissingFieldError("productId")
	}
	if quantity < 0 || quantity > maxCartQuantity {
		s.logger.Warn().
			Str("product_id", productID).
			Int("quantity", quantity).
			Msg("invalid quantity")
		return nil, model.ErrInvalidQuantity
	}
	if quantity == 0 {
		return nil, s.RemoveLine(ctx, userID, productID)
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("failed to get product")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	if !product.IsActive {
		return nil, model.NewProductUnavailableError(productID)
	}

	line := &model.CartLine{
		UserID:         userID,
		ProductID:      productID,
		Quantity:       quantity,
		UnitPriceAtAdd: product.Price,
		UpdatedAt:      s.now().UTC(),
	}
	if err := s.cartRepo.UpsertLine(ctx, line); err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("failed to set cart line")
		return nil, fmt.Errorf("failed to set cart line: %w", err)
	}

	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("product_id", productID).
		Int("quantity", quantity).
		Msg("cart line set")

	return line, nil
}

// RemoveLine deletes a cart line.
func (s *cartService) RemoveLine(ctx context.Context, userID uuid.UUID, productID string) error {
	if err := s.cartRepo.RemoveLine(ctx, userID, productID); err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("failed to remove cart line")
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}
