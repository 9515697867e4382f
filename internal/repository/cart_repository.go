package repository

import (
	"context"
	"fmt"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetLines returns the user's cart lines ordered by product ID.
func (r *cartRepository) GetLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error) {
	query := `
		SELECT user_id, product_id, quantity, unit_price_at_add, updated_at
		FROM cart_lines
		WHERE user_id = $1
		ORDER BY product_id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query cart lines")
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLine{}
	for rows.Next() {
		var (
			line  model.CartLine
			price int64
		)
		if err := rows.Scan(&line.UserID, &line.ProductID, &line.Quantity, &price, &line.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart line row")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		line.UnitPriceAtAdd = model.Money(price)
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart line rows")
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// UpsertLine sets the quantity and captured price of a cart line.
func (r *cartRepository) UpsertLine(ctx context.Context, line *model.CartLine) error {
	query := `
		INSERT INTO cart_lines (user_id, product_id, quantity, unit_price_at_add, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    unit_price_at_add = EXCLUDED.unit_price_at_add,
		    updated_at = NOW()
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query, line.UserID, line.ProductID, line.Quantity, int64(line.UnitPriceAtAdd)).
		Scan(&line.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", line.UserID.String()).
			Str("product_id", line.ProductID).
			Msg("failed to upsert cart line")
		return fmt.Errorf("failed to upsert cart line: %w", err)
	}

	return nil
}

// RemoveLine deletes one line. Removing an absent line is not an error.
func (r *cartRepository) RemoveLine(ctx context.Context, userID uuid.UUID, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("product_id", productID).
			Msg("failed to remove cart line")
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

// Clear deletes every line of the user's cart within the provided transaction.
func (r *cartRepository) Clear(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	r.logger.Debug().
		Str("user_id", userID.String()).
		Int64("lines", tag.RowsAffected()).
		Msg("cart cleared")

	return nil
}
