package repository

import (
	"context"
	"errors"
	"fmt"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type addressRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool *pgxpool.Pool, logger zerolog.Logger) AddressRepository {
	return &addressRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "address").Logger(),
	}
}

// Get returns the address only when it belongs to userID.
func (r *addressRepository) Get(ctx context.Context, addressID, userID uuid.UUID) (*model.Address, error) {
	query := `
		SELECT id, user_id, type, recipient_name, phone, line1, line2, landmark,
		       city, state, postal_code, is_default, created_at
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`

	var a model.Address
	err := r.pool.QueryRow(ctx, query, addressID, userID).Scan(
		&a.ID, &a.UserID, &a.Type, &a.RecipientName, &a.Phone, &a.Line1, &a.Line2, &a.Landmark,
		&a.City, &a.State, &a.PostalCode, &a.IsDefault, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("address_id", addressID.String()).Msg("address not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("address_id", addressID.String()).Msg("failed to query address")
		return nil, fmt.Errorf("failed to query address: %w", err)
	}

	return &a, nil
}

// Create inserts an address. A default address replaces the prior default in
// the same transaction.
func (r *addressRepository) Create(ctx context.Context, address *model.Address) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if address.IsDefault {
		if err = r.unsetDefault(ctx, tx, address.UserID); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO addresses (id, user_id, type, recipient_name, phone, line1, line2, landmark,
		                       city, state, postal_code, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, query,
		address.ID, address.UserID, address.Type, address.RecipientName, address.Phone,
		address.Line1, address.Line2, address.Landmark, address.City, address.State,
		address.PostalCode, address.IsDefault,
	).Scan(&address.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", address.UserID.String()).Msg("failed to create address")
		return fmt.Errorf("failed to create address: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit address")
		return fmt.Errorf("failed to commit address: %w", err)
	}

	return nil
}

// SetDefault marks an owned address as the user's only default.
func (r *addressRepository) SetDefault(ctx context.Context, addressID, userID uuid.UUID) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = r.unsetDefault(ctx, tx, userID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2`,
		addressID, userID)
	if err != nil {
		r.logger.Error().Err(err).Str("address_id", addressID.String()).Msg("failed to set default address")
		return fmt.Errorf("failed to set default address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = model.ErrAddressNotFound
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit default address")
		return fmt.Errorf("failed to commit default address: %w", err)
	}

	return nil
}

func (r *addressRepository) unsetDefault(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`,
		userID)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to unset default address")
		return fmt.Errorf("failed to unset default address: %w", err)
	}
	return nil
}
