package repository

import (
	"context"
	"errors"
	"fmt"

	"freshcart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type serviceAreaRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewServiceAreaRepository creates a new PostgreSQL-backed service area repository.
func NewServiceAreaRepository(pool *pgxpool.Pool, logger zerolog.Logger) ServiceAreaRepository {
	return &serviceAreaRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "service_area").Logger(),
	}
}

// GetActiveByPostalCode returns nil when no active record matches exactly.
func (r *serviceAreaRepository) GetActiveByPostalCode(ctx context.Context, postalCode string) (*model.ServiceArea, error) {
	query := `
		SELECT postal_code, area, city, state, delivery_eta_label,
		       delivery_fee, min_order_value, is_active, updated_at
		FROM service_areas
		WHERE postal_code = $1 AND is_active
	`

	var (
		a             model.ServiceArea
		fee, minOrder int64
	)
	err := r.pool.QueryRow(ctx, query, postalCode).Scan(
		&a.PostalCode, &a.Area, &a.City, &a.State, &a.DeliveryEtaLabel,
		&fee, &minOrder, &a.IsActive, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("postal_code", postalCode).Msg("failed to query service area")
		return nil, fmt.Errorf("failed to query service area: %w", err)
	}
	a.DeliveryFee = model.Money(fee)
	a.MinOrderValue = model.Money(minOrder)

	return &a, nil
}

// Upsert inserts or replaces areas keyed by postal code in one batch.
func (r *serviceAreaRepository) Upsert(ctx context.Context, areas []model.ServiceArea) error {
	if len(areas) == 0 {
		return nil
	}

	query := `
		INSERT INTO service_areas (postal_code, area, city, state, delivery_eta_label,
		                           delivery_fee, min_order_value, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (postal_code) DO UPDATE
		SET area = EXCLUDED.area,
		    city = EXCLUDED.city,
		    state = EXCLUDED.state,
		    delivery_eta_label = EXCLUDED.delivery_eta_label,
		    delivery_fee = EXCLUDED.delivery_fee,
		    min_order_value = EXCLUDED.min_order_value,
		    is_active = EXCLUDED.is_active,
		    updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, a := range areas {
		batch.Queue(query, a.PostalCode, a.Area, a.City, a.State, a.DeliveryEtaLabel,
			int64(a.DeliveryFee), int64(a.MinOrderValue), a.IsActive)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range areas {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("postal_code", areas[i].PostalCode).
				Msg("failed to upsert service area")
			return fmt.Errorf("failed to upsert service area %s: %w", areas[i].PostalCode, err)
		}
	}

	r.logger.Debug().
		Int("count", len(areas)).
		Msg("service areas upserted")

	return nil
}
