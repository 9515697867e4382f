// Package servicearea decides whether an address can be delivered to and on
// what terms, and imports the delivery reference data it relies on.
package servicearea

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"freshcart/internal/model"

	"github.com/rs/zerolog"
)

var postalCodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// Store is the subset of the service area repository the resolver reads.
type Store interface {
	GetActiveByPostalCode(ctx context.Context, postalCode string) (*model.ServiceArea, error)
}

// Resolver determines whether delivery is offered to a postal code.
type Resolver interface {
	Resolve(ctx context.Context, postalCode string) (*model.Resolution, error)
}

type resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver creates a resolver backed by store.
func NewResolver(store Store, logger zerolog.Logger) Resolver {
	return &resolver{
		store:  store,
		logger: logger.With().Str("component", "service-area-resolver").Logger(),
	}
}

// ValidPostalCode reports whether code is a well-formed 6-digit postal code.
func ValidPostalCode(code string) bool {
	return postalCodePattern.MatchString(code)
}

// Resolve looks the postal code up against active service areas only. A
// malformed, unknown or inactive code resolves as unserviceable.
func (r *resolver) Resolve(ctx context.Context, postalCode string) (*model.Resolution, error) {
	code := strings.TrimSpace(postalCode)
	res := &model.Resolution{PostalCode: code}

	if !ValidPostalCode(code) {
		r.logger.Debug().Str("postal_code", postalCode).Msg("malformed postal code")
		return res, nil
	}

	area, err := r.store.GetActiveByPostalCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve service area: %w", err)
	}
	if area == nil {
		r.logger.Debug().Str("postal_code", code).Msg("postal code not serviced")
		return res, nil
	}

	res.IsServiceable = true
	res.Terms = &model.DeliveryTerms{
		Area:          area.Area,
		City:          area.City,
		DeliveryFee:   area.DeliveryFee,
		MinOrderValue: area.MinOrderValue,
		EtaLabel:      area.DeliveryEtaLabel,
	}

	return res, nil
}
