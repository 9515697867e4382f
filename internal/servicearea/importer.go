package servicearea

import (
	"context"
	"fmt"
	"sync"

	"freshcart/internal/model"

	"github.com/rs/zerolog"
)

// Upserter persists imported service areas.
type Upserter interface {
	Upsert(ctx context.Context, areas []model.ServiceArea) error
}

// Importer loads seed files and writes them to the store.
type Importer struct {
	loader Loader
	store  Upserter
	logger zerolog.Logger
}

// NewImporter creates an importer.
func NewImporter(loader Loader, store Upserter, logger zerolog.Logger) *Importer {
	return &Importer{
		loader: loader,
		store:  store,
		logger: logger.With().Str("component", "service-area-importer").Logger(),
	}
}

// Import loads every file concurrently, merges them so that later files
// override earlier ones for the same postal code, and upserts the result.
// It returns the number of distinct postal codes written.
func (im *Importer) Import(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	type loadResult struct {
		areas []model.ServiceArea
		err   error
	}

	results := make([]loadResult, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			areas, err := im.loader.Load(ctx, path)
			results[index] = loadResult{areas: areas, err: err}
		}(i, path)
	}
	wg.Wait()

	merged := make(map[string]int)
	var areas []model.ServiceArea
	for i, result := range results {
		if result.err != nil {
			return 0, fmt.Errorf("failed to load service area file %s: %w", paths[i], result.err)
		}
		for _, area := range result.areas {
			if idx, ok := merged[area.PostalCode]; ok {
				areas[idx] = area
				continue
			}
			merged[area.PostalCode] = len(areas)
			areas = append(areas, area)
		}
	}

	if err := im.store.Upsert(ctx, areas); err != nil {
		return 0, fmt.Errorf("failed to store service areas: %w", err)
	}

	im.logger.Info().
		Int("files", len(paths)).
		Int("postal_codes", len(areas)).
		Msg("service areas imported")

	return len(areas), nil
}
