package servicearea

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"freshcart/internal/model"

	"github.com/rs/zerolog"
)

// Loader reads a gzipped service area CSV file.
type Loader interface {
	Load(ctx context.Context, path string) ([]model.ServiceArea, error)
}

var requiredColumns = []string{"postal_code", "area", "city", "state", "delivery_fee", "min_order_value"}

// fileLoader implements Loader for local gzipped CSV files.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based service area loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "service-area-loader").Logger(),
	}
}

// Load reads a gzipped CSV file with a header row.
func (l *fileLoader) Load(ctx context.Context, path string) ([]model.ServiceArea, error) {
	l.logger.Info().Str("file", path).Msg("loading service area file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open service area file")
		return nil, fmt.Errorf("failed to open service area file %s: %w", path, err)
	}
	defer file.Close()

	areas, err := parseGzipCSV(ctx, file, path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read service area file")
		return nil, err
	}

	l.logger.Info().
		Str("file", path).
		Int("areas_loaded", len(areas)).
		Msg("service area file loaded successfully")

	return areas, nil
}

// parseGzipCSV decodes service areas from a gzipped CSV stream. Columns are
// matched by header name; eta_label and is_active are optional.
func parseGzipCSV(ctx context.Context, r io.Reader, source string) ([]model.ServiceArea, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gz.Close()

	reader := csv.NewReader(gz)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("service area file %s is empty", source)
		}
		return nil, fmt.Errorf("failed to read header of %s: %w", source, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("service area file %s is missing column %q", source, name)
		}
	}

	var areas []model.ServiceArea
	for line := 2; ; line++ {
		if line%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", source, err)
		}

		area, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, line, err)
		}
		areas = append(areas, area)
	}

	return areas, nil
}

func parseRecord(record []string, cols map[string]int) (model.ServiceArea, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	area := model.ServiceArea{
		PostalCode:       field("postal_code"),
		Area:             field("area"),
		City:             field("city"),
		State:            field("state"),
		DeliveryEtaLabel: field("eta_label"),
		IsActive:         true,
	}

	if !ValidPostalCode(area.PostalCode) {
		return area, fmt.Errorf("invalid postal_code %q", area.PostalCode)
	}

	fee, err := parseAmount(field("delivery_fee"))
	if err != nil {
		return area, fmt.Errorf("invalid delivery_fee: %w", err)
	}
	area.DeliveryFee = fee

	minOrder, err := parseAmount(field("min_order_value"))
	if err != nil {
		return area, fmt.Errorf("invalid min_order_value: %w", err)
	}
	area.MinOrderValue = minOrder

	if v := field("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return area, fmt.Errorf("invalid is_active %q", v)
		}
		area.IsActive = active
	}

	return area, nil
}

func parseAmount(v string) (model.Money, error) {
	if v == "" {
		return 0, nil
	}
	m, err := model.ParseMoney(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not an amount", v)
	}
	if m < 0 {
		return 0, fmt.Errorf("%q is negative", v)
	}
	return m, nil
}
