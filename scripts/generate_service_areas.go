//go:build ignore

package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// generateServiceAreas writes sample service area files for local runs.
// Later files override earlier ones, so 560034 ends up inactive.
// Load them with SERVICE_AREA_FILES=data/service_areas/bengaluru.csv.gz,data/service_areas/overrides.csv.gz
func main() {
	dataDir := "data/service_areas"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	header := []string{"postal_code", "area", "city", "state", "eta_label", "delivery_fee", "min_order_value", "is_active"}

	files := map[string][][]string{
		"bengaluru.csv.gz": {
			{"560001", "MG Road", "Bengaluru", "KA", "10-15 mins", "25.00", "100.00", "true"},
			{"560034", "Koramangala", "Bengaluru", "KA", "15-20 mins", "25.00", "100.00", "true"},
			{"560038", "Indiranagar", "Bengaluru", "KA", "15-20 mins", "30.00", "150.00", "true"},
			{"560102", "HSR Layout", "Bengaluru", "KA", "20-30 mins", "35.00", "199.00", "true"},
		},
		"overrides.csv.gz": {
			{"560034", "Koramangala", "Bengaluru", "KA", "15-20 mins", "25.00", "100.00", "false"},
			{"560103", "Bellandur", "Bengaluru", "KA", "25-35 mins", "40.00", "249.00", "true"},
		},
	}

	for filename, rows := range files {
		filePath := filepath.Join(dataDir, filename)

		if err := createServiceAreaFile(filePath, header, rows); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d postal codes\n", filePath, len(rows))
	}

	fmt.Println("\nSample service area files created successfully!")
}

func createServiceAreaFile(filePath string, header []string, rows [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	w := csv.NewWriter(gzWriter)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	return nil
}
