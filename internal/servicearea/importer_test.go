package servicearea

import (
	"context"
	"errors"
	"sync"
	"testing"

	"freshcart/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUpserter struct {
	mock.Mock
}

func (m *MockUpserter) Upsert(ctx context.Context, areas []model.ServiceArea) error {
	args := m.Called(ctx, areas)
	return args.Error(0)
}

func mapLoader(files map[string][]model.ServiceArea) Loader {
	var mu sync.Mutex
	return &mockLoader{
		loadFunc: func(ctx context.Context, path string) ([]model.ServiceArea, error) {
			mu.Lock()
			defer mu.Unlock()
			areas, ok := files[path]
			if !ok {
				return nil, errors.New("no such file")
			}
			return areas, nil
		},
	}
}

func TestImporter_LaterFilesOverride(t *testing.T) {
	loader := mapLoader(map[string][]model.ServiceArea{
		"base.csv.gz": {
			{PostalCode: "560001", Area: "MG Road", DeliveryFee: 2500, IsActive: true},
			{PostalCode: "560002", Area: "Shivajinagar", DeliveryFee: 3000, IsActive: true},
		},
		"override.csv.gz": {
			{PostalCode: "560002", Area: "Shivajinagar", DeliveryFee: 0, IsActive: false},
			{PostalCode: "560003", Area: "Indiranagar", DeliveryFee: 2000, IsActive: true},
		},
	})

	store := new(MockUpserter)
	store.On("Upsert", mock.Anything, []model.ServiceArea{
		{PostalCode: "560001", Area: "MG Road", DeliveryFee: 2500, IsActive: true},
		{PostalCode: "560002", Area: "Shivajinagar", DeliveryFee: 0, IsActive: false},
		{PostalCode: "560003", Area: "Indiranagar", DeliveryFee: 2000, IsActive: true},
	}).Return(nil)

	n, err := NewImporter(loader, store, zerolog.Nop()).
		Import(context.Background(), []string{"base.csv.gz", "override.csv.gz"})

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	store.AssertExpectations(t)
}

func TestImporter_Errors(t *testing.T) {
	loader := mapLoader(map[string][]model.ServiceArea{
		"base.csv.gz": {{PostalCode: "560001"}},
	})

	t.Run("Load failure stops the import", func(t *testing.T) {
		store := new(MockUpserter)
		_, err := NewImporter(loader, store, zerolog.Nop()).
			Import(context.Background(), []string{"base.csv.gz", "missing.csv.gz"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing.csv.gz")
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("Store failure", func(t *testing.T) {
		store := new(MockUpserter)
		store.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("db down"))

		_, err := NewImporter(loader, store, zerolog.Nop()).
			Import(context.Background(), []string{"base.csv.gz"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to store service areas")
	})

	t.Run("No files", func(t *testing.T) {
		store := new(MockUpserter)
		n, err := NewImporter(loader, store, zerolog.Nop()).Import(context.Background(), nil)

		require.NoError(t, err)
		assert.Zero(t, n)
		store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}
