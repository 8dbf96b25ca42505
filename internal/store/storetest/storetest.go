// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SigNoz/pcparts-store/internal/catalog"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/store"
)

// Factory opens an empty backend seeded with the given components
type Factory func(t *testing.T, seed []models.Component) store.Store

// Run exercises the store contract against the backend built by newStore
func Run(t *testing.T, newStore Factory) {
	seed, err := catalog.Default()
	require.NoError(t, err)

	open := func(t *testing.T) store.Store {
		s := newStore(t, seed)
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("ListComponents", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		all, err := s.ListComponents(ctx, store.ComponentFilter{})
		require.NoError(t, err)
		assert.Len(t, all, len(seed))
		for i := 1; i < len(all); i++ {
			assert.LessOrEqual(t, all[i-1].Name, all[i].Name)
		}

		gpus, err := s.ListComponents(ctx, store.ComponentFilter{Category: models.CategoryGPU})
		require.NoError(t, err)
		assert.Len(t, gpus, 4)

		active, err := s.ListComponents(ctx, store.ComponentFilter{Category: models.CategoryGPU, ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, active, 3)
		for _, c := range active {
			assert.NotEqual(t, "rtx-3060", c.ID)
		}

		limited, err := s.ListComponents(ctx, store.ComponentFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("ListComponentsUnbounded", func(t *testing.T) {
		large := append([]models.Component{}, seed...)
		for i := 0; i < store.DefaultLimit; i++ {
			large = append(large, models.Component{
				ID:       fmt.Sprintf("bulk-ssd-%03d", i),
				Name:     fmt.Sprintf("Bulk SSD %03d", i),
				Brand:    "Bulk",
				Category: models.CategoryStorage,
				Price:    decimal.NewFromInt(50),
				Stock:    10,
				IsActive: true,
			})
		}
		s := newStore(t, large)
		t.Cleanup(func() { s.Close() })
		ctx := context.Background()

		limited, err := s.ListComponents(ctx, store.ComponentFilter{})
		require.NoError(t, err)
		assert.Len(t, limited, store.DefaultLimit)

		all, err := s.ListComponents(ctx, store.ComponentFilter{Unbounded: true})
		require.NoError(t, err)
		assert.Len(t, all, len(large))

		active, err := s.ListComponents(ctx, store.ComponentFilter{ActiveOnly: true, Unbounded: true})
		require.NoError(t, err)
		assert.Len(t, active, len(large)-1)
	})

	t.Run("GetComponent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		c, err := s.GetComponent(ctx, "rtx-4090")
		require.NoError(t, err)
		assert.Equal(t, models.CategoryGPU, c.Category)
		assert.Equal(t, 336, mustGPU(t, c).LengthMM)
		assert.NotEmpty(t, c.KeyFeatures)
		assert.True(t, c.IsActive)

		_, err = s.GetComponent(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("CreateComponent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		c := &models.Component{
			ID:             "be-quiet-dark-rock-4",
			Name:           "be quiet! Dark Rock 4",
			Brand:          "be quiet!",
			Category:       models.CategoryCooler,
			Price:          decimal.RequireFromString("74.90"),
			Specifications: models.Specifications{"socket": []any{"AM5", "LGA1700"}, "tdpRating": "200W"},
			Stock:          3,
			Rating:         4.5,
			IsActive:       true,
		}
		require.NoError(t, s.CreateComponent(ctx, c))
		assert.False(t, c.CreatedAt.IsZero())

		got, err := s.GetComponent(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, c.Price.Equal(got.Price))
		assert.Equal(t, []string{"AM5", "LGA1700"}, got.Specifications.Strings("socket"))
		assert.Equal(t, models.StockLow, got.StockStatus())

		err = s.CreateComponent(ctx, c)
		assert.ErrorIs(t, err, store.ErrConflict)

		inactive := *c
		inactive.ID = "be-quiet-pure-rock-2"
		inactive.IsActive = false
		require.NoError(t, s.CreateComponent(ctx, &inactive))
		got, err = s.GetComponent(ctx, inactive.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("UpdateComponent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		price := decimal.RequireFromString("1499.99")
		stock := 2
		got, err := s.UpdateComponent(ctx, "rtx-4090", store.ComponentUpdate{Price: &price, Stock: &stock})
		require.NoError(t, err)
		assert.True(t, price.Equal(got.Price))
		assert.Equal(t, 2, got.Stock)
		assert.Equal(t, 4.7, got.Rating)

		reloaded, err := s.GetComponent(ctx, "rtx-4090")
		require.NoError(t, err)
		assert.True(t, price.Equal(reloaded.Price))

		negative := -1
		_, err = s.UpdateComponent(ctx, "rtx-4090", store.ComponentUpdate{Stock: &negative})
		assert.ErrorIs(t, err, store.ErrInvalid)

		_, err = s.UpdateComponent(ctx, "missing", store.ComponentUpdate{Stock: &stock})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("DeleteComponent", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		require.NoError(t, s.DeleteComponent(ctx, "evga-600-br"))
		_, err := s.GetComponent(ctx, "evga-600-br")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.DeleteComponent(ctx, "evga-600-br"), store.ErrNotFound)
	})

	t.Run("ListCategories", func(t *testing.T) {
		s := open(t)

		cats, err := s.ListCategories(context.Background())
		require.NoError(t, err)
		require.Len(t, cats, len(models.Categories))
		assert.Equal(t, models.CategoryCPU, cats[0].ID)
		assert.Equal(t, "Processors", cats[0].Name)
		assert.Equal(t, 4, cats[0].Count)
		assert.Equal(t, models.CategoryGPU, cats[1].ID)
		assert.Equal(t, 3, cats[1].Count)
	})

	t.Run("Builds", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		gaming := &models.Build{
			ID:               "build-1",
			Name:             "AM5 gaming rig",
			UseCase:          models.UseCaseGaming,
			Components:       models.BuildComponents{models.CategoryCPU: "ryzen-7-7800x3d", models.CategoryGPU: "rtx-4090"},
			TotalPrice:       decimal.RequireFromString("2048.99"),
			PerformanceScore: 98,
			OwnerID:          "demo-user",
			IsPublic:         true,
		}
		office := &models.Build{
			ID:         "build-2",
			Name:       "Office box",
			UseCase:    models.UseCaseOffice,
			Components: models.BuildComponents{models.CategoryCPU: "core-i5-13400f"},
			OwnerID:    "someone-else",
		}
		require.NoError(t, s.CreateBuild(ctx, gaming))
		require.NoError(t, s.CreateBuild(ctx, office))
		assert.ErrorIs(t, s.CreateBuild(ctx, gaming), store.ErrConflict)

		got, err := s.GetBuild(ctx, "build-1")
		require.NoError(t, err)
		assert.Equal(t, "rtx-4090", got.Components[models.CategoryGPU])
		assert.True(t, gaming.TotalPrice.Equal(got.TotalPrice))
		assert.Equal(t, 98, got.PerformanceScore)

		all, err := s.ListBuilds(ctx, store.BuildFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		mine, err := s.ListBuilds(ctx, store.BuildFilter{OwnerID: "demo-user"})
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "build-1", mine[0].ID)

		public, err := s.ListBuilds(ctx, store.BuildFilter{PublicOnly: true})
		require.NoError(t, err)
		require.Len(t, public, 1)
		assert.Equal(t, "build-1", public[0].ID)

		got.Name = "AM5 gaming rig v2"
		got.Components[models.CategoryRAM] = "corsair-vengeance-ddr5-32"
		require.NoError(t, s.UpdateBuild(ctx, got))
		updated, err := s.GetBuild(ctx, "build-1")
		require.NoError(t, err)
		assert.Equal(t, "AM5 gaming rig v2", updated.Name)
		assert.Len(t, updated.Components, 3)

		assert.ErrorIs(t, s.UpdateBuild(ctx, &models.Build{ID: "missing", Name: "x"}), store.ErrNotFound)

		require.NoError(t, s.DeleteBuild(ctx, "build-2"))
		_, err = s.GetBuild(ctx, "build-2")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.DeleteBuild(ctx, "build-2"), store.ErrNotFound)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, open(t).Ping(context.Background()))
	})
}

func mustGPU(t *testing.T, c *models.Component) models.GPUSpecs {
	t.Helper()
	specs, err := models.DecodeSpecs(c.Category, c.Specifications)
	require.NoError(t, err)
	gpu, ok := specs.(models.GPUSpecs)
	require.True(t, ok)
	return gpu
}
