package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/auth"
	"github.com/SigNoz/pcparts-store/internal/build"
	"github.com/SigNoz/pcparts-store/internal/cache"
	"github.com/SigNoz/pcparts-store/internal/cart"
	"github.com/SigNoz/pcparts-store/internal/catalog"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/pricing"
	"github.com/SigNoz/pcparts-store/internal/store"
	"github.com/SigNoz/pcparts-store/internal/store/memory"
)

var testMetrics = metrics.NewNoop("test")

func newComponentService(t *testing.T, lists *cache.ComponentLists) (*ComponentService, store.Store) {
	t.Helper()
	seed, err := catalog.Default()
	require.NoError(t, err)
	s := memory.New(seed)
	return NewComponentService(s, testMetrics, zap.NewNop(), time.Minute, lists), s
}

func newLists(t *testing.T) (*cache.ComponentLists, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewComponentLists(client, time.Minute), mr
}

func TestListComponentsReadsThroughRedis(t *testing.T) {
	ctx := context.Background()
	lists, mr := newLists(t)
	svc, s := newComponentService(t, lists)

	gpus, err := svc.ListComponents(ctx, models.CategoryGPU)
	require.NoError(t, err)
	assert.Len(t, gpus, 3)
	assert.True(t, mr.Exists(cache.ListKey(models.CategoryGPU, true)))

	// a write behind the service's back is invisible until the cache is invalidated
	require.NoError(t, s.DeleteComponent(ctx, "rx-7900-xtx"))
	gpus, err = svc.ListComponents(ctx, models.CategoryGPU)
	require.NoError(t, err)
	assert.Len(t, gpus, 3)

	require.NoError(t, svc.DeleteComponent(ctx, "rtx-4080"))
	assert.False(t, mr.Exists(cache.ListKey(models.CategoryGPU, true)))
	gpus, err = svc.ListComponents(ctx, models.CategoryGPU)
	require.NoError(t, err)
	require.Len(t, gpus, 1)
	assert.Equal(t, "rtx-4090", gpus[0].ID)
}

func TestListComponentsFallsBackWhenRedisIsDown(t *testing.T) {
	lists, mr := newLists(t)
	svc, _ := newComponentService(t, lists)
	mr.Close()

	all, err := svc.ListComponents(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, all)
	for _, c := range all {
		assert.True(t, c.IsActive)
	}
}

func TestListComponentsRejectsUnknownCategory(t *testing.T) {
	svc, _ := newComponentService(t, nil)
	_, err := svc.ListComponents(context.Background(), "monitor")
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestGetComponentUsesLocalCache(t *testing.T) {
	ctx := context.Background()
	svc, s := newComponentService(t, nil)

	c, err := svc.GetComponent(ctx, "rtx-4090")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Stock)

	stock := 9
	_, err = s.UpdateComponent(ctx, "rtx-4090", store.ComponentUpdate{Stock: &stock})
	require.NoError(t, err)
	c, err = svc.GetComponent(ctx, "rtx-4090")
	require.NoError(t, err)
	assert.Equal(t, 4, c.Stock, "served from cache")

	stock = 12
	_, err = svc.UpdateComponent(ctx, "rtx-4090", store.ComponentUpdate{Stock: &stock})
	require.NoError(t, err)
	c, err = svc.GetComponent(ctx, "rtx-4090")
	require.NoError(t, err)
	assert.Equal(t, 12, c.Stock)

	_, err = svc.GetComponent(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestComponentCacheExpires(t *testing.T) {
	c := NewComponentCache(time.Millisecond)
	c.put(models.Component{ID: "a"})
	_, ok := c.get("a")
	assert.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	_, ok = c.get("a")
	assert.False(t, ok)
}

func TestCreateComponentValidates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newComponentService(t, nil)

	err := svc.CreateComponent(ctx, &models.Component{ID: "x", Name: "X", Category: models.CategoryGPU, Rating: 6})
	assert.ErrorIs(t, err, store.ErrInvalid)

	err = svc.CreateComponent(ctx, &models.Component{ID: "rtx-4090", Name: "dup", Category: models.CategoryGPU})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestSearchIndexFollowsCatalogWrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newComponentService(t, nil)

	results, err := svc.Search(ctx, "rtx", "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, svc.CreateComponent(ctx, &models.Component{
		ID:       "rtx-4070",
		Name:     "NVIDIA GeForce RTX 4070",
		Brand:    "NVIDIA",
		Category: models.CategoryGPU,
		Price:    decimal.NewFromInt(599),
		Stock:    10,
		Rating:   4.5,
		IsActive: true,
	}))
	results, err = svc.Search(ctx, "rtx", "")
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = svc.Search(ctx, "rtx", models.CategoryCPU)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = svc.Search(ctx, "rtx", "monitor")
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestSearchCoversCatalogPastRowLimit(t *testing.T) {
	ctx := context.Background()
	var seed []models.Component
	for i := 0; i < 150; i++ {
		seed = append(seed, models.Component{
			ID:       fmt.Sprintf("drive-%03d", i),
			Name:     fmt.Sprintf("Drive %03d", i),
			Brand:    "Generic",
			Category: models.CategoryStorage,
			Price:    decimal.NewFromInt(40),
			Stock:    10,
			IsActive: true,
		})
	}
	seed = append(seed, models.Component{
		ID:       "zeta-special-drive",
		Name:     "Zeta Special Drive",
		Brand:    "Zeta",
		Category: models.CategoryStorage,
		Price:    decimal.NewFromInt(90),
		Stock:    3,
		IsActive: true,
	})
	svc := NewComponentService(memory.New(seed), testMetrics, zap.NewNop(), time.Minute, nil)

	results, err := svc.Search(ctx, "zeta special", "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "zeta-special-drive", results[0].ID)
}

func TestSelection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newComponentService(t, nil)

	sel, err := svc.Selection(ctx, models.BuildComponents{
		models.CategoryCPU: "ryzen-7-7800x3d",
		models.CategoryGPU: "rtx-4090",
	})
	require.NoError(t, err)
	assert.Equal(t, "rtx-4090", sel[models.CategoryGPU].ID)

	_, err = svc.Selection(ctx, models.BuildComponents{models.CategoryCPU: "missing"})
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = svc.Selection(ctx, models.BuildComponents{models.CategoryGPU: "ryzen-7-7800x3d"})
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = svc.Selection(ctx, models.BuildComponents{"monitor": "rtx-4090"})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func newBuildService(t *testing.T) *BuildService {
	t.Helper()
	comps, s := newComponentService(t, nil)
	return NewBuildService(s, comps, build.NewAggregator(nil), testMetrics, zap.NewNop())
}

func TestCreateBuildPricesAndScores(t *testing.T) {
	ctx := context.Background()
	svc := newBuildService(t)

	b, err := svc.CreateBuild(ctx, models.CreateBuildRequest{
		Name:    "Streaming box",
		UseCase: models.UseCaseStreaming,
		UserID:  "demo-user",
		Components: models.BuildComponents{
			models.CategoryCPU: "ryzen-7-7800x3d",
			models.CategoryGPU: "rtx-4090",
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.True(t, decimal.NewFromInt(2048).Equal(b.TotalPrice))
	assert.Equal(t, 35+48, b.PerformanceScore)

	office, err := svc.CreateBuild(ctx, models.CreateBuildRequest{
		Name:       "Office",
		UseCase:    models.UseCaseOffice,
		Components: models.BuildComponents{models.CategoryCPU: "core-i5-13400f"},
	})
	require.NoError(t, err)
	assert.Equal(t, 28, office.PerformanceScore)

	custom, err := svc.CreateBuild(ctx, models.CreateBuildRequest{Name: "Empty"})
	require.NoError(t, err)
	assert.Equal(t, models.UseCaseCustom, custom.UseCase)
	assert.True(t, custom.TotalPrice.IsZero())

	mine, err := svc.ListBuilds(ctx, "demo-user")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)

	all, err := svc.ListBuilds(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCreateBuildRejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	svc := newBuildService(t)

	_, err := svc.CreateBuild(ctx, models.CreateBuildRequest{Name: "  "})
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = svc.CreateBuild(ctx, models.CreateBuildRequest{Name: "x", UseCase: "mining"})
	assert.ErrorIs(t, err, store.ErrInvalid)

	_, err = svc.CreateBuild(ctx, models.CreateBuildRequest{
		Name:       "x",
		Components: models.BuildComponents{models.CategoryCPU: "missing"},
	})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestUpdateAndDeleteBuild(t *testing.T) {
	ctx := context.Background()
	svc := newBuildService(t)

	b, err := svc.CreateBuild(ctx, models.CreateBuildRequest{
		Name:       "First",
		UserID:     "alice",
		Components: models.BuildComponents{models.CategoryCPU: "ryzen-9-7950x"},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateBuild(ctx, b.ID, models.CreateBuildRequest{
		Name:       "Second",
		UseCase:    models.UseCaseWorkstation,
		Components: models.BuildComponents{models.CategoryCPU: "ryzen-9-7950x", models.CategoryRAM: "corsair-vengeance-ddr5-32"},
	})
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.ID)
	assert.Equal(t, "Second", updated.Name)
	assert.Equal(t, 50, updated.PerformanceScore)
	assert.True(t, decimal.RequireFromString("718.99").Equal(updated.TotalPrice))
	assert.Equal(t, "alice", updated.OwnerID, "update without userId keeps the owner")

	mine, err := svc.ListBuilds(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Second", mine[0].Name)

	_, err = svc.UpdateBuild(ctx, "missing", models.CreateBuildRequest{Name: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, svc.DeleteBuild(ctx, b.ID))
	_, err = svc.GetBuild(ctx, b.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCheckBuild(t *testing.T) {
	svc := newBuildService(t)

	summary, err := svc.Check(context.Background(), models.CheckBuildRequest{
		Components: models.BuildComponents{
			models.CategoryGPU:  "rtx-4090",
			models.CategoryCase: "nzxt-h510-flow",
		},
	})
	require.NoError(t, err)
	assert.False(t, summary.Compatibility.Compatible)
	assert.Len(t, summary.Compatibility.Issues, 1)
	assert.Equal(t, 2, summary.FilledSlots)
}

func newCartService(t *testing.T) (*CartService, store.Store) {
	t.Helper()
	comps, s := newComponentService(t, nil)
	carts := cart.NewMemoryStorage()
	return NewCartService(comps, func(session string) cart.Storage {
		return cart.ForSession(carts, session)
	}, testMetrics, zap.NewNop()), s
}

func TestCartService(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCartService(t)

	c, err := svc.AddItem(ctx, "a", models.AddToCartRequest{ComponentID: "noctua-nh-d15", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, c.ItemCount)
	assert.True(t, decimal.RequireFromString("219.90").Equal(c.Total))

	c, err = svc.AddItem(ctx, "a", models.AddToCartRequest{ComponentID: "noctua-nh-d15"})
	require.NoError(t, err)
	assert.Equal(t, 3, c.ItemCount)
	require.Len(t, c.Items, 1)

	assert.Zero(t, svc.GetCart(ctx, "b").ItemCount)

	_, err = svc.AddItem(ctx, "a", models.AddToCartRequest{ComponentID: "rtx-3060"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.AddItem(ctx, "a", models.AddToCartRequest{ComponentID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	c = svc.UpdateItem(ctx, "a", "noctua-nh-d15", 1)
	assert.Equal(t, 1, c.ItemCount)

	c = svc.RemoveItem(ctx, "a", "noctua-nh-d15")
	assert.Empty(t, c.Items)

	_, err = svc.AddItem(ctx, "a", models.AddToCartRequest{ComponentID: "rtx-4090"})
	require.NoError(t, err)
	c = svc.ClearCart(ctx, "a")
	assert.Empty(t, c.Items)
	assert.Zero(t, svc.GetCart(ctx, "a").ItemCount)
}

func TestCartKeepsPriceSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, s := newCartService(t)

	_, err := svc.AddItem(ctx, "a", models.AddToCartRequest{ComponentID: "evga-600-br", Quantity: 1})
	require.NoError(t, err)
	before := svc.GetCart(ctx, "a").Total

	price := decimal.NewFromInt(1)
	_, err = s.UpdateComponent(ctx, "evga-600-br", store.ComponentUpdate{Price: &price})
	require.NoError(t, err)
	assert.True(t, before.Equal(svc.GetCart(ctx, "a").Total))
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	demo := models.User{ID: "demo-user", Email: "demo@pcparts.local", Name: "Demo User"}
	svc := NewUserService(auth.NewIssuer("k", time.Hour), demo, zap.NewNop())

	_, err := svc.Login(ctx, models.LoginRequest{Email: " "})
	assert.ErrorIs(t, err, store.ErrInvalid)

	resp, err := svc.Login(ctx, models.LoginRequest{Email: "someone@example.com"})
	require.NoError(t, err)
	assert.Equal(t, demo.ID, resp.User.ID)

	u, err := svc.CurrentUser(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, demo.Email, u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	u, err = svc.CurrentUser(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, demo.ID, u.ID)

	_, err = svc.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPriceServiceWithoutClient(t *testing.T) {
	svc := NewPriceService(nil, testMetrics, zap.NewNop())
	assert.Empty(t, svc.Offers(context.Background(), "rtx-4090"))
	assert.NotNil(t, svc.Offers(context.Background(), "rtx-4090"))
	assert.False(t, svc.Comparison(context.Background(), "rtx-4090").Available)
}

func TestPriceServiceSwallowsUpstreamFailures(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	svc := NewPriceService(pricing.NewClient(upstream.URL, time.Second, zap.NewNop()), testMetrics, zap.NewNop())
	offers := svc.Offers(context.Background(), "rtx-4090")
	assert.NotNil(t, offers)
	assert.Empty(t, offers)

	cmp := svc.Comparison(context.Background(), "rtx-4090")
	assert.False(t, cmp.Available)
	assert.Equal(t, pricing.NoPricesMessage, cmp.Message)
}
