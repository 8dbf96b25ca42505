package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/auth"
	"github.com/SigNoz/pcparts-store/internal/build"
	"github.com/SigNoz/pcparts-store/internal/cart"
	"github.com/SigNoz/pcparts-store/internal/catalog"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/pricing"
	"github.com/SigNoz/pcparts-store/internal/services"
	"github.com/SigNoz/pcparts-store/internal/store/memory"
	"github.com/SigNoz/pcparts-store/pkg/config"
)

func newTestRouter(t *testing.T, priceURL string) *mux.Router {
	t.Helper()
	seed, err := catalog.Default()
	require.NoError(t, err)

	cfg := &config.Config{StoreBackend: config.BackendMemory}
	log := zap.NewNop()
	m := metrics.NewNoop("test")
	s := memory.New(seed)

	var client *pricing.Client
	if priceURL != "" {
		client = pricing.NewClient(priceURL, time.Second, log)
	}
	carts := cart.NewMemoryStorage()
	demo := models.User{ID: "demo-user", Email: "demo@pcparts.local", Name: "Demo User"}

	components := services.NewComponentService(s, m, log, time.Minute, nil)
	app := NewApp(cfg, s, m, log,
		components,
		services.NewBuildService(s, components, build.NewAggregator(nil), m, log),
		services.NewCartService(components, func(session string) cart.Storage {
			return cart.ForSession(carts, session)
		}, m, log),
		services.NewUserService(auth.NewIssuer("test-key", time.Hour), demo, log),
		services.NewPriceService(client, m, log),
	)

	r := mux.NewRouter()
	app.SetupRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, "")
	for _, path := range []string{"/health", "/api/health"} {
		rec := do(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy","backend":"memory"}`, rec.Body.String())
	}
}

func TestListComponents(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodGet, "/api/components?type=gpu", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	gpus := decode[[]models.ComponentResponse](t, rec)
	assert.Len(t, gpus, 3)
	for _, g := range gpus {
		assert.Equal(t, models.CategoryGPU, g.Category)
		assert.Equal(t, models.StockStatusFor(g.Stock), g.StockStatus)
	}

	rec = do(t, r, http.MethodGet, "/api/components?category=CPU", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ComponentResponse](t, rec), 4)

	rec = do(t, r, http.MethodGet, "/api/components?type=monitor", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetComponent(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodGet, "/api/components/rtx-4090", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[models.ComponentResponse](t, rec)
	assert.Equal(t, "rtx-4090", c.ID)
	assert.Equal(t, models.StockLow, c.StockStatus)
	assert.Contains(t, rec.Body.String(), `"price":1599`)

	rec = do(t, r, http.MethodGet, "/api/components/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[models.ErrorResponse](t, rec).Error, "not found")
}

func TestComponentAdministration(t *testing.T) {
	r := newTestRouter(t, "")

	newCase := map[string]any{
		"id":             "fractal-north",
		"name":           "Fractal Design North",
		"brand":          "Fractal Design",
		"category":       "case",
		"price":          139.99,
		"specifications": map[string]any{"formFactor": []string{"ATX", "Micro-ATX"}, "maxGpuLength": 355},
		"stock":          6,
		"rating":         4.7,
		"isActive":       true,
	}
	rec := do(t, r, http.MethodPost, "/api/components", newCase)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/api/components", newCase)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/components", map[string]any{"id": "x", "name": "X", "category": "monitor"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/search?q=fractal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]models.ComponentResponse](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, "fractal-north", found[0].ID)

	rec = do(t, r, http.MethodPatch, "/api/components/fractal-north", map[string]any{"stock": 0, "price": 129.99})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.ComponentResponse](t, rec)
	assert.Equal(t, models.StockOut, updated.StockStatus)
	assert.True(t, decimal.RequireFromString("129.99").Equal(updated.Price))

	rec = do(t, r, http.MethodPatch, "/api/components/fractal-north", map[string]any{"rating": 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodDelete, "/api/components/fractal-north", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/components/fractal-north", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/search?q=fractal", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListCategories(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]models.CategoryInfo](t, rec)
	require.Len(t, cats, 8)
	assert.Equal(t, models.CategoryGPU, cats[1].ID)
	assert.Equal(t, 3, cats[1].Count)
}

func TestSearch(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodGet, "/api/search?q=rtx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]models.ComponentResponse](t, rec)
	require.Len(t, results, 2)
	assert.Equal(t, "rtx-4090", results[0].ID)
	assert.Equal(t, "rtx-4080", results[1].ID)

	rec = do(t, r, http.MethodGet, "/api/search?q=a", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/api/search?q=am5&category=cooler", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range decode[[]models.ComponentResponse](t, rec) {
		assert.Equal(t, models.CategoryCooler, c.Category)
	}
}

func TestBuildLifecycle(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodPost, "/api/builds", map[string]any{
		"name":     "AM5 gaming rig",
		"category": "gaming",
		"userId":   "demo-user",
		"components": map[string]string{
			"cpu": "ryzen-7-7800x3d",
			"gpu": "rtx-4090",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Build](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.True(t, decimal.NewFromInt(2048).Equal(created.TotalPrice))
	assert.Equal(t, 95, created.PerformanceScore)

	rec = do(t, r, http.MethodGet, "/api/builds?userId=demo-user", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Build](t, rec), 1)

	rec = do(t, r, http.MethodGet, "/api/builds?userId=nobody", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, r, http.MethodPut, "/api/builds/"+created.ID, map[string]any{
		"name":       "AM5 workstation",
		"category":   "workstation",
		"userId":     "demo-user",
		"components": map[string]string{"cpu": "ryzen-9-7950x"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Build](t, rec)
	assert.Equal(t, models.UseCaseWorkstation, updated.UseCase)
	assert.Equal(t, 50, updated.PerformanceScore)

	rec = do(t, r, http.MethodGet, "/api/builds/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AM5 workstation", decode[models.Build](t, rec).Name)

	rec = do(t, r, http.MethodDelete, "/api/builds/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/builds/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBuildRejectsBadInput(t *testing.T) {
	r := newTestRouter(t, "")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"components": map[string]string{"cpu": "ryzen-7-7800x3d"}}},
		{"unknown use case", map[string]any{"name": "x", "category": "mining"}},
		{"unknown component", map[string]any{"name": "x", "components": map[string]string{"cpu": "missing"}}},
		{"wrong slot", map[string]any{"name": "x", "components": map[string]string{"gpu": "ryzen-7-7800x3d"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/api/builds", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/builds", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckBuild(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodPost, "/api/builds/check", map[string]any{
		"components": map[string]string{
			"cpu":         "core-i9-14900k",
			"motherboard": "asus-rog-strix-b650e-f",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[build.Summary](t, rec)
	assert.Equal(t, 2, summary.FilledSlots)
	assert.Equal(t, 8, summary.TotalSlots)
	assert.InDelta(t, 0.25, summary.Progress, 1e-9)
	assert.False(t, summary.Compatibility.Compatible)
	require.Len(t, summary.Compatibility.Issues, 1)
	assert.Contains(t, summary.Compatibility.Issues[0], "CPU socket mismatch")

	rec = do(t, r, http.MethodPost, "/api/builds/check", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[build.Summary](t, rec)
	assert.True(t, empty.Compatibility.Compatible)
	assert.Zero(t, empty.FilledSlots)
}

func TestCartFlow(t *testing.T) {
	r := newTestRouter(t, "")
	session := []string{"X-Session-ID", "session-1"}

	rec := do(t, r, http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/cart/items", models.AddToCartRequest{ComponentID: "rtx-4090", Quantity: 2}, session...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, r, http.MethodPost, "/api/cart/items", models.AddToCartRequest{ComponentID: "ryzen-7-7800x3d"}, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[models.CartResponse](t, rec)
	assert.Equal(t, 3, c.ItemCount)
	assert.True(t, decimal.NewFromInt(2*1599+449).Equal(c.Total))

	rec = do(t, r, http.MethodPost, "/api/cart/items", models.AddToCartRequest{ComponentID: "rtx-3060"}, session...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/cart", nil, "X-Session-ID", "session-2")
	assert.Zero(t, decode[models.CartResponse](t, rec).ItemCount)

	rec = do(t, r, http.MethodPut, "/api/cart/items/rtx-4090", models.UpdateCartItemRequest{Quantity: 0}, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	c = decode[models.CartResponse](t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "ryzen-7-7800x3d", c.Items[0].ID)

	rec = do(t, r, http.MethodDelete, "/api/cart/items/ryzen-7-7800x3d", nil, session...)
	assert.Zero(t, decode[models.CartResponse](t, rec).ItemCount)

	do(t, r, http.MethodPost, "/api/cart/items", models.AddToCartRequest{ComponentID: "evga-600-br"}, session...)
	rec = do(t, r, http.MethodDelete, "/api/cart", nil, session...)
	require.Equal(t, http.StatusOK, rec.Code)
	c = decode[models.CartResponse](t, rec)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
}

func TestAuth(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodPost, "/api/auth/login", models.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "me@example.com", Password: "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[models.LoginResponse](t, rec)
	assert.Equal(t, "demo-user", login.User.ID)
	require.NotEmpty(t, login.Token)

	rec = do(t, r, http.MethodGet, "/api/auth/user", nil, "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo@pcparts.local", decode[models.User](t, rec).Email)

	rec = do(t, r, http.MethodGet, "/api/auth/user", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo-user", decode[models.User](t, rec).ID)

	rec = do(t, r, http.MethodGet, "/api/auth/user", nil, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPricesWithoutCollaborator(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodGet, "/api/components/rtx-4090/prices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/api/components/rtx-4090/price-comparison", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := decode[pricing.Comparison](t, rec)
	assert.False(t, cmp.Available)
	assert.Equal(t, pricing.NoPricesMessage, cmp.Message)
}

func TestPricesProxyCollaborator(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/components/rtx-4090/prices", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"supplier":{"name":"A"},"price":1600,"shippingCost":0,"shippingDays":2,"stock":3},
			{"supplier":{"name":"B"},"price":1550,"shippingCost":10,"shippingDays":5,"stock":1}
		]`))
	}))
	defer upstream.Close()

	r := newTestRouter(t, upstream.URL)

	rec := do(t, r, http.MethodGet, "/api/components/rtx-4090/prices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.PriceOffer](t, rec), 2)

	rec = do(t, r, http.MethodGet, "/api/components/rtx-4090/price-comparison", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cmp := decode[pricing.Comparison](t, rec)
	require.True(t, cmp.Available)
	assert.True(t, cmp.Offers[0].BestPrice)
	assert.True(t, decimal.NewFromInt(1560).Equal(cmp.LowestTotal))
}

func TestPreflight(t *testing.T) {
	r := newTestRouter(t, "")

	rec := do(t, r, http.MethodOptions, "/api/cart/items", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
