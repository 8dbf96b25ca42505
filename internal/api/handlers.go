package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/auth"
	"github.com/SigNoz/pcparts-store/internal/logger"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/middleware"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/services"
	"github.com/SigNoz/pcparts-store/internal/store"
	"github.com/SigNoz/pcparts-store/pkg/config"
)

const (
	sessionHeader = "X-Session-ID"
	maxBodyBytes  = 1 << 20
)

// App holds application dependencies
type App struct {
	config           *config.Config
	store            store.Store
	metrics          *metrics.AppMetrics
	log              *zap.Logger
	componentService *services.ComponentService
	buildService     *services.BuildService
	cartService      *services.CartService
	userService      *services.UserService
	priceService     *services.PriceService
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	s store.Store,
	m *metrics.AppMetrics,
	log *zap.Logger,
	components *services.ComponentService,
	builds *services.BuildService,
	carts *services.CartService,
	users *services.UserService,
	prices *services.PriceService,
) *App {
	return &App{
		config:           cfg,
		store:            s,
		metrics:          m,
		log:              log,
		componentService: components,
		buildService:     builds,
		cartService:      carts,
		userService:      users,
		priceService:     prices,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware(a.log))
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.ErrorHandlerMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	api := r.PathPrefix("/api").Subrouter()

	// Components
	api.HandleFunc("/components", a.ListComponentsHandler).Methods("GET")
	api.HandleFunc("/components", a.CreateComponentHandler).Methods("POST")
	api.HandleFunc("/components/{id}", a.GetComponentHandler).Methods("GET")
	api.HandleFunc("/components/{id}", a.UpdateComponentHandler).Methods("PATCH")
	api.HandleFunc("/components/{id}", a.DeleteComponentHandler).Methods("DELETE")
	api.HandleFunc("/components/{id}/prices", a.ListPricesHandler).Methods("GET")
	api.HandleFunc("/components/{id}/price-comparison", a.PriceComparisonHandler).Methods("GET")
	api.HandleFunc("/categories", a.ListCategoriesHandler).Methods("GET")
	api.HandleFunc("/search", a.SearchHandler).Methods("GET")

	// Builds
	api.HandleFunc("/builds", a.ListBuildsHandler).Methods("GET")
	api.HandleFunc("/builds", a.CreateBuildHandler).Methods("POST")
	api.HandleFunc("/builds/check", a.CheckBuildHandler).Methods("POST")
	api.HandleFunc("/builds/{id}", a.GetBuildHandler).Methods("GET")
	api.HandleFunc("/builds/{id}", a.UpdateBuildHandler).Methods("PUT")
	api.HandleFunc("/builds/{id}", a.DeleteBuildHandler).Methods("DELETE")

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart", a.ClearCartHandler).Methods("DELETE")
	api.HandleFunc("/cart/items", a.AddToCartHandler).Methods("POST")
	api.HandleFunc("/cart/items/{id}", a.UpdateCartItemHandler).Methods("PUT")
	api.HandleFunc("/cart/items/{id}", a.RemoveFromCartHandler).Methods("DELETE")

	// Auth
	api.HandleFunc("/auth/user", a.CurrentUserHandler).Methods("GET")
	api.HandleFunc("/auth/login", a.LoginHandler).Methods("POST")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
	api.HandleFunc("/health", a.HealthHandler).Methods("GET")

	// Preflight requests need a matching route for the middleware to run
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "backend": a.config.StoreBackend})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "backend": a.config.StoreBackend})
}

// ListComponentsHandler handles GET /api/components[?type=|category=]
func (a *App) ListComponentsHandler(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("type")
	if category == "" {
		category = r.URL.Query().Get("category")
	}

	components, err := a.componentService.ListComponents(r.Context(), models.Category(strings.ToLower(category)))
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	out := make([]models.ComponentResponse, len(components))
	for i, c := range components {
		out[i] = models.NewComponentResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetComponentHandler handles GET /api/components/{id}
func (a *App) GetComponentHandler(w http.ResponseWriter, r *http.Request) {
	c, err := a.componentService.GetComponent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewComponentResponse(*c))
}

// CreateComponentHandler handles POST /api/components
func (a *App) CreateComponentHandler(w http.ResponseWriter, r *http.Request) {
	var c models.Component
	if err := decodeJSON(w, r, &c); err != nil {
		a.respondError(w, r, err)
		return
	}

	if err := a.componentService.CreateComponent(r.Context(), &c); err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewComponentResponse(c))
}

// UpdateComponentHandler handles PATCH /api/components/{id}
func (a *App) UpdateComponentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateComponentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	c, err := a.componentService.UpdateComponent(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewComponentResponse(*c))
}

// DeleteComponentHandler handles DELETE /api/components/{id}
func (a *App) DeleteComponentHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.componentService.DeleteComponent(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPricesHandler handles GET /api/components/{id}/prices
func (a *App) ListPricesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.priceService.Offers(r.Context(), mux.Vars(r)["id"]))
}

// PriceComparisonHandler handles GET /api/components/{id}/price-comparison
func (a *App) PriceComparisonHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.priceService.Comparison(r.Context(), mux.Vars(r)["id"]))
}

// ListCategoriesHandler handles GET /api/categories
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := a.componentService.ListCategories(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// SearchHandler handles GET /api/search?q=&category=
func (a *App) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := a.componentService.Search(r.Context(), q.Get("q"), models.Category(strings.ToLower(q.Get("category"))))
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	out := make([]models.ComponentResponse, len(results))
	for i, c := range results {
		out[i] = models.NewComponentResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListBuildsHandler handles GET /api/builds[?userId=]
func (a *App) ListBuildsHandler(w http.ResponseWriter, r *http.Request) {
	builds, err := a.buildService.ListBuilds(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if builds == nil {
		builds = []models.Build{}
	}
	writeJSON(w, http.StatusOK, builds)
}

// GetBuildHandler handles GET /api/builds/{id}
func (a *App) GetBuildHandler(w http.ResponseWriter, r *http.Request) {
	b, err := a.buildService.GetBuild(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// CreateBuildHandler handles POST /api/builds
func (a *App) CreateBuildHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBuildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	b, err := a.buildService.CreateBuild(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// UpdateBuildHandler handles PUT /api/builds/{id}
func (a *App) UpdateBuildHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBuildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	b, err := a.buildService.UpdateBuild(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBuildHandler handles DELETE /api/builds/{id}
func (a *App) DeleteBuildHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.buildService.DeleteBuild(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckBuildHandler handles POST /api/builds/check
func (a *App) CheckBuildHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CheckBuildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	summary, err := a.buildService.Check(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetCartHandler handles GET /api/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.cartService.GetCart(r.Context(), session))
}

// AddToCartHandler handles POST /api/cart/items
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}

	var req models.AddToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	if req.ComponentID == "" {
		writeError(w, http.StatusBadRequest, "componentId is required")
		return
	}

	cart, err := a.cartService.AddItem(r.Context(), session, req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// UpdateCartItemHandler handles PUT /api/cart/items/{id}
func (a *App) UpdateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}

	var req models.UpdateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.cartService.UpdateItem(r.Context(), session, mux.Vars(r)["id"], req.Quantity))
}

// RemoveFromCartHandler handles DELETE /api/cart/items/{id}
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.cartService.RemoveItem(r.Context(), session, mux.Vars(r)["id"]))
}

// ClearCartHandler handles DELETE /api/cart
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.cartService.ClearCart(r.Context(), session))
}

// CurrentUserHandler handles GET /api/auth/user
func (a *App) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	user, err := a.userService.CurrentUser(r.Context(), token)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// LoginHandler handles POST /api/auth/login
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}

	resp, err := a.userService.Login(r.Context(), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := strings.TrimSpace(r.Header.Get(sessionHeader))
	if session == "" {
		writeError(w, http.StatusBadRequest, sessionHeader+" header is required")
		return "", false
	}
	return session, true
}

// respondError maps service errors onto status codes. Unknown errors are logged and hidden.
func (a *App) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
	default:
		logger.FromContext(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", store.ErrInvalid)
		}
		return fmt.Errorf("%w: invalid request body: %v", store.ErrInvalid, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
