package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/cart"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/store"
)

// StorageFactory returns the cart storage of one session
type StorageFactory func(session string) cart.Storage

// CartService handles session carts
type CartService struct {
	components *ComponentService
	storageFor StorageFactory
	metrics    *metrics.AppMetrics
	log        *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(components *ComponentService, storageFor StorageFactory, m *metrics.AppMetrics, log *zap.Logger) *CartService {
	return &CartService{
		components: components,
		storageFor: storageFor,
		metrics:    m,
		log:        log,
	}
}

func (s *CartService) open(ctx context.Context, session string) *cart.Store {
	return cart.New(ctx, s.storageFor(session), cart.WithLogger(s.log.With(zap.String("session_id", session))))
}

// GetCart returns the session's cart with its totals
func (s *CartService) GetCart(ctx context.Context, session string) models.CartResponse {
	return s.open(ctx, session).Snapshot()
}

// AddItem adds an active component to the cart
func (s *CartService) AddItem(ctx context.Context, session string, req models.AddToCartRequest) (models.CartResponse, error) {
	c, err := s.components.lookup(ctx, req.ComponentID)
	if err != nil {
		return models.CartResponse{}, err
	}
	if !c.IsActive {
		return models.CartResponse{}, fmt.Errorf("component %s: %w", c.ID, store.ErrNotFound)
	}

	cs := s.open(ctx, session)
	cs.AddItem(ctx, *c, req.Quantity)
	return s.done(ctx, "add", cs), nil
}

// UpdateItem sets the quantity of a cart entry; zero or less removes it
func (s *CartService) UpdateItem(ctx context.Context, session, id string, quantity int) models.CartResponse {
	cs := s.open(ctx, session)
	cs.UpdateQuantity(ctx, id, quantity)
	return s.done(ctx, "update", cs)
}

// RemoveItem drops a cart entry
func (s *CartService) RemoveItem(ctx context.Context, session, id string) models.CartResponse {
	cs := s.open(ctx, session)
	cs.RemoveItem(ctx, id)
	return s.done(ctx, "remove", cs)
}

// ClearCart empties the cart
func (s *CartService) ClearCart(ctx context.Context, session string) models.CartResponse {
	cs := s.open(ctx, session)
	cs.Clear(ctx)
	return s.done(ctx, "clear", cs)
}

func (s *CartService) done(ctx context.Context, operation string, cs *cart.Store) models.CartResponse {
	snapshot := cs.Snapshot()
	s.metrics.CartMutations.Add(ctx, 1, s.metrics.Attrs(attribute.String("operation", operation)))
	s.metrics.CartItemsCount.Record(ctx, int64(snapshot.ItemCount), s.metrics.Attrs())
	return snapshot
}
