// Package cart holds the shopping cart and its persistence port.
package cart

import (
	"context"
	"encoding/json"

	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StorageKey is the key the serialized cart is stored under
const StorageKey = "pc-store-cart"

// Storage persists the serialized cart
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Clear(ctx context.Context, key string) error
}

// Store maps component ids to cart items. Every mutation writes the whole cart
// through to storage; write failures are logged and otherwise ignored.
type Store struct {
	storage Storage
	logger  *zap.Logger
	items   []models.CartItem
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used to report storage failures
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a store hydrated from storage. Missing or unreadable data yields an empty cart.
func New(ctx context.Context, storage Storage, opts ...Option) *Store {
	s := &Store{storage: storage, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	data, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Warn("Failed to read cart from storage", zap.Error(err))
		return
	}
	if !ok || len(data) == 0 {
		return
	}

	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("Discarding unreadable cart", zap.Error(err))
		return
	}
	for _, item := range items {
		if item.ID == "" || item.Quantity <= 0 {
			continue
		}
		s.items = append(s.items, item)
	}
}

// AddItem adds qty units of a component, snapshotting its name, price, image and
// category. A quantity below one counts as one.
func (s *Store) AddItem(ctx context.Context, c models.Component, qty int) {
	if qty <= 0 {
		qty = 1
	}
	if i := s.find(c.ID); i >= 0 {
		s.items[i].Quantity += qty
	} else {
		s.items = append(s.items, models.CartItem{
			ID:             c.ID,
			Name:           c.Name,
			Price:          c.Price,
			Quantity:       qty,
			Image:          c.Image,
			Category:       c.Category,
			Specifications: c.Specifications,
		})
	}
	s.persist(ctx)
}

// UpdateQuantity sets the quantity of an item; zero or less removes it
func (s *Store) UpdateQuantity(ctx context.Context, id string, qty int) {
	if qty <= 0 {
		s.RemoveItem(ctx, id)
		return
	}
	i := s.find(id)
	if i < 0 {
		return
	}
	s.items[i].Quantity = qty
	s.persist(ctx)
}

// RemoveItem deletes an item; absent ids are ignored
func (s *Store) RemoveItem(ctx context.Context, id string) {
	i := s.find(id)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persist(ctx)
}

// Clear empties the cart
func (s *Store) Clear(ctx context.Context) {
	s.items = nil
	if err := s.storage.Clear(ctx, StorageKey); err != nil {
		s.logger.Warn("Failed to clear cart storage", zap.Error(err))
	}
}

// Get returns the item for id
func (s *Store) Get(id string) (models.CartItem, bool) {
	if i := s.find(id); i >= 0 {
		return s.items[i], true
	}
	return models.CartItem{}, false
}

// Items returns a copy of the items in insertion order
func (s *Store) Items() []models.CartItem {
	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Total is the sum of price times quantity
func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ItemCount is the sum of quantities
func (s *Store) ItemCount() int {
	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

// Snapshot returns the items together with their totals
func (s *Store) Snapshot() models.CartResponse {
	return models.CartResponse{
		Items:     s.Items(),
		Total:     s.Total(),
		ItemCount: s.ItemCount(),
	}
}

func (s *Store) find(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []models.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.logger.Warn("Failed to encode cart", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, StorageKey, data); err != nil {
		s.logger.Warn("Failed to persist cart", zap.Error(err))
	}
}
