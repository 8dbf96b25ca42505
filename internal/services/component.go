package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/build"
	"github.com/SigNoz/pcparts-store/internal/cache"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/search"
	"github.com/SigNoz/pcparts-store/internal/store"
)

// ComponentCache holds single components for a short TTL
type ComponentCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]cachedComponent
}

type cachedComponent struct {
	component models.Component
	expires   time.Time
}

// NewComponentCache returns an empty cache whose entries live for ttl
func NewComponentCache(ttl time.Duration) *ComponentCache {
	return &ComponentCache{
		ttl:   ttl,
		items: make(map[string]cachedComponent),
	}
}

func (c *ComponentCache) get(id string) (models.Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.items[id]
	if !ok || time.Now().After(cached.expires) {
		return models.Component{}, false
	}
	return cached.component, true
}

func (c *ComponentCache) put(comp models.Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[comp.ID] = cachedComponent{component: comp, expires: time.Now().Add(c.ttl)}
}

func (c *ComponentCache) drop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// ComponentService handles catalog reads, administrative writes and search
type ComponentService struct {
	store   store.Store
	metrics *metrics.AppMetrics
	log     *zap.Logger
	cache   *ComponentCache
	lists   *cache.ComponentLists

	mu    sync.Mutex
	index *search.Index
}

// NewComponentService creates a new component service. lists may be nil when Redis is not configured.
func NewComponentService(s store.Store, m *metrics.AppMetrics, log *zap.Logger, ttl time.Duration, lists *cache.ComponentLists) *ComponentService {
	return &ComponentService{
		store:   s,
		metrics: m,
		log:     log,
		cache:   NewComponentCache(ttl),
		lists:   lists,
	}
}

// ListComponents returns the active components, optionally of one category
func (s *ComponentService) ListComponents(ctx context.Context, category models.Category) ([]models.Component, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", store.ErrInvalid, category)
	}

	key := cache.ListKey(category, true)
	if s.lists != nil {
		components, err := s.lists.Get(ctx, key)
		if err == nil {
			s.metrics.RecordCache(ctx, "redis", true)
			return components, nil
		}
		s.metrics.RecordCache(ctx, "redis", false)
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("Component cache read failed, falling back to store", zap.Error(err))
		}
	}

	components, err := s.store.ListComponents(ctx, store.ComponentFilter{Category: category, ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	if s.lists != nil {
		if err := s.lists.Set(ctx, key, components); err != nil {
			s.log.Warn("Failed to populate component cache", zap.Error(err))
		}
	}
	return components, nil
}

// GetComponent returns a component by id, served from the TTL cache when fresh
func (s *ComponentService) GetComponent(ctx context.Context, id string) (*models.Component, error) {
	c, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	attrs := s.metrics.Attrs(
		attribute.String("component_id", c.ID),
		attribute.String("component_category", string(c.Category)),
	)
	s.metrics.ComponentsViewed.Add(ctx, 1, attrs)
	s.metrics.InventoryLevel.Record(ctx, int64(c.Stock), attrs)

	return c, nil
}

func (s *ComponentService) lookup(ctx context.Context, id string) (*models.Component, error) {
	c, hit := s.cache.get(id)
	s.metrics.RecordCache(ctx, "local", hit)
	if hit {
		return &c, nil
	}
	fetched, err := s.store.GetComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.put(*fetched)
	return fetched, nil
}

// CreateComponent validates and stores a new component
func (s *ComponentService) CreateComponent(ctx context.Context, c *models.Component) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	if err := s.store.CreateComponent(ctx, c); err != nil {
		return err
	}
	s.catalogChanged(ctx, c.ID)
	s.log.Info("Component created", zap.String("component_id", c.ID), zap.String("category", string(c.Category)))
	return nil
}

// UpdateComponent changes the price, stock or rating of a component
func (s *ComponentService) UpdateComponent(ctx context.Context, id string, u store.ComponentUpdate) (*models.Component, error) {
	c, err := s.store.UpdateComponent(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.catalogChanged(ctx, id)
	return c, nil
}

// DeleteComponent removes a component from the catalog
func (s *ComponentService) DeleteComponent(ctx context.Context, id string) error {
	if err := s.store.DeleteComponent(ctx, id); err != nil {
		return err
	}
	s.catalogChanged(ctx, id)
	s.log.Info("Component deleted", zap.String("component_id", id))
	return nil
}

// ListCategories returns every category with its active component count
func (s *ComponentService) ListCategories(ctx context.Context) ([]models.CategoryInfo, error) {
	return s.store.ListCategories(ctx)
}

// Search runs a query against the search index, building it on first use
func (s *ComponentService) Search(ctx context.Context, query string, category models.Category) ([]models.Component, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", store.ErrInvalid, category)
	}

	idx, err := s.searchIndex(ctx)
	if err != nil {
		return nil, err
	}
	results := idx.Search(query, search.Options{Category: category})

	s.metrics.SearchesTotal.Add(ctx, 1, s.metrics.Attrs(
		attribute.String("component_category", string(category)),
		attribute.Bool("has_results", len(results) > 0),
	))
	return results, nil
}

// Selection resolves the component ids of a build into components.
// Unknown ids are reported as invalid input.
func (s *ComponentService) Selection(ctx context.Context, ids models.BuildComponents) (build.Selection, error) {
	if err := ids.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	sel := make(build.Selection, len(ids))
	for slot, id := range ids {
		c, err := s.lookup(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown component %q", store.ErrInvalid, id)
		}
		if err != nil {
			return nil, err
		}
		if c.Category != slot {
			return nil, fmt.Errorf("%w: component %s is a %s, not a %s", store.ErrInvalid, id, c.Category, slot)
		}
		sel[slot] = *c
	}
	return sel, nil
}

func (s *ComponentService) searchIndex(ctx context.Context) (*search.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index, nil
	}
	components, err := s.store.ListComponents(ctx, store.ComponentFilter{ActiveOnly: true, Unbounded: true})
	if err != nil {
		return nil, err
	}
	s.index = search.BuildIndex(components)
	s.log.Debug("Search index rebuilt", zap.Int("components", s.index.Len()))
	return s.index, nil
}

// catalogChanged drops every cached view of the catalog
func (s *ComponentService) catalogChanged(ctx context.Context, id string) {
	s.cache.drop(id)

	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()

	if s.lists != nil {
		if err := s.lists.Invalidate(ctx); err != nil {
			s.log.Warn("Failed to invalidate component cache", zap.Error(err))
		}
	}
}
