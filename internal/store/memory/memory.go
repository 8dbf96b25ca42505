// Package memory is the in-process store backend, seeded from the catalog.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/store"
)

// Store keeps components and builds in maps guarded by a RWMutex
type Store struct {
	mu         sync.RWMutex
	components map[string]models.Component
	builds     map[string]models.Build
	now        func() time.Time
}

// New returns a store seeded with the given components
func New(seed []models.Component) *Store {
	s := &Store{
		components: make(map[string]models.Component, len(seed)),
		builds:     make(map[string]models.Build),
		now:        time.Now,
	}
	for _, c := range seed {
		s.components[c.ID] = cloneComponent(c)
	}
	return s
}

// stored values never share maps or slices with callers
func cloneComponent(c models.Component) models.Component {
	c.Specifications = maps.Clone(c.Specifications)
	c.KeyFeatures = slices.Clone(c.KeyFeatures)
	return c
}

func cloneBuild(b models.Build) models.Build {
	b.Components = maps.Clone(b.Components)
	return b
}

var _ store.Store = (*Store)(nil)

func (s *Store) ListComponents(_ context.Context, f store.ComponentFilter) ([]models.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Component, 0, len(s.components))
	for _, c := range s.components {
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.ActiveOnly && !c.IsActive {
			continue
		}
		out = append(out, cloneComponent(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit := store.Limit(f.Limit); !f.Unbounded && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetComponent(_ context.Context, id string) (*models.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.components[id]
	if !ok {
		return nil, fmt.Errorf("component %s: %w", id, store.ErrNotFound)
	}
	c = cloneComponent(c)
	return &c, nil
}

func (s *Store) CreateComponent(_ context.Context, c *models.Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.components[c.ID]; exists {
		return fmt.Errorf("component %s: %w", c.ID, store.ErrConflict)
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.components[c.ID] = cloneComponent(*c)
	return nil
}

func (s *Store) UpdateComponent(_ context.Context, id string, u store.ComponentUpdate) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.components[id]
	if !ok {
		return nil, fmt.Errorf("component %s: %w", id, store.ErrNotFound)
	}
	if err := store.ApplyUpdate(&c, u); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()
	s.components[id] = c
	c = cloneComponent(c)
	return &c, nil
}

func (s *Store) DeleteComponent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.components[id]; !ok {
		return fmt.Errorf("component %s: %w", id, store.ErrNotFound)
	}
	delete(s.components, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]models.CategoryInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Category]int)
	for _, c := range s.components {
		if c.IsActive {
			counts[c.Category]++
		}
	}
	return store.Categories(counts), nil
}

func (s *Store) ListBuilds(_ context.Context, f store.BuildFilter) ([]models.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Build, 0, len(s.builds))
	for _, b := range s.builds {
		if f.OwnerID != "" && b.OwnerID != f.OwnerID {
			continue
		}
		if f.PublicOnly && !b.IsPublic {
			continue
		}
		out = append(out, cloneBuild(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit := store.Limit(f.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetBuild(_ context.Context, id string) (*models.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.builds[id]
	if !ok {
		return nil, fmt.Errorf("build %s: %w", id, store.ErrNotFound)
	}
	b = cloneBuild(b)
	return &b, nil
}

func (s *Store) CreateBuild(_ context.Context, b *models.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.builds[b.ID]; exists {
		return fmt.Errorf("build %s: %w", b.ID, store.ErrConflict)
	}
	now := s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	s.builds[b.ID] = cloneBuild(*b)
	return nil
}

func (s *Store) UpdateBuild(_ context.Context, b *models.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.builds[b.ID]
	if !ok {
		return fmt.Errorf("build %s: %w", b.ID, store.ErrNotFound)
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = s.now()
	s.builds[b.ID] = cloneBuild(*b)
	return nil
}

func (s *Store) DeleteBuild(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.builds[id]; !ok {
		return fmt.Errorf("build %s: %w", id, store.ErrNotFound)
	}
	delete(s.builds, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
