// Package store defines the storage port shared by every backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/SigNoz/pcparts-store/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a record with the same id already exists
	ErrConflict = errors.New("already exists")
	// ErrInvalid is returned when a record fails validation
	ErrInvalid = errors.New("invalid record")
)

// DefaultLimit is the fixed row limit applied to list queries
const DefaultLimit = 100

// ComponentFilter narrows ListComponents with equality filters
type ComponentFilter struct {
	Category   models.Category
	ActiveOnly bool
	Limit      int
	// Unbounded skips the row limit; used to build the search index
	Unbounded bool
}

// BuildFilter narrows ListBuilds with equality filters
type BuildFilter struct {
	OwnerID    string
	PublicOnly bool
	Limit      int
}

// ComponentUpdate carries the administrative fields of a component
type ComponentUpdate = models.UpdateComponentRequest

// Store is the CRUD port implemented by the memory, database/sql and gorm backends
type Store interface {
	ListComponents(ctx context.Context, f ComponentFilter) ([]models.Component, error)
	GetComponent(ctx context.Context, id string) (*models.Component, error)
	CreateComponent(ctx context.Context, c *models.Component) error
	UpdateComponent(ctx context.Context, id string, u ComponentUpdate) (*models.Component, error)
	DeleteComponent(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]models.CategoryInfo, error)

	ListBuilds(ctx context.Context, f BuildFilter) ([]models.Build, error)
	GetBuild(ctx context.Context, id string) (*models.Build, error)
	CreateBuild(ctx context.Context, b *models.Build) error
	UpdateBuild(ctx context.Context, b *models.Build) error
	DeleteBuild(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// Limit clamps a requested limit to DefaultLimit
func Limit(n int) int {
	if n <= 0 || n > DefaultLimit {
		return DefaultLimit
	}
	return n
}

// ApplyUpdate copies the set fields of u onto c and validates the result
func ApplyUpdate(c *models.Component, u ComponentUpdate) error {
	if u.Price != nil {
		c.Price = *u.Price
	}
	if u.Stock != nil {
		c.Stock = *u.Stock
	}
	if u.Rating != nil {
		c.Rating = *u.Rating
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Categories builds the category listing from per-category counts, in slot order
func Categories(counts map[models.Category]int) []models.CategoryInfo {
	out := make([]models.CategoryInfo, 0, len(models.Categories))
	for _, c := range models.Categories {
		out = append(out, models.CategoryInfo{ID: c, Name: c.Label(), Count: counts[c]})
	}
	return out
}
