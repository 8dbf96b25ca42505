// Package gormstore implements the store port with GORM on PostgreSQL or SQLite.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/store"
)

// Options configures the GORM connection
type Options struct {
	// LogLevel is one of silent, error, warn, info
	LogLevel string
	// MaxOpenConns of zero keeps the driver default
	MaxOpenConns int
}

// Store runs the CRUD port through GORM
type Store struct {
	db      *gorm.DB
	system  string
	metrics *metrics.AppMetrics
	log     *zap.Logger
}

var _ store.Store = (*Store)(nil)

// OpenPostgres connects to PostgreSQL through pgx
func OpenPostgres(dsn string, opts Options, m *metrics.AppMetrics, log *zap.Logger) (*Store, error) {
	dialector := postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	})
	return open(dialector, "postgresql", opts, m, log)
}

// OpenSQLite opens or creates a SQLite database file
func OpenSQLite(path string, opts Options, m *metrics.AppMetrics, log *zap.Logger) (*Store, error) {
	// one writer at a time
	opts.MaxOpenConns = 1
	return open(sqlite.Open(path), "sqlite", opts, m, log)
}

func open(dialector gorm.Dialector, system string, opts Options, m *metrics.AppMetrics, log *zap.Logger) (*Store, error) {
	logLevel := logger.Error
	switch opts.LogLevel {
	case "silent":
		logLevel = logger.Silent
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	return &Store{db: db, system: system, metrics: m, log: log}, nil
}

// Migrate creates or alters the tables to match the models
func (s *Store) Migrate(ctx context.Context) error {
	start := time.Now()
	s.log.Info("Starting database migration...")

	if err := s.db.WithContext(ctx).AutoMigrate(&models.Component{}, &models.Build{}); err != nil {
		s.log.Error("Database migration failed", zap.Error(err))
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	s.log.Info("Database migration completed successfully",
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Seed inserts the catalog when the components table is empty
func (s *Store) Seed(ctx context.Context, components []models.Component) error {
	var count int64
	start := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Component{}).Count(&count)
	s.record(ctx, "SELECT", "components", res, start)
	if res.Error != nil {
		return fmt.Errorf("failed to count components: %w", res.Error)
	}
	if count > 0 || len(components) == 0 {
		return nil
	}

	rows := make([]models.Component, len(components))
	copy(rows, components)
	start = time.Now()
	res = s.db.WithContext(ctx).CreateInBatches(rows, 50)
	s.record(ctx, "INSERT", "components", res, start)
	if res.Error != nil {
		return fmt.Errorf("failed to seed catalog: %w", res.Error)
	}
	s.log.Info("Seeded catalog", zap.Int("components", len(rows)))
	return nil
}

func (s *Store) ListComponents(ctx context.Context, f store.ComponentFilter) ([]models.Component, error) {
	query := s.db.WithContext(ctx).Model(&models.Component{})
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	query = query.Order("name").Order("id")
	if !f.Unbounded {
		query = query.Limit(store.Limit(f.Limit))
	}

	var components []models.Component
	start := time.Now()
	res := query.Find(&components)
	s.record(ctx, "SELECT", "components", res, start)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to query components: %w", res.Error)
	}
	return components, nil
}

func (s *Store) GetComponent(ctx context.Context, id string) (*models.Component, error) {
	return s.getComponent(ctx, s.db.WithContext(ctx), id)
}

func (s *Store) CreateComponent(ctx context.Context, c *models.Component) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		start := time.Now()
		res := tx.Model(&models.Component{}).Where("id = ?", c.ID).Count(&count)
		s.record(ctx, "SELECT", "components", res, start)
		if res.Error != nil {
			return fmt.Errorf("failed to check component: %w", res.Error)
		}
		if count > 0 {
			return fmt.Errorf("component %s: %w", c.ID, store.ErrConflict)
		}

		start = time.Now()
		res = tx.Create(c)
		s.record(ctx, "INSERT", "components", res, start)
		if res.Error != nil {
			return fmt.Errorf("failed to create component: %w", res.Error)
		}
		return nil
	})
}

func (s *Store) UpdateComponent(ctx context.Context, id string, u store.ComponentUpdate) (*models.Component, error) {
	var updated *models.Component
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.getComponent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := store.ApplyUpdate(c, u); err != nil {
			return err
		}
		c.UpdatedAt = time.Now().UTC()

		start := time.Now()
		res := tx.Model(&models.Component{}).Where("id = ?", id).Updates(map[string]any{
			"price":      c.Price,
			"stock":      c.Stock,
			"rating":     c.Rating,
			"updated_at": c.UpdatedAt,
		})
		s.record(ctx, "UPDATE", "components", res, start)
		if res.Error != nil {
			return fmt.Errorf("failed to update component: %w", res.Error)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteComponent(ctx context.Context, id string) error {
	start := time.Now()
	res := s.db.WithContext(ctx).Delete(&models.Component{}, "id = ?", id)
	s.record(ctx, "DELETE", "components", res, start)
	if res.Error != nil {
		return fmt.Errorf("failed to delete component: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("component %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.CategoryInfo, error) {
	var rows []struct {
		Category models.Category
		Count    int
	}
	start := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Component{}).
		Select("category, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("category").
		Scan(&rows)
	s.record(ctx, "SELECT", "components", res, start)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to query categories: %w", res.Error)
	}

	counts := make(map[models.Category]int, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return store.Categories(counts), nil
}

func (s *Store) ListBuilds(ctx context.Context, f store.BuildFilter) ([]models.Build, error) {
	query := s.db.WithContext(ctx).Model(&models.Build{})
	if f.OwnerID != "" {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.PublicOnly {
		query = query.Where("is_public = ?", true)
	}

	var builds []models.Build
	start := time.Now()
	res := query.Order("created_at DESC").Order("id").Limit(store.Limit(f.Limit)).Find(&builds)
	s.record(ctx, "SELECT", "builds", res, start)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to query builds: %w", res.Error)
	}
	return builds, nil
}

func (s *Store) GetBuild(ctx context.Context, id string) (*models.Build, error) {
	return s.getBuild(ctx, s.db.WithContext(ctx), id)
}

func (s *Store) CreateBuild(ctx context.Context, b *models.Build) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		start := time.Now()
		res := tx.Model(&models.Build{}).Where("id = ?", b.ID).Count(&count)
		s.record(ctx, "SELECT", "builds", res, start)
		if res.Error != nil {
			return fmt.Errorf("failed to check build: %w", res.Error)
		}
		if count > 0 {
			return fmt.Errorf("build %s: %w", b.ID, store.ErrConflict)
		}

		start = time.Now()
		res = tx.Create(b)
		s.record(ctx, "INSERT", "builds", res, start)
		if res.Error != nil {
			return fmt.Errorf("failed to create build: %w", res.Error)
		}
		return nil
	})
}

func (s *Store) UpdateBuild(ctx context.Context, b *models.Build) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.getBuild(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		b.CreatedAt = existing.CreatedAt

		start := time.Now()
		res := tx.Save(b)
		s.record(ctx, "UPDATE", "builds", res, start)
		if res.Error != nil {
			return fmt.Errorf("failed to update build: %w", res.Error)
		}
		return nil
	})
}

func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	start := time.Now()
	res := s.db.WithContext(ctx).Delete(&models.Build{}, "id = ?", id)
	s.record(ctx, "DELETE", "builds", res, start)
	if res.Error != nil {
		return fmt.Errorf("failed to delete build: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("build %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) getComponent(ctx context.Context, tx *gorm.DB, id string) (*models.Component, error) {
	var c models.Component
	start := time.Now()
	res := tx.Where("id = ?", id).First(&c)
	s.record(ctx, "SELECT", "components", res, start)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("component %s: %w", id, store.ErrNotFound)
	}
	if res.Error != nil {
		return nil, fmt.Errorf("failed to get component: %w", res.Error)
	}
	return &c, nil
}

func (s *Store) getBuild(ctx context.Context, tx *gorm.DB, id string) (*models.Build, error) {
	var b models.Build
	start := time.Now()
	res := tx.Where("id = ?", id).First(&b)
	s.record(ctx, "SELECT", "builds", res, start)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("build %s: %w", id, store.ErrNotFound)
	}
	if res.Error != nil {
		return nil, fmt.Errorf("failed to get build: %w", res.Error)
	}
	return &b, nil
}

func (s *Store) record(ctx context.Context, operation, table string, res *gorm.DB, start time.Time) {
	success := res.Error == nil || errors.Is(res.Error, gorm.ErrRecordNotFound)
	statement := ""
	if res.Statement != nil {
		statement = res.Statement.SQL.String()
	}
	s.metrics.RecordDBQuery(ctx, s.system, operation, table, statement, start, success)
}
