// Package sqlstore implements the store port on database/sql for MySQL, PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/db"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/store"
)

//go:embed schema/*.sql
var schemas embed.FS

var schemaFiles = map[string]string{
	db.MySQL.System:    "mysql.sql",
	db.Postgres.System: "postgres.sql",
	db.SQLite.System:   "sqlite.sql",
}

const (
	componentColumns = "id, name, brand, category, price, image, specifications, stock, rating, key_features, is_active, created_at, updated_at"
	buildColumns     = "id, name, description, use_case, components, total_price, performance_score, owner_id, is_public, created_at, updated_at"
)

// Store runs the CRUD port against a *db.DB
type Store struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	log     *zap.Logger
	now     func() time.Time
}

// New creates a store on an open connection
func New(database *db.DB, m *metrics.AppMetrics, log *zap.Logger) *Store {
	return &Store{db: database, metrics: m, log: log, now: time.Now}
}

var _ store.Store = (*Store)(nil)

// Migrate creates the tables for the connection's dialect
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := schemas.ReadFile("schema/" + schemaFiles[s.db.Dialect.System])
	if err != nil {
		return fmt.Errorf("no schema for %s: %w", s.db.Dialect.System, err)
	}
	return s.db.InitSchema(ctx, string(schema))
}

// Seed inserts the catalog when the components table is empty
func (s *Store) Seed(ctx context.Context, components []models.Component) error {
	var count int
	query := "SELECT COUNT(*) FROM components"
	start := time.Now()
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	s.record(ctx, "SELECT", "components", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to count components: %w", err)
	}
	if count > 0 {
		s.log.Info("Catalog already seeded", zap.Int("components", count))
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range components {
		c := components[i]
		if err := s.insertComponent(ctx, tx, &c); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	s.log.Info("Seeded catalog", zap.Int("components", len(components)))
	return nil
}

func (s *Store) ListComponents(ctx context.Context, f store.ComponentFilter) ([]models.Component, error) {
	var where []string
	var args []any
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.ActiveOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}

	query := "SELECT " + componentColumns + " FROM components"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"
	if !f.Unbounded {
		query += " LIMIT ?"
		args = append(args, store.Limit(f.Limit))
	}
	query = s.db.Dialect.Rebind(query)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.record(ctx, "SELECT", "components", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var components []models.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		components = append(components, *c)
	}
	return components, rows.Err()
}

func (s *Store) GetComponent(ctx context.Context, id string) (*models.Component, error) {
	return s.getComponent(ctx, s.db, id)
}

func (s *Store) CreateComponent(ctx context.Context, c *models.Component) error {
	return s.insertComponent(ctx, s.db, c)
}

func (s *Store) UpdateComponent(ctx context.Context, id string, u store.ComponentUpdate) (*models.Component, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := s.getComponent(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := store.ApplyUpdate(c, u); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()

	query := s.db.Dialect.Rebind("UPDATE components SET price = ?, stock = ?, rating = ?, updated_at = ? WHERE id = ?")
	start := time.Now()
	_, err = tx.ExecContext(ctx, query, c.Price, c.Stock, c.Rating, c.UpdatedAt, id)
	s.record(ctx, "UPDATE", "components", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to update component: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return c, nil
}

func (s *Store) DeleteComponent(ctx context.Context, id string) error {
	return s.delete(ctx, "components", "component", id)
}

func (s *Store) ListCategories(ctx context.Context) ([]models.CategoryInfo, error) {
	query := s.db.Dialect.Rebind("SELECT category, COUNT(*) FROM components WHERE is_active = ? GROUP BY category")
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, true)
	s.record(ctx, "SELECT", "components", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		counts[models.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.Categories(counts), nil
}

func (s *Store) ListBuilds(ctx context.Context, f store.BuildFilter) ([]models.Build, error) {
	var where []string
	var args []any
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.PublicOnly {
		where = append(where, "is_public = ?")
		args = append(args, true)
	}

	query := "SELECT " + buildColumns + " FROM builds"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, store.Limit(f.Limit))
	query = s.db.Dialect.Rebind(query)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.record(ctx, "SELECT", "builds", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer rows.Close()

	var builds []models.Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, *b)
	}
	return builds, rows.Err()
}

func (s *Store) GetBuild(ctx context.Context, id string) (*models.Build, error) {
	query := s.db.Dialect.Rebind("SELECT " + buildColumns + " FROM builds WHERE id = ?")
	start := time.Now()
	b, err := scanBuild(s.db.QueryRowContext(ctx, query, id))
	s.record(ctx, "SELECT", "builds", query, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build %s: %w", id, store.ErrNotFound)
	}
	return b, err
}

func (s *Store) CreateBuild(ctx context.Context, b *models.Build) error {
	now := s.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	query := s.db.Dialect.Rebind("INSERT INTO builds (" + buildColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	start := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.Name, b.Description, string(b.UseCase), b.Components, b.TotalPrice,
		b.PerformanceScore, b.OwnerID, b.IsPublic, b.CreatedAt, b.UpdatedAt)
	s.record(ctx, "INSERT", "builds", query, start, err)
	if isDuplicate(err) {
		return fmt.Errorf("build %s: %w", b.ID, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}
	return nil
}

func (s *Store) UpdateBuild(ctx context.Context, b *models.Build) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.db.Dialect.Rebind("SELECT created_at FROM builds WHERE id = ?")
	start := time.Now()
	err = tx.QueryRowContext(ctx, query, b.ID).Scan(&b.CreatedAt)
	s.record(ctx, "SELECT", "builds", query, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("build %s: %w", b.ID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load build: %w", err)
	}
	b.UpdatedAt = s.now().UTC()

	query = s.db.Dialect.Rebind(`UPDATE builds SET name = ?, description = ?, use_case = ?, components = ?,
		total_price = ?, performance_score = ?, owner_id = ?, is_public = ?, updated_at = ? WHERE id = ?`)
	start = time.Now()
	_, err = tx.ExecContext(ctx, query,
		b.Name, b.Description, string(b.UseCase), b.Components, b.TotalPrice,
		b.PerformanceScore, b.OwnerID, b.IsPublic, b.UpdatedAt, b.ID)
	s.record(ctx, "UPDATE", "builds", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to update build: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	return s.delete(ctx, "builds", "build", id)
}

func (s *Store) Ping(ctx context.Context) error {
	s.db.RecordPoolStats(ctx)
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) getComponent(ctx context.Context, q queryer, id string) (*models.Component, error) {
	query := s.db.Dialect.Rebind("SELECT " + componentColumns + " FROM components WHERE id = ?")
	start := time.Now()
	c, err := scanComponent(q.QueryRowContext(ctx, query, id))
	s.record(ctx, "SELECT", "components", query, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("component %s: %w", id, store.ErrNotFound)
	}
	return c, err
}

func (s *Store) insertComponent(ctx context.Context, e execer, c *models.Component) error {
	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	query := s.db.Dialect.Rebind("INSERT INTO components (" + componentColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	start := time.Now()
	_, err := e.ExecContext(ctx, query,
		c.ID, c.Name, c.Brand, string(c.Category), c.Price, c.Image, c.Specifications,
		c.Stock, c.Rating, c.KeyFeatures, c.IsActive, c.CreatedAt, c.UpdatedAt)
	s.record(ctx, "INSERT", "components", query, start, err)
	if isDuplicate(err) {
		return fmt.Errorf("component %s: %w", c.ID, store.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert component %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, table, kind, id string) error {
	query := s.db.Dialect.Rebind("DELETE FROM " + table + " WHERE id = ?")
	start := time.Now()
	res, err := s.db.ExecContext(ctx, query, id)
	s.record(ctx, "DELETE", table, query, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) record(ctx context.Context, operation, table, statement string, start time.Time, err error) {
	success := err == nil || errors.Is(err, sql.ErrNoRows)
	s.metrics.RecordDBQuery(ctx, s.db.Dialect.System, operation, table, statement, start, success)
	if !success {
		s.log.Error("Database query failed",
			zap.String("db.operation", operation),
			zap.String("db.sql.table", table),
			zap.Error(err))
	}
}

func scanComponent(row scanner) (*models.Component, error) {
	var c models.Component
	var category string
	err := row.Scan(&c.ID, &c.Name, &c.Brand, &category, &c.Price, &c.Image, &c.Specifications,
		&c.Stock, &c.Rating, &c.KeyFeatures, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan component: %w", err)
	}
	c.Category = models.Category(category)
	return &c, nil
}

func scanBuild(row scanner) (*models.Build, error) {
	var b models.Build
	var useCase string
	var description sql.NullString
	err := row.Scan(&b.ID, &b.Name, &description, &useCase, &b.Components, &b.TotalPrice,
		&b.PerformanceScore, &b.OwnerID, &b.IsPublic, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan build: %w", err)
	}
	b.Description = description.String
	b.UseCase = models.UseCase(useCase)
	return &b, nil
}

// isDuplicate reports a primary-key violation from any of the supported drivers
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
