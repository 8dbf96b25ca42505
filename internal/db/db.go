package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Dialect describes a database/sql driver and its SQL flavour
type Dialect struct {
	// Driver is the name the driver registered with database/sql
	Driver string
	// System is the OpenTelemetry db.system value
	System string
	// Dollar placeholders ($1, $2) instead of ?
	Dollar bool
}

var (
	MySQL    = Dialect{Driver: "mysql", System: "mysql"}
	Postgres = Dialect{Driver: "postgres", System: "postgresql", Dollar: true}
	// SQLite requires the caller to import a driver registered as "sqlite3"
	SQLite = Dialect{Driver: "sqlite3", System: "sqlite"}
)

// Rebind rewrites ? placeholders for the dialect
func (d Dialect) Rebind(query string) string {
	if !d.Dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DB wraps the database connection with metrics
type DB struct {
	*sql.DB
	Dialect          Dialect
	meter            metric.Meter
	connectionActive metric.Int64Gauge
	connectionIdle   metric.Int64Gauge
	serviceName      string
	log              *zap.Logger
}

// NewDB creates a new database connection with OpenTelemetry instrumentation
func NewDB(ctx context.Context, dialect Dialect, dsn string, meter metric.Meter, serviceName string, log *zap.Logger) (*DB, error) {
	// Register otelsql wrapper for the dialect's driver
	driverName, err := otelsql.Register(dialect.Driver,
		otelsql.WithAttributes(
			attribute.String("db.system", dialect.System),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if dialect == SQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	connectionActive, err := meter.Int64Gauge(
		"db.client.connections.active",
		metric.WithDescription("Number of active database connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection active gauge: %w", err)
	}

	connectionIdle, err := meter.Int64Gauge(
		"db.client.connections.idle",
		metric.WithDescription("Number of idle database connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection idle gauge: %w", err)
	}

	dbWrapper := &DB{
		DB:               db,
		Dialect:          dialect,
		meter:            meter,
		connectionActive: connectionActive,
		connectionIdle:   connectionIdle,
		serviceName:      serviceName,
		log:              log,
	}

	// Register otelsql's built-in stats reporting
	if err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(
		attribute.String("db.system", dialect.System),
		attribute.String("service.name", serviceName),
	)); err != nil {
		log.Warn("failed to register otelsql stats metrics", zap.Error(err))
	}

	return dbWrapper, nil
}

// RecordPoolStats publishes the current pool usage on the connection gauges
func (db *DB) RecordPoolStats(ctx context.Context) {
	stats := db.Stats()
	attrs := metric.WithAttributes(
		attribute.String("db.system", db.Dialect.System),
		attribute.String("service.name", db.serviceName),
	)
	db.connectionActive.Record(ctx, int64(stats.InUse), attrs)
	db.connectionIdle.Record(ctx, int64(stats.Idle), attrs)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// InitSchema initializes the database schema
// It splits the SQL into individual statements and executes them one by one
func (db *DB) InitSchema(ctx context.Context, schemaSQL string) error {
	statements := splitSQLStatements(schemaSQL)

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w\nStatement: %s", i+1, err, stmt)
		}
	}

	db.log.Info("Database schema initialized", zap.String("db.system", db.Dialect.System), zap.Int("statements", len(statements)))
	return nil
}

// splitSQLStatements splits a SQL string into individual statements
func splitSQLStatements(sql string) []string {
	// Remove comments (lines starting with --)
	lines := strings.Split(sql, "\n")
	var cleanedLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			cleanedLines = append(cleanedLines, line)
		}
	}

	cleanedSQL := strings.Join(cleanedLines, "\n")
	statements := strings.Split(cleanedSQL, ";")

	var result []string
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}

	return result
}
