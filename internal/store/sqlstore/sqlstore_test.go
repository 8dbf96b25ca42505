package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/db"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/store"
	"github.com/SigNoz/pcparts-store/internal/store/storetest"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "store.db")

	conn, err := db.NewDB(ctx, db.SQLite, dsn, noop.NewMeterProvider().Meter("test"), "pcparts-store", zap.NewNop())
	require.NoError(t, err)

	s := New(conn, metrics.NewNoop("pcparts-store"), zap.NewNop())
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, seed []models.Component) store.Store {
		s := openSQLite(t)
		require.NoError(t, s.Seed(context.Background(), seed))
		return s
	})
}

func TestSeedIsIdempotent(t *testing.T) {
	s := openSQLite(t)
	defer s.Close()
	ctx := context.Background()

	seed := []models.Component{{ID: "x", Name: "X", Category: models.CategoryCase, IsActive: true}}
	require.NoError(t, s.Seed(ctx, seed))
	require.NoError(t, s.Seed(ctx, append(seed, models.Component{ID: "y", Name: "Y", Category: models.CategoryCase})))

	all, err := s.ListComponents(ctx, store.ComponentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openSQLite(t)
	defer s.Close()
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestIsDuplicate(t *testing.T) {
	assert.False(t, isDuplicate(nil))
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1146}))
	assert.True(t, isDuplicate(&pq.Error{Code: "23505"}))
	assert.True(t, isDuplicate(errors.New("UNIQUE constraint failed: components.id")))
	assert.False(t, isDuplicate(errors.New("connection refused")))
}
