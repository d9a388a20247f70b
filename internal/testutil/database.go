// Package testutil builds throwaway databases and fixtures for service tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/catalog"
	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/infrastructure/config"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// NewDatabase opens a migrated in-memory SQLite database that lives for the test.
// The pool holds a single connection, so work inside a transaction must use the
// context handed out by the scope.
func NewDatabase(t testing.TB) *persistence.Database {
	t.Helper()
	cfg := &config.DatabaseConfig{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 60,
		ConnMaxIdleTime: 60,
		AcquireTimeout:  2 * time.Second,
	}
	db, err := persistence.NewDatabaseWithDialector(sqlite.Open(":memory:"), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, db.DB.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewScope returns a transaction scope over a fresh database
func NewScope(t testing.TB) *persistence.GormTransactionScope {
	t.Helper()
	return persistence.NewGormTransactionScopeFromDatabase(NewDatabase(t))
}

// Money parses a decimal literal
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedClient stores a client
func SeedClient(t testing.TB, scope transaction.Scope, name, cedula string) *partner.Client {
	t.Helper()
	c, err := partner.NewClient(name, cedula)
	require.NoError(t, err)
	require.NoError(t, scope.Repositories().Clients().Save(context.Background(), c))
	return c
}

// SeedTreatment stores an active treatment
func SeedTreatment(t testing.TB, scope transaction.Scope, name, price string) *catalog.Treatment {
	t.Helper()
	tr, err := catalog.NewTreatment(name, Money(price), 30)
	require.NoError(t, err)
	require.NoError(t, scope.Repositories().Treatments().Save(context.Background(), tr))
	return tr
}

// SeedDentist stores an active dentist
func SeedDentist(t testing.TB, scope transaction.Scope, name string) *catalog.Dentist {
	t.Helper()
	d, err := catalog.NewDentist(name, "", "")
	require.NoError(t, err)
	require.NoError(t, scope.Repositories().Dentists().Save(context.Background(), d))
	return d
}

// FixedClock returns a clock that always reports at
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
