package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/config"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/dentalclinic/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestDatabase_InstrumentPool(t *testing.T) {
	db, err := persistence.NewDatabaseWithDialector(sqlite.Open(":memory:"), &config.DatabaseConfig{
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		AcquireTimeout: 50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	meter, reader := testutil.NewMeter(t)
	require.NoError(t, db.InstrumentPool(meter))
	scope := persistence.NewGormTransactionScopeFromDatabase(db)

	maxOpen, found := testutil.MetricValue(t, reader, "db_pool_connections_max")
	require.True(t, found)
	assert.Equal(t, 1.0, maxOpen)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	held, err := sqlDB.Conn(context.Background())
	require.NoError(t, err)
	defer held.Close()

	inUse, _ := testutil.MetricValue(t, reader, "db_pool_connections", telemetry.AttrPoolState.String("in_use"))
	assert.Equal(t, 1.0, inUse)

	err = scope.Execute(context.Background(), func(context.Context, transaction.Repositories) error {
		t.Fatal("callback must not run without a connection")
		return nil
	})
	require.ErrorIs(t, err, shared.ErrResourceExhausted)

	exhausted, _ := testutil.MetricValue(t, reader, "db_pool_exhausted_total")
	assert.Equal(t, 1.0, exhausted)
	waits, _ := testutil.MetricValue(t, reader, "db_pool_wait_total")
	assert.GreaterOrEqual(t, waits, 1.0)
}

func TestDatabase_InstrumentPool_NilMeter(t *testing.T) {
	db := testutil.NewDatabase(t)
	assert.ErrorIs(t, db.InstrumentPool(nil), telemetry.ErrMeterNil)
}
