package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, name, cedula string) *partner.Client {
	t.Helper()
	c, err := partner.NewClient(name, cedula)
	require.NoError(t, err)
	return c
}

func TestGormTransactionScope_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		scope := NewGormTransactionScopeFromDatabase(newTestDatabase(t))
		client := newTestClient(t, "Ana Pérez", "V-100")

		err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			return repos.Clients().Save(ctx, client)
		})
		require.NoError(t, err)

		found, err := scope.Repositories().Clients().FindByID(ctx, client.ID)
		require.NoError(t, err)
		assert.Equal(t, "V-100", found.Cedula)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		scope := NewGormTransactionScopeFromDatabase(newTestDatabase(t))
		client := newTestClient(t, "Luis Mora", "V-200")

		err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			if err := repos.Clients().Save(ctx, client); err != nil {
				return err
			}
			return shared.ErrInvalidState.WithMessage("stop")
		})
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		_, err = scope.Repositories().Clients().FindByID(ctx, client.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("wraps foreign errors as store failures", func(t *testing.T) {
		scope := NewGormTransactionScopeFromDatabase(newTestDatabase(t))
		cause := errors.New("disk full")

		err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			return cause
		})
		assert.ErrorIs(t, err, shared.ErrStoreFailure)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("nested call joins the running transaction", func(t *testing.T) {
		scope := NewGormTransactionScopeFromDatabase(newTestDatabase(t))
		outer := newTestClient(t, "Outer Client", "V-300")
		inner := newTestClient(t, "Inner Client", "V-301")

		err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			if err := repos.Clients().Save(ctx, outer); err != nil {
				return err
			}
			if err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
				return repos.Clients().Save(ctx, inner)
			}); err != nil {
				return err
			}
			return errors.New("abort")
		})
		require.Error(t, err)

		count, err := scope.Repositories().Clients().Count(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		scope := NewGormTransactionScopeFromDatabase(newTestDatabase(t))
		client := newTestClient(t, "Panic Client", "V-400")

		assert.Panics(t, func() {
			_ = scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
				_ = repos.Clients().Save(ctx, client)
				panic("boom")
			})
		})

		_, err := scope.Repositories().Clients().FindByID(ctx, client.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormTransactionScope_AfterCommit(t *testing.T) {
	ctx := context.Background()
	scope := NewGormTransactionScopeFromDatabase(newTestDatabase(t))

	t.Run("runs hooks after commit", func(t *testing.T) {
		var ran []string
		err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			scope.AfterCommit(ctx, func(context.Context) { ran = append(ran, "first") })
			scope.AfterCommit(ctx, func(context.Context) { ran = append(ran, "second") })
			assert.Empty(t, ran)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, ran)
	})

	t.Run("drops hooks on rollback", func(t *testing.T) {
		ran := false
		err := scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			scope.AfterCommit(ctx, func(context.Context) { ran = true })
			return shared.ErrValidationFailed
		})
		require.Error(t, err)
		assert.False(t, ran)
	})

	t.Run("runs immediately outside a transaction", func(t *testing.T) {
		ran := false
		scope.AfterCommit(ctx, func(context.Context) { ran = true })
		assert.True(t, ran)
	})
}

func TestGormTransactionScope_PoolExhausted(t *testing.T) {
	d := newTestDatabase(t)
	scope := NewGormTransactionScope(d.DB, 50*time.Millisecond)

	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	held, err := sqlDB.Conn(context.Background())
	require.NoError(t, err)
	defer held.Close()

	err = scope.Execute(context.Background(), func(ctx context.Context, repos transaction.Repositories) error {
		t.Fatal("callback must not run without a connection")
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrResourceExhausted)
}

func TestGormTransactionScope_CancelledContext(t *testing.T) {
	d := newTestDatabase(t)
	scope := NewGormTransactionScope(d.DB, time.Second)

	sqlDB, err := d.DB.DB()
	require.NoError(t, err)
	held, err := sqlDB.Conn(context.Background())
	require.NoError(t, err)
	defer held.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error { return nil })
	assert.ErrorIs(t, err, shared.ErrStoreFailure)
}
