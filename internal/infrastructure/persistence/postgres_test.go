package persistence_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appfinance "github.com/dentalclinic/backend/internal/application/finance"
	appscheduling "github.com/dentalclinic/backend/internal/application/scheduling"
	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/partner"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence"
	"github.com/dentalclinic/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// One container serves every subtest; each uses its own clients.
func TestPostgres(t *testing.T) {
	db := testutil.NewPostgresDatabase(t)
	scope := persistence.NewGormTransactionScopeFromDatabase(db)
	ctx := context.Background()
	clock := testutil.FixedClock(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC))

	t.Run("cedula is unique", func(t *testing.T) {
		testutil.SeedClient(t, scope, "Ana Pérez", "V-100")
		dup, err := partner.NewClient("Otra Pérez", "V-100")
		require.NoError(t, err)
		err = scope.Execute(ctx, func(ctx context.Context, repos transaction.Repositories) error {
			return repos.Clients().Save(ctx, dup)
		})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists), "got %v", err)
	})

	t.Run("concurrent payments keep the ledger consistent", func(t *testing.T) {
		client := testutil.SeedClient(t, scope, "María González", "V-200")
		svc := appfinance.NewPaymentService(scope, zap.NewNop(),
			appfinance.WithPessimisticLocking(true), appfinance.WithClock(clock))
		_, err := svc.CreateDebt(ctx, appfinance.CreateDebtRequest{ClientID: client.ID, Amount: testutil.Money("50")})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.CreatePayment(ctx, appfinance.CreatePaymentRequest{
					ClientID: client.ID, Amount: testutil.Money("10"), Method: "cash",
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		credit, err := svc.GetCredit(ctx, client.ID)
		require.NoError(t, err)
		assert.True(t, credit.Equal(testutil.Money("50")), "credit %s", credit)
		testutil.AssertLedgerConsistent(t, scope, client.ID)
	})

	t.Run("one pending booking per slot", func(t *testing.T) {
		clients := []*partner.Client{
			testutil.SeedClient(t, scope, "Luis Rojas", "V-300"),
			testutil.SeedClient(t, scope, "Rosa Díaz", "V-301"),
			testutil.SeedClient(t, scope, "Pedro Gil", "V-302"),
			testutil.SeedClient(t, scope, "Inés Soto", "V-303"),
		}
		payments := appfinance.NewPaymentService(scope, zap.NewNop(), appfinance.WithClock(clock))
		svc := appscheduling.NewAppointmentService(scope, payments, nil, zap.NewNop(),
			appscheduling.WithClock(clock), appscheduling.WithLocation(time.UTC))

		var booked, conflicts atomic.Int32
		var wg sync.WaitGroup
		for _, c := range clients {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Create(ctx, appscheduling.CreateAppointmentRequest{
					ClientID: c.ID, Date: "2025-03-12", Time: "10:00",
				})
				switch {
				case err == nil:
					booked.Add(1)
				case errors.Is(err, shared.ErrConflictingBooking):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, booked.Load())
		assert.EqualValues(t, len(clients)-1, conflicts.Load())
	})
}
