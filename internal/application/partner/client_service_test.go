package partner

import (
	"context"
	"errors"
	"testing"
	"time"

	appfinance "github.com/dentalclinic/backend/internal/application/finance"
	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestClientService_Create(t *testing.T) {
	scope := testutil.NewScope(t)
	svc := NewClientService(scope, zap.NewNop())
	ctx := context.Background()

	resp, err := svc.Create(ctx, CreateClientRequest{
		Name:   "  Ana Pérez ",
		Cedula: "V-20111222",
		Phone:  "0414-5550000",
		Email:  "Ana@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", resp.Name)
	assert.Equal(t, "ana@example.com", resp.Email)

	_, err = svc.Create(ctx, CreateClientRequest{Name: "Otra", Cedula: "V-20111222"})
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

	_, err = svc.Create(ctx, CreateClientRequest{Name: "", Cedula: "V-1"})
	assert.True(t, errors.Is(err, shared.ErrValidationFailed))
}

func TestClientService_Update(t *testing.T) {
	scope := testutil.NewScope(t)
	svc := NewClientService(scope, zap.NewNop())
	ctx := context.Background()

	a := testutil.SeedClient(t, scope, "Ana", "V-1000")
	testutil.SeedClient(t, scope, "Luis", "V-2000")

	resp, err := svc.Update(ctx, a.ID, UpdateClientRequest{Phone: strPtr("0212-1234567")})
	require.NoError(t, err)
	assert.Equal(t, "Ana", resp.Name)
	assert.Equal(t, "0212-1234567", resp.Phone)

	_, err = svc.Update(ctx, a.ID, UpdateClientRequest{Cedula: strPtr("V-2000")})
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

	// Keeping its own cedula is not a conflict.
	_, err = svc.Update(ctx, a.ID, UpdateClientRequest{Cedula: strPtr("V-1000"), Name: strPtr("Ana María")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, uuid.New(), UpdateClientRequest{})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestClientService_ListAndSearch(t *testing.T) {
	scope := testutil.NewScope(t)
	svc := NewClientService(scope, zap.NewNop())
	ctx := context.Background()

	testutil.SeedClient(t, scope, "Carlos Ruiz", "V-3")
	testutil.SeedClient(t, scope, "Ana Ruiz", "V-1")
	testutil.SeedClient(t, scope, "Beatriz Mora", "E-2")

	all, total, err := svc.List(ctx, ClientListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "Ana Ruiz", all[0].Name)

	page, total, err := svc.List(ctx, ClientListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Beatriz Mora", page[0].Name)

	found, err := svc.Search(ctx, "ruiz", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	byCedula, err := svc.GetByCedula(ctx, " E-2 ")
	require.NoError(t, err)
	assert.Equal(t, "Beatriz Mora", byCedula.Name)
}

func TestClientService_DeleteCascades(t *testing.T) {
	scope := testutil.NewScope(t)
	svc := NewClientService(scope, zap.NewNop())
	payments := appfinance.NewPaymentService(scope, zap.NewNop())
	ctx := context.Background()

	client := testutil.SeedClient(t, scope, "Ana", "V-1")
	other := testutil.SeedClient(t, scope, "Luis", "V-2")
	tr := testutil.SeedTreatment(t, scope, "Limpieza", "40")

	_, err := payments.CreateDebt(ctx, appfinance.CreateDebtRequest{ClientID: client.ID, Amount: testutil.Money("100")})
	require.NoError(t, err)
	_, err = payments.CreatePayment(ctx, appfinance.CreatePaymentRequest{ClientID: client.ID, Amount: testutil.Money("150"), Method: "cash"})
	require.NoError(t, err)
	_, err = payments.CreateDebt(ctx, appfinance.CreateDebtRequest{ClientID: other.ID, Amount: testutil.Money("30")})
	require.NoError(t, err)

	row, err := history.NewClientTreatment(client.ID, tr.ID, 2, 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, scope.Repositories().ClientTreatments().Save(ctx, row))
	rec, err := history.NewMedicalRecord(client.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, scope.Repositories().MedicalRecords().Save(ctx, rec))

	require.NoError(t, svc.Delete(ctx, client.ID))

	_, err = svc.GetByID(ctx, client.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	repos := scope.Repositories()
	debts, err := repos.Debts().FindByClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, debts)
	pays, err := repos.Payments().FindByClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, pays)
	credit, err := repos.Credits().FindByClient(ctx, client.ID, false)
	require.NoError(t, err)
	assert.True(t, credit.Amount.IsZero())
	rows, err := repos.ClientTreatments().FindByClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	recs, err := repos.MedicalRecords().FindByClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)

	otherDebts, err := repos.Debts().FindByClient(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, otherDebts, 1)

	assert.True(t, errors.Is(svc.Delete(ctx, client.ID), shared.ErrNotFound))
}
