package history

import (
	"context"
	"errors"
	"testing"
	"time"

	appfinance "github.com/dentalclinic/backend/internal/application/finance"
	appquote "github.com/dentalclinic/backend/internal/application/quote"
	appscheduling "github.com/dentalclinic/backend/internal/application/scheduling"
	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/catalog"
	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

type fixture struct {
	scope        transaction.Scope
	svc          *HistoryService
	appointments *appscheduling.AppointmentService
	quotes       *appquote.QuoteService
	clientID     uuid.UUID
	cleaning     *catalog.Treatment
	implant      *catalog.Treatment
	whitening    *catalog.Treatment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	scope := testutil.NewScope(t)
	clock := testutil.FixedClock(testNow)
	payments := appfinance.NewPaymentService(scope, zap.NewNop(), appfinance.WithClock(clock))
	return &fixture{
		scope: scope,
		svc:   NewHistoryService(scope, zap.NewNop(), WithClock(clock)),
		appointments: appscheduling.NewAppointmentService(scope, payments, nil, zap.NewNop(),
			appscheduling.WithClock(clock), appscheduling.WithLocation(time.UTC)),
		quotes: appquote.NewQuoteService(scope, payments, zap.NewNop(),
			appquote.WithClock(clock), appquote.WithLocation(time.UTC)),
		clientID:  testutil.SeedClient(t, scope, "Carmen Díaz", "V-2222222").ID,
		cleaning:  testutil.SeedTreatment(t, scope, "Limpieza", "40"),
		implant:   testutil.SeedTreatment(t, scope, "Implante", "900"),
		whitening: testutil.SeedTreatment(t, scope, "Blanqueamiento", "150"),
	}
}

func (f *fixture) book(t *testing.T, day string, lines ...appscheduling.LineRequest) *appscheduling.AppointmentResponse {
	t.Helper()
	resp, err := f.appointments.Create(context.Background(), appscheduling.CreateAppointmentRequest{
		ClientID: f.clientID,
		Date:     day,
		Time:     "10:00",
		Lines:    lines,
	})
	require.NoError(t, err)
	return resp
}

func TestHistoryService_UnifiedMergesAllSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q, err := f.quotes.Create(ctx, appquote.CreateQuoteRequest{
		ClientID: f.clientID,
		Lines:    []appquote.LineRequest{{TreatmentID: f.implant.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	appt := f.book(t, "2025-03-12", appscheduling.LineRequest{TreatmentID: f.cleaning.ID, Quantity: 1})
	_, err = f.appointments.SetStatus(ctx, appt.ID, "completed")
	require.NoError(t, err)

	cancelled := f.book(t, "2025-03-13", appscheduling.LineRequest{TreatmentID: f.whitening.ID, Quantity: 1})
	_, err = f.appointments.SetStatus(ctx, cancelled.ID, "cancelled")
	require.NoError(t, err)

	_, err = f.svc.AddOrAdvance(ctx, AddOrAdvanceRequest{
		ClientID:    f.clientID,
		TreatmentID: f.whitening.ID,
		Quantity:    1,
		Notes:       "sesión única",
	})
	require.NoError(t, err)

	items, err := f.svc.GetUnifiedForClient(ctx, f.clientID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Pending first, then by name.
	assert.Equal(t, "Implante", items[0].Name)
	assert.Equal(t, history.ItemStatusPending, items[0].Status)
	assert.Equal(t, history.SourceQuote, items[0].Source)
	assert.Equal(t, q.ID, *items[0].QuoteID)
	assert.Equal(t, 0, items[0].CompletedQuantity)
	assert.Equal(t, 2, items[0].TotalQuantity)
	assert.NotNil(t, items[0].RecordID)

	assert.Equal(t, "Blanqueamiento", items[1].Name)
	assert.Equal(t, history.SourceRecord, items[1].Source)
	assert.Equal(t, history.ItemStatusCompleted, items[1].Status)

	assert.Equal(t, "Limpieza", items[2].Name)
	assert.Equal(t, history.SourceAppointment, items[2].Source)
	assert.Equal(t, history.ItemStatusCompleted, items[2].Status)
	assert.Equal(t, "40.00", items[2].Price.StringFixed(2))

	_, err = f.svc.GetUnifiedForClient(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestHistoryService_AddOrAdvanceIsKeyedAndClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	q, err := f.quotes.Create(ctx, appquote.CreateQuoteRequest{
		ClientID: f.clientID,
		Lines:    []appquote.LineRequest{{TreatmentID: f.implant.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	row, err := f.svc.AddOrAdvance(ctx, AddOrAdvanceRequest{
		ClientID: f.clientID, TreatmentID: f.implant.ID, QuoteID: &q.ID, Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, row.CompletedQuantity)
	assert.Equal(t, 3, row.TotalQuantity)

	again, err := f.svc.AddOrAdvance(ctx, AddOrAdvanceRequest{
		ClientID: f.clientID, TreatmentID: f.implant.ID, QuoteID: &q.ID, Quantity: 5, Notes: "terminado",
	})
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
	assert.Equal(t, 3, again.CompletedQuantity)
	assert.Equal(t, "terminado", again.Notes)

	// Untagged rows live under their own key and take the total from quantity.
	free, err := f.svc.AddOrAdvance(ctx, AddOrAdvanceRequest{
		ClientID: f.clientID, TreatmentID: f.implant.ID, Quantity: 1,
	})
	require.NoError(t, err)
	assert.NotEqual(t, row.ID, free.ID)
	assert.Equal(t, 1, free.TotalQuantity)
	assert.Nil(t, free.QuoteID)
}

func TestHistoryService_AddOrAdvanceCreatesMissingSourceRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := f.book(t, "2025-03-12", appscheduling.LineRequest{TreatmentID: f.cleaning.ID, Quantity: 4})
	require.NoError(t, f.svc.DeleteAllForAppointment(ctx, appt.ID))

	row, err := f.svc.AddOrAdvance(ctx, AddOrAdvanceRequest{
		ClientID: f.clientID, TreatmentID: f.cleaning.ID, AppointmentID: &appt.ID, Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, row.CompletedQuantity)
	assert.Equal(t, 4, row.TotalQuantity)
	assert.Equal(t, appt.ID, *row.AppointmentID)
}

func TestHistoryService_AddOrAdvanceRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.SeedClient(t, f.scope, "Pedro Ríos", "V-3333333")

	appt := f.book(t, "2025-03-12", appscheduling.LineRequest{TreatmentID: f.cleaning.ID, Quantity: 1})
	quoteID := uuid.New()

	tests := []struct {
		name string
		req  AddOrAdvanceRequest
		want error
	}{
		{"both sources", AddOrAdvanceRequest{ClientID: f.clientID, TreatmentID: f.cleaning.ID, AppointmentID: &appt.ID, QuoteID: &quoteID}, shared.ErrValidationFailed},
		{"negative quantity", AddOrAdvanceRequest{ClientID: f.clientID, TreatmentID: f.cleaning.ID, Quantity: -1}, shared.ErrValidationFailed},
		{"unknown client", AddOrAdvanceRequest{ClientID: uuid.New(), TreatmentID: f.cleaning.ID}, shared.ErrNotFound},
		{"unknown treatment", AddOrAdvanceRequest{ClientID: f.clientID, TreatmentID: uuid.New()}, shared.ErrNotFound},
		{"unknown quote", AddOrAdvanceRequest{ClientID: f.clientID, TreatmentID: f.cleaning.ID, QuoteID: &quoteID}, shared.ErrNotFound},
		{"foreign appointment", AddOrAdvanceRequest{ClientID: other.ID, TreatmentID: f.cleaning.ID, AppointmentID: &appt.ID}, shared.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddOrAdvance(ctx, tt.req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestHistoryService_DeleteRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	row, err := f.svc.AddOrAdvance(ctx, AddOrAdvanceRequest{ClientID: f.clientID, TreatmentID: f.cleaning.ID})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRecord(ctx, row.ID))
	assert.True(t, errors.Is(f.svc.DeleteRecord(ctx, row.ID), shared.ErrNotFound))

	items, err := f.svc.GetUnifiedForClient(ctx, f.clientID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHistoryService_DeleteAllForAppointmentJoinsTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt := f.book(t, "2025-03-12", appscheduling.LineRequest{TreatmentID: f.cleaning.ID, Quantity: 1})

	boom := errors.New("rollback")
	err := f.scope.Execute(ctx, func(ctx context.Context, _ transaction.Repositories) error {
		require.NoError(t, f.svc.DeleteAllForAppointment(ctx, appt.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := f.scope.Repositories().ClientTreatments().FindByAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestHistoryService_MedicalRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.CreateMedicalRecord(ctx, MedicalRecordRequest{
		ClientID:  f.clientID,
		Diagnosis: "  caries en 36 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "caries en 36", rec.Diagnosis)
	assert.True(t, rec.RecordDate.Equal(shared.NormalizeDate(testNow)))

	_, err = f.svc.CreateMedicalRecord(ctx, MedicalRecordRequest{ClientID: uuid.New()})
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	later := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	updated, err := f.svc.UpdateMedicalRecord(ctx, rec.ID, MedicalRecordRequest{
		RecordDate:     &later,
		Diagnosis:      "caries en 36",
		TreatmentNotes: "obturación",
	})
	require.NoError(t, err)
	assert.Equal(t, "obturación", updated.TreatmentNotes)
	assert.True(t, updated.RecordDate.Equal(later))

	other := testutil.SeedClient(t, f.scope, "Pedro Ríos", "V-3333333")
	_, err = f.svc.UpdateMedicalRecord(ctx, rec.ID, MedicalRecordRequest{ClientID: other.ID})
	assert.True(t, errors.Is(err, shared.ErrValidationFailed))

	got, err := f.svc.GetMedicalRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "obturación", got.TreatmentNotes)

	list, err := f.svc.ListMedicalRecords(ctx, f.clientID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteMedicalRecord(ctx, rec.ID))
	_, err = f.svc.GetMedicalRecord(ctx, rec.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestHistoryService_FullHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, "2025-03-12", appscheduling.LineRequest{TreatmentID: f.cleaning.ID, Quantity: 1})
	_, err := f.quotes.Create(ctx, appquote.CreateQuoteRequest{
		ClientID: f.clientID,
		Lines:    []appquote.LineRequest{{TreatmentID: f.implant.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = f.svc.CreateMedicalRecord(ctx, MedicalRecordRequest{ClientID: f.clientID, Observations: "alérgico a penicilina"})
	require.NoError(t, err)

	full, err := f.svc.GetClientFullHistory(ctx, f.clientID)
	require.NoError(t, err)
	assert.Equal(t, "Carmen Díaz", full.Client.Name)
	assert.Len(t, full.MedicalRecords, 1)
	assert.Len(t, full.UnifiedTreatments, 2)
	require.Len(t, full.Appointments, 1)
	assert.Len(t, full.Appointments[0].Lines, 1)
	require.Len(t, full.Quotes, 1)
	assert.Len(t, full.Quotes[0].Lines, 1)
}

func TestHistoryService_TodayFollowsClinicZone(t *testing.T) {
	f := newFixture(t)
	// 02:30 UTC on the 11th is still the evening of the 10th at UTC-4.
	late := time.Date(2025, 3, 11, 2, 30, 0, 0, time.UTC)
	svc := NewHistoryService(f.scope, zap.NewNop(),
		WithClock(testutil.FixedClock(late)),
		WithLocation(time.FixedZone("UTC-4", -4*60*60)),
	)
	ctx := context.Background()
	clinicDay := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	row, err := svc.AddOrAdvance(ctx, AddOrAdvanceRequest{
		ClientID: f.clientID, TreatmentID: f.cleaning.ID, Quantity: 1,
	})
	require.NoError(t, err)
	assert.True(t, row.TreatmentDate.Equal(clinicDay), "got %s", row.TreatmentDate)

	rec, err := svc.CreateMedicalRecord(ctx, MedicalRecordRequest{ClientID: f.clientID, Diagnosis: "control"})
	require.NoError(t, err)
	assert.True(t, rec.RecordDate.Equal(clinicDay), "got %s", rec.RecordDate)

	utc := NewHistoryService(f.scope, zap.NewNop(), WithClock(testutil.FixedClock(late)))
	rec, err = utc.CreateMedicalRecord(ctx, MedicalRecordRequest{ClientID: f.clientID})
	require.NoError(t, err)
	assert.True(t, rec.RecordDate.Equal(clinicDay.AddDate(0, 0, 1)))
}

func TestHistoryService_LogsCarryRequestID(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	svc := NewHistoryService(f.scope, zap.New(core), WithClock(testutil.FixedClock(testNow)))
	ctx := logger.WithRequestID(context.Background(), "req-7")

	row, err := svc.AddOrAdvance(ctx, AddOrAdvanceRequest{
		ClientID: f.clientID, TreatmentID: f.whitening.ID, Quantity: 1,
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteRecord(ctx, row.ID))
	_, err = svc.CreateMedicalRecord(ctx, MedicalRecordRequest{ClientID: f.clientID})
	require.NoError(t, err)

	for _, msg := range []string{"Treatment progress recorded", "History record deleted", "Medical record created"} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"], msg)
	}
}
