package scheduling

import (
	"testing"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppointment(t *testing.T) *Appointment {
	a, err := NewAppointment(uuid.New(), time.Date(2030, 5, 10, 15, 4, 0, 0, time.UTC), "9:00")
	require.NoError(t, err)
	return a
}

// ============================================
// AppointmentStatus Tests
// ============================================

func TestAppointmentStatus_Transitions(t *testing.T) {
	tests := []struct {
		from    AppointmentStatus
		to      AppointmentStatus
		allowed bool
	}{
		{AppointmentStatusPending, AppointmentStatusCompleted, true},
		{AppointmentStatusPending, AppointmentStatusCancelled, true},
		{AppointmentStatusCompleted, AppointmentStatusPending, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusCancelled, AppointmentStatusPending, false},
		{AppointmentStatusCancelled, AppointmentStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestAppointmentStatus_IsValid(t *testing.T) {
	for _, s := range AllAppointmentStatuses() {
		assert.True(t, s.IsValid())
	}
	assert.False(t, AppointmentStatus("done").IsValid())
	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.False(t, AppointmentStatusPending.IsTerminal())
}

// ============================================
// Appointment Tests
// ============================================

func TestNewAppointment(t *testing.T) {
	t.Run("normalizes date and clock", func(t *testing.T) {
		a := newTestAppointment(t)
		assert.Equal(t, time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC), a.Date)
		assert.Equal(t, "09:00", a.Time)
		assert.Equal(t, AppointmentStatusPending, a.Status)
		assert.Empty(t, a.Lines)
	})

	t.Run("requires client", func(t *testing.T) {
		_, err := NewAppointment(uuid.Nil, time.Now(), "09:00")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("rejects malformed clock", func(t *testing.T) {
		_, err := NewAppointment(uuid.New(), time.Now(), "25:00")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestAppointment_SetLines(t *testing.T) {
	a := newTestAppointment(t)
	t1, t2 := uuid.New(), uuid.New()
	prices := map[uuid.UUID]decimal.Decimal{
		t1: decimal.RequireFromString("25.50"),
		t2: decimal.RequireFromString("100"),
	}

	t.Run("captures price and merges repeated treatments", func(t *testing.T) {
		err := a.SetLines([]LineInput{
			{TreatmentID: t1, Quantity: 2},
			{TreatmentID: t2, Quantity: 1},
			{TreatmentID: t1, Quantity: 1},
		}, prices)
		require.NoError(t, err)
		require.Len(t, a.Lines, 2)
		assert.Equal(t, 3, a.Lines[0].Quantity)
		assert.True(t, a.Lines[0].PriceAtBooking.Equal(decimal.RequireFromString("25.50")))
		assert.Equal(t, a.ID, a.Lines[0].AppointmentID)
		assert.True(t, a.Total().Equal(decimal.RequireFromString("176.50")))
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		err := a.SetLines([]LineInput{{TreatmentID: t1, Quantity: 0}}, prices)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("rejects unknown treatment", func(t *testing.T) {
		err := a.SetLines([]LineInput{{TreatmentID: uuid.New(), Quantity: 1}}, prices)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestAppointment_TransitionTo(t *testing.T) {
	t.Run("pending to completed records event", func(t *testing.T) {
		a := newTestAppointment(t)
		changed, err := a.TransitionTo(AppointmentStatusCompleted)
		require.NoError(t, err)
		assert.True(t, changed)
		require.Len(t, a.GetDomainEvents(), 1)
		evt, ok := a.GetDomainEvents()[0].(*AppointmentStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, EventTypeAppointmentStatusChanged, evt.EventType())
		assert.Equal(t, a.ID, evt.AppointmentID)
		assert.Equal(t, AppointmentStatusCompleted, evt.Status)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		a := newTestAppointment(t)
		changed, err := a.TransitionTo(AppointmentStatusPending)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, a.GetDomainEvents())
	})

	t.Run("no back transitions", func(t *testing.T) {
		a := newTestAppointment(t)
		_, err := a.TransitionTo(AppointmentStatusCancelled)
		require.NoError(t, err)
		_, err = a.TransitionTo(AppointmentStatusPending)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("unknown status", func(t *testing.T) {
		a := newTestAppointment(t)
		_, err := a.TransitionTo("archived")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

// ============================================
// WorkingHours Tests
// ============================================

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"07:30", 450, false},
		{"19:30:00", 1170, false},
		{"7:05", 425, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkingHours_Slots(t *testing.T) {
	slots := DefaultWorkingHours().Slots()
	require.Len(t, slots, 25)
	assert.Equal(t, "07:30", slots[0])
	assert.Equal(t, "08:00", slots[1])
	assert.Equal(t, "19:30", slots[len(slots)-1])
}

func TestWorkingHours_ValidateBooking(t *testing.T) {
	wh := DefaultWorkingHours()
	now := time.Date(2030, 5, 10, 12, 0, 0, 0, time.UTC)
	today := shared.NormalizeDate(now)
	tomorrow := today.AddDate(0, 0, 1)

	t.Run("future slot inside hours", func(t *testing.T) {
		clock, err := wh.ValidateBooking(tomorrow, "7:30", now)
		require.NoError(t, err)
		assert.Equal(t, "07:30", clock)
	})

	t.Run("closing time is bookable", func(t *testing.T) {
		_, err := wh.ValidateBooking(tomorrow, "19:30", now)
		assert.NoError(t, err)
	})

	t.Run("outside working hours", func(t *testing.T) {
		_, err := wh.ValidateBooking(tomorrow, "07:00", now)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
		_, err = wh.ValidateBooking(tomorrow, "20:00", now)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("earlier today is in the past", func(t *testing.T) {
		_, err := wh.ValidateBooking(today, "11:30", now)
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("later today is accepted", func(t *testing.T) {
		_, err := wh.ValidateBooking(today, "12:30", now)
		assert.NoError(t, err)
	})
}

func TestNewWorkingHours_Invalid(t *testing.T) {
	_, err := NewWorkingHours("19:30", "07:30", 30)
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
	_, err = NewWorkingHours("07:30", "19:30", 0)
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
}
