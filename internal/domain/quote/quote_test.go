package quote

import (
	"testing"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuote_Revise_ComputesTotal(t *testing.T) {
	clientID := uuid.New()
	cleaning, filling := uuid.New(), uuid.New()
	prices := map[uuid.UUID]decimal.Decimal{cleaning: dec("30"), filling: dec("45.25")}

	tests := []struct {
		name     string
		discount string
		want     string
	}{
		{"no discount", "0", "105.25"},
		{"partial discount", "5.25", "100.00"},
		{"discount above gross clamps to zero", "500", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuote(clientID, time.Now())
			require.NoError(t, err)
			err = q.Revise(clientID, []LineInput{
				{TreatmentID: cleaning, Quantity: 2},
				{TreatmentID: filling, Quantity: 1},
			}, prices, dec(tt.discount), nil, "")
			require.NoError(t, err)
			assert.True(t, q.TotalAmount.Equal(dec(tt.want)), "got %s", q.TotalAmount)
			assert.True(t, q.Gross().Equal(dec("105.25")))
		})
	}
}

func TestQuote_Revise_PriceOverride(t *testing.T) {
	clientID := uuid.New()
	tr := uuid.New()
	override := dec("10")
	q, err := NewQuote(clientID, time.Now())
	require.NoError(t, err)

	err = q.Revise(clientID, []LineInput{{TreatmentID: tr, Quantity: 3, Price: &override}}, nil, decimal.Zero, nil, "note")
	require.NoError(t, err)
	require.Len(t, q.Lines, 1)
	assert.True(t, q.Lines[0].PriceAtQuote.Equal(override))
	assert.True(t, q.TotalAmount.Equal(dec("30")))
	assert.Equal(t, "note", q.Notes)
}

func TestQuote_Revise_Validation(t *testing.T) {
	clientID := uuid.New()
	tr := uuid.New()
	prices := map[uuid.UUID]decimal.Decimal{tr: dec("10")}
	q, err := NewQuote(clientID, time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	t.Run("negative discount", func(t *testing.T) {
		err := q.Revise(clientID, []LineInput{{TreatmentID: tr, Quantity: 1}}, prices, dec("-1"), nil, "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("no lines", func(t *testing.T) {
		err := q.Revise(clientID, nil, prices, decimal.Zero, nil, "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("zero quantity", func(t *testing.T) {
		err := q.Revise(clientID, []LineInput{{TreatmentID: tr, Quantity: 0}}, prices, decimal.Zero, nil, "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("unknown treatment", func(t *testing.T) {
		err := q.Revise(clientID, []LineInput{{TreatmentID: uuid.New(), Quantity: 1}}, prices, decimal.Zero, nil, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("expiration before quote date", func(t *testing.T) {
		exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		err := q.Revise(clientID, []LineInput{{TreatmentID: tr, Quantity: 1}}, prices, decimal.Zero, &exp, "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestQuote_ChangeStatus(t *testing.T) {
	newPending := func() *Quote {
		q, err := NewQuote(uuid.New(), time.Now())
		require.NoError(t, err)
		return q
	}

	for _, target := range []QuoteStatus{QuoteStatusApproved, QuoteStatusRejected, QuoteStatusExpired, QuoteStatusInvoiced} {
		t.Run("pending to "+string(target), func(t *testing.T) {
			q := newPending()
			require.NoError(t, q.ChangeStatus(target))
			assert.Equal(t, target, q.Status)
		})
	}

	t.Run("same status is a no-op", func(t *testing.T) {
		q := newPending()
		require.NoError(t, q.ChangeStatus(QuoteStatusApproved))
		assert.NoError(t, q.ChangeStatus(QuoteStatusApproved))
	})

	t.Run("terminal statuses do not move", func(t *testing.T) {
		q := newPending()
		require.NoError(t, q.ChangeStatus(QuoteStatusRejected))
		assert.ErrorIs(t, q.ChangeStatus(QuoteStatusApproved), shared.ErrInvalidState)
		assert.ErrorIs(t, q.ChangeStatus(QuoteStatusPending), shared.ErrInvalidState)
	})

	t.Run("unknown status", func(t *testing.T) {
		q := newPending()
		assert.ErrorIs(t, q.ChangeStatus("draft"), shared.ErrValidationFailed)
	})
}
