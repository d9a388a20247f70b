package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/dentalclinic/backend/internal/domain/history"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormClientTreatmentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormClientTreatmentRepository(newTestDatabase(t).DB)
	clientID, treatmentID, appointmentID := uuid.New(), uuid.New(), uuid.New()

	standalone, err := history.NewClientTreatment(clientID, treatmentID, 3, 1, time.Now())
	require.NoError(t, err)
	tagged, err := history.NewClientTreatment(clientID, treatmentID, 2, 0, time.Now())
	require.NoError(t, err)
	tagged.ForAppointment(appointmentID)
	require.NoError(t, repo.CreateBatch(ctx, []*history.ClientTreatment{standalone, tagged}))

	t.Run("key lookup distinguishes null sources", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, clientID, treatmentID, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, standalone.ID, found.ID)

		found, err = repo.FindByKey(ctx, clientID, treatmentID, &appointmentID, nil)
		require.NoError(t, err)
		assert.Equal(t, tagged.ID, found.ID)

		quoteID := uuid.New()
		_, err = repo.FindByKey(ctx, clientID, treatmentID, nil, &quoteID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("advance persists", func(t *testing.T) {
		require.NoError(t, standalone.Advance(5, "done", nil))
		require.NoError(t, repo.Save(ctx, standalone))
		found, err := repo.FindByID(ctx, standalone.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, found.CompletedQuantity)
		assert.True(t, found.IsCompleted())
	})

	t.Run("delete by appointment", func(t *testing.T) {
		require.NoError(t, repo.DeleteByAppointment(ctx, appointmentID))
		rows, err := repo.FindByClient(ctx, clientID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, history.SourceRecord, rows[0].Source())
	})
}

func TestGormMedicalRecordRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMedicalRecordRepository(newTestDatabase(t).DB)
	clientID := uuid.New()

	older, err := history.NewMedicalRecord(clientID, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	newer, err := history.NewMedicalRecord(clientID, time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	newer.Update(newer.RecordDate, "Caries", "Filling on 36", "")
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	records, err := repo.FindByClient(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Caries", records[0].Diagnosis)

	require.NoError(t, repo.Delete(ctx, older.ID))
	assert.ErrorIs(t, repo.Delete(ctx, older.ID), shared.ErrNotFound)
	require.NoError(t, repo.DeleteByClient(ctx, clientID))
	records, err = repo.FindByClient(ctx, clientID)
	require.NoError(t, err)
	assert.Empty(t, records)
}
