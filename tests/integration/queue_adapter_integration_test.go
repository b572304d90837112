//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmjt/MediQ/internal/adapters/database"
	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	apperrors "github.com/ekmjt/MediQ/pkg/errors"
)

func seedQueueEntry(t *testing.T, repo repositories.QueueRepository, patientID string, severity float64) *entities.QueueEntry {
	t.Helper()
	entry := &entities.QueueEntry{
		ID:             uuid.New().String(),
		PatientID:      patientID,
		SeverityScore:  severity,
		Category:       triage.CategoryFor(severity),
		Status:         entities.QueueStatusWaiting,
		DemotionFactor: 1.0,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	return entry
}

func TestQueueAdapterLifecycle(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}

	client := newTestPostgresClient(t)
	defer client.Close()

	repo := database.NewQueueAdapter(client)
	ctx := context.Background()

	entry := seedQueueEntry(t, repo, "patient-a", 7)

	found, err := repo.FindWaitingByPatient(ctx, "patient-a")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, found.ID)
	assert.Equal(t, triage.CategoryHigh, found.Category)

	// The partial unique index rejects a second waiting entry for the
	// same patient.
	err = repo.Create(ctx, &entities.QueueEntry{
		ID:             uuid.New().String(),
		PatientID:      "patient-a",
		SeverityScore:  5,
		Category:       triage.CategoryMedium,
		Status:         entities.QueueStatusWaiting,
		DemotionFactor: 1.0,
		CreatedAt:      time.Now().UTC(),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	missing, err := repo.ApplyScheduleUpdates(ctx, []repositories.ScheduleUpdate{
		{ID: entry.ID, PriorityScore: 4.9, Position: 1, WaitMinutes: 0},
		{ID: uuid.New().String(), PriorityScore: 1, Position: 2, WaitMinutes: 0},
	})
	require.NoError(t, err)
	assert.Len(t, missing, 1)

	updated, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Position)
	assert.InDelta(t, 4.9, updated.PriorityScore, 0.001)

	now := time.Now().UTC()
	require.NoError(t, repo.SetLastCheckedAt(ctx, entry.ID, now))

	require.NoError(t, repo.SetStatus(ctx, entry.ID, entities.QueueStatusCompleted))

	_, err = repo.FindWaitingByPatient(ctx, "patient-a")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	// Terminal entries reject further transitions.
	err = repo.SetStatus(ctx, entry.ID, entities.QueueStatusCancelled)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))
}

func TestQueueAdapterSeverityUpdates(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}

	client := newTestPostgresClient(t)
	defer client.Close()

	repo := database.NewQueueAdapter(client)
	ctx := context.Background()

	entry := seedQueueEntry(t, repo, "patient-a", 5)

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateSeverity(ctx, entry.ID, repositories.SeverityUpdate{
		SeverityScore:  6,
		Category:       string(triage.CategoryMedium),
		DemotionFactor: 0.8,
		LastCheckedAt:  &now,
	}))

	updated, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, updated.SeverityScore)
	assert.InDelta(t, 0.8, updated.DemotionFactor, 0.001)
	require.NotNil(t, updated.LastCheckedAt)
}
