package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmjt/MediQ/internal/adapters/database"
	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/postgres"
	apperrors "github.com/ekmjt/MediQ/pkg/errors"
)

func setupMockQueueDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, repositories.QueueRepository) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	adapter := database.NewQueueAdapter(postgres.NewClientWithDB(db))
	return db, mock, adapter
}

func queueRows(entries ...*entities.QueueEntry) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "severity_score", "priority_score", "category",
		"wait_minutes", "position", "status", "demotion_factor",
		"created_at", "last_checked_at",
	})
	for _, e := range entries {
		var lastChecked interface{}
		if e.LastCheckedAt != nil {
			lastChecked = *e.LastCheckedAt
		}
		rows.AddRow(
			e.ID, e.PatientID, e.SeverityScore, e.PriorityScore, string(e.Category),
			e.WaitMinutes, e.Position, string(e.Status), e.DemotionFactor,
			e.CreatedAt, lastChecked,
		)
	}
	return rows
}

func TestQueueAdapter_Create(t *testing.T) {
	t.Run("inserts a waiting entry", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO "queue_entries"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		entry := &entities.QueueEntry{
			ID:             "entry-1",
			PatientID:      "patient-1",
			SeverityScore:  8,
			Status:         entities.QueueStatusWaiting,
			DemotionFactor: 1,
			CreatedAt:      time.Now(),
		}

		err := adapter.Create(context.Background(), entry)

		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps a unique violation to a conflict", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO "queue_entries"`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "queue_entries_one_waiting_per_patient"})

		err := adapter.Create(context.Background(), &entities.QueueEntry{
			ID:             "entry-2",
			PatientID:      "patient-1",
			SeverityScore:  6,
			Status:         entities.QueueStatusWaiting,
			DemotionFactor: 1,
			CreatedAt:      time.Now(),
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects severity outside range without touching the database", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		err := adapter.Create(context.Background(), &entities.QueueEntry{
			ID:            "entry-1",
			PatientID:     "patient-1",
			SeverityScore: 12,
		})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueueAdapter_FindWaitingByPatient(t *testing.T) {
	t.Run("returns the waiting entry", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		created := time.Now().Add(-10 * time.Minute)
		mock.ExpectQuery(`SELECT .+ FROM "queue_entries"`).
			WillReturnRows(queueRows(&entities.QueueEntry{
				ID:             "entry-1",
				PatientID:      "patient-1",
				SeverityScore:  7,
				PriorityScore:  4.9,
				Category:       "High",
				Position:       1,
				Status:         entities.QueueStatusWaiting,
				DemotionFactor: 1,
				CreatedAt:      created,
			}))

		entry, err := adapter.FindWaitingByPatient(context.Background(), "patient-1")

		require.NoError(t, err)
		assert.Equal(t, "entry-1", entry.ID)
		assert.Nil(t, entry.LastCheckedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps no rows to a not found error", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT .+ FROM "queue_entries"`).
			WillReturnError(sql.ErrNoRows)

		_, err := adapter.FindWaitingByPatient(context.Background(), "missing")

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestQueueAdapter_ApplyScheduleUpdates(t *testing.T) {
	t.Run("skips missing entries and continues the batch", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		// First entry vanished (withdrawn concurrently), second still waiting.
		mock.ExpectExec(`UPDATE "queue_entries"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE "queue_entries"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		missing, err := adapter.ApplyScheduleUpdates(context.Background(), []repositories.ScheduleUpdate{
			{ID: "gone", PriorityScore: 5.6, Position: 1, WaitMinutes: 12},
			{ID: "entry-2", PriorityScore: 3.5, Position: 2, WaitMinutes: 12},
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"gone"}, missing)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueueAdapter_SetStatus(t *testing.T) {
	t.Run("transitions a waiting entry", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE "queue_entries"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := adapter.SetStatus(context.Background(), "entry-1", entities.QueueStatusCompleted)

		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects transition into waiting", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		err := adapter.SetStatus(context.Background(), "entry-1", entities.QueueStatusWaiting)

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports invalid transition when the entry already left waiting", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE "queue_entries"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT .+ FROM "queue_entries"`).
			WillReturnRows(queueRows(&entities.QueueEntry{
				ID:             "entry-1",
				PatientID:      "patient-1",
				SeverityScore:  5,
				Category:       "Medium",
				Status:         entities.QueueStatusCompleted,
				DemotionFactor: 1,
				CreatedAt:      time.Now(),
			}))

		err := adapter.SetStatus(context.Background(), "entry-1", entities.QueueStatusCompleted)

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))
	})
}

func TestQueueAdapter_SetLastCheckedAt(t *testing.T) {
	t.Run("returns not found when no waiting row matches", func(t *testing.T) {
		db, mock, adapter := setupMockQueueDB(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE "queue_entries"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.SetLastCheckedAt(context.Background(), "entry-1", time.Now())

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}
