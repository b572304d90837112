package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/postgres"
	apperrors "github.com/ekmjt/MediQ/pkg/errors"
)

// CheckInLogAdapter implements the CheckInLogRepository interface
type CheckInLogAdapter struct {
	db *sqlx.DB
}

// NewCheckInLogAdapter creates a new check-in log adapter
func NewCheckInLogAdapter(client *postgres.Client) repositories.CheckInLogRepository {
	return &CheckInLogAdapter{
		db: sqlx.NewDb(client.DB(), "postgres"),
	}
}

// Create appends one check-in response record
func (a *CheckInLogAdapter) Create(ctx context.Context, log *entities.CheckInLog) error {
	query := `
		INSERT INTO check_in_logs (id, patient_id, queue_entry_id, response, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := a.db.ExecContext(ctx, query,
		log.ID, log.PatientID, log.QueueEntryID, log.Response, log.CreatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to create check-in log", err)
	}
	return nil
}

// ListByEntry retrieves check-in records for a queue entry
func (a *CheckInLogAdapter) ListByEntry(ctx context.Context, entryID string) ([]*entities.CheckInLog, error) {
	var logs []*entities.CheckInLog
	query := `
		SELECT id, patient_id, queue_entry_id, response, created_at
		FROM check_in_logs
		WHERE queue_entry_id = $1
		ORDER BY created_at
	`
	if err := a.db.SelectContext(ctx, &logs, query, entryID); err != nil {
		return nil, apperrors.NewInternalError("failed to list check-in logs", err)
	}
	return logs, nil
}
