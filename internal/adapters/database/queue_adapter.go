package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/postgres"
	apperrors "github.com/ekmjt/MediQ/pkg/errors"
)

// QueueAdapter implements the QueueRepository interface on PostgreSQL
type QueueAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewQueueAdapter creates a new queue adapter
func NewQueueAdapter(client *postgres.Client) repositories.QueueRepository {
	return &QueueAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var queueColumns = []interface{}{
	"id", "patient_id", "severity_score", "priority_score", "category",
	"wait_minutes", "position", "status", "demotion_factor",
	"created_at", "last_checked_at",
}

// Create creates a new queue entry
func (a *QueueAdapter) Create(ctx context.Context, entry *entities.QueueEntry) error {
	if entry.SeverityScore < triage.MinSeverity || entry.SeverityScore > triage.MaxSeverity {
		return apperrors.NewValidationError(
			fmt.Sprintf("severity score %.1f outside [1,10]", entry.SeverityScore))
	}

	record := goqu.Record{
		"id":              entry.ID,
		"patient_id":      entry.PatientID,
		"severity_score":  entry.SeverityScore,
		"priority_score":  entry.PriorityScore,
		"category":        entry.Category,
		"wait_minutes":    entry.WaitMinutes,
		"position":        entry.Position,
		"status":          entry.Status,
		"demotion_factor": entry.DemotionFactor,
		"created_at":      entry.CreatedAt,
		"last_checked_at": entry.LastCheckedAt,
	}

	query, args, err := a.db.Insert("queue_entries").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		// The partial unique index on (patient_id) WHERE status =
		// 'waiting' backstops the one-waiting-entry rule across
		// instances.
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.NewConflictError(
				fmt.Sprintf("patient %s already has a waiting entry", entry.PatientID))
		}
		return apperrors.NewInternalError("failed to create queue entry", err)
	}

	return nil
}

// GetByID retrieves a queue entry by ID
func (a *QueueAdapter) GetByID(ctx context.Context, id string) (*entities.QueueEntry, error) {
	query, args, err := a.db.Select(queueColumns...).
		From("queue_entries").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	entry, err := scanQueueEntry(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("queue entry %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get queue entry", err)
	}

	return entry, nil
}

// FindWaitingByPatient retrieves the patient's current Waiting entry
func (a *QueueAdapter) FindWaitingByPatient(ctx context.Context, patientID string) (*entities.QueueEntry, error) {
	query, args, err := a.db.Select(queueColumns...).
		From("queue_entries").
		Where(goqu.Ex{
			"patient_id": patientID,
			"status":     entities.QueueStatusWaiting,
		}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	entry, err := scanQueueEntry(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("no waiting entry for patient %s", patientID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to find waiting entry", err)
	}

	return entry, nil
}

// ListWaiting returns all Waiting entries
func (a *QueueAdapter) ListWaiting(ctx context.Context) ([]*entities.QueueEntry, error) {
	query, args, err := a.db.Select(queueColumns...).
		From("queue_entries").
		Where(goqu.Ex{"status": entities.QueueStatusWaiting}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list waiting entries", err)
	}
	defer rows.Close()

	var entries []*entities.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan queue entry", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// ApplyScheduleUpdates bulk-applies recomputed scores and positions.
// A missing id is reported and skipped; the rest of the batch proceeds.
func (a *QueueAdapter) ApplyScheduleUpdates(ctx context.Context, updates []repositories.ScheduleUpdate) ([]string, error) {
	var missing []string

	for _, u := range updates {
		query, args, err := a.db.Update("queue_entries").
			Set(goqu.Record{
				"priority_score": u.PriorityScore,
				"position":       u.Position,
				"wait_minutes":   u.WaitMinutes,
			}).
			Where(goqu.Ex{
				"id":     u.ID,
				"status": entities.QueueStatusWaiting,
			}).
			ToSQL()
		if err != nil {
			return missing, apperrors.NewInternalError("failed to build update query", err)
		}

		result, err := a.client.DB().ExecContext(ctx, query, args...)
		if err != nil {
			return missing, apperrors.NewInternalError("failed to apply schedule update", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return missing, apperrors.NewInternalError("failed to get rows affected", err)
		}
		if rowsAffected == 0 {
			missing = append(missing, u.ID)
		}
	}

	return missing, nil
}

// UpdateSeverity writes the severity-related fields of one entry
func (a *QueueAdapter) UpdateSeverity(ctx context.Context, id string, update repositories.SeverityUpdate) error {
	record := goqu.Record{
		"severity_score":  update.SeverityScore,
		"category":        update.Category,
		"demotion_factor": update.DemotionFactor,
	}
	if update.LastCheckedAt != nil {
		record["last_checked_at"] = *update.LastCheckedAt
	}

	query, args, err := a.db.Update("queue_entries").
		Set(record).
		Where(goqu.Ex{
			"id":     id,
			"status": entities.QueueStatusWaiting,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build severity update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update severity", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("no waiting entry %s", id))
	}

	return nil
}

// SetLastCheckedAt records a successful check-in contact
func (a *QueueAdapter) SetLastCheckedAt(ctx context.Context, id string, at time.Time) error {
	query, args, err := a.db.Update("queue_entries").
		Set(goqu.Record{"last_checked_at": at}).
		Where(goqu.Ex{
			"id":     id,
			"status": entities.QueueStatusWaiting,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build check-in update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to record check-in", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("no waiting entry %s", id))
	}

	return nil
}

// SetStatus transitions the entry's status, enforcing the Waiting-only
// transition rule in the same statement to avoid a read-check-write race.
func (a *QueueAdapter) SetStatus(ctx context.Context, id string, status entities.QueueStatus) error {
	if !entities.QueueStatusWaiting.CanTransitionTo(status) {
		return apperrors.NewInvalidTransitionError(
			fmt.Sprintf("cannot transition to %s", status))
	}

	query, args, err := a.db.Update("queue_entries").
		Set(goqu.Record{"status": status}).
		Where(goqu.Ex{
			"id":     id,
			"status": entities.QueueStatusWaiting,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build status update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to set status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		// Either the entry does not exist or it already left Waiting.
		if _, getErr := a.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return apperrors.NewInvalidTransitionError(
			fmt.Sprintf("entry %s is no longer waiting", id))
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQueueEntry(row rowScanner) (*entities.QueueEntry, error) {
	entry := &entities.QueueEntry{}
	var lastCheckedAt sql.NullTime

	err := row.Scan(
		&entry.ID,
		&entry.PatientID,
		&entry.SeverityScore,
		&entry.PriorityScore,
		&entry.Category,
		&entry.WaitMinutes,
		&entry.Position,
		&entry.Status,
		&entry.DemotionFactor,
		&entry.CreatedAt,
		&lastCheckedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastCheckedAt.Valid {
		entry.LastCheckedAt = &lastCheckedAt.Time
	}

	return entry, nil
}
