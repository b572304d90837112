package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	apperrors "github.com/ekmjt/MediQ/pkg/errors"
)

// QueueAdapter is an in-memory implementation of the QueueRepository. It
// backs the service when no database is configured and the scheduler's
// unit tests.
type QueueAdapter struct {
	mu      sync.RWMutex
	entries map[string]*entities.QueueEntry
}

// NewQueueAdapter creates a new in-memory queue adapter
func NewQueueAdapter() *QueueAdapter {
	return &QueueAdapter{
		entries: make(map[string]*entities.QueueEntry),
	}
}

// Create creates a new queue entry
func (a *QueueAdapter) Create(ctx context.Context, entry *entities.QueueEntry) error {
	if entry.SeverityScore < triage.MinSeverity || entry.SeverityScore > triage.MaxSeverity {
		return apperrors.NewValidationError(
			fmt.Sprintf("severity score %.1f outside [1,10]", entry.SeverityScore))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.entries[entry.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("queue entry %s already exists", entry.ID))
	}
	if entry.Status == entities.QueueStatusWaiting {
		for _, existing := range a.entries {
			if existing.PatientID == entry.PatientID && existing.Status == entities.QueueStatusWaiting {
				return apperrors.NewConflictError(
					fmt.Sprintf("patient %s already has a waiting entry", entry.PatientID))
			}
		}
	}

	stored := *entry
	a.entries[entry.ID] = &stored
	return nil
}

// GetByID retrieves a queue entry by ID
func (a *QueueAdapter) GetByID(ctx context.Context, id string) (*entities.QueueEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.entries[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("queue entry %s not found", id))
	}

	copied := *entry
	return &copied, nil
}

// FindWaitingByPatient retrieves the patient's current Waiting entry
func (a *QueueAdapter) FindWaitingByPatient(ctx context.Context, patientID string) (*entities.QueueEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, entry := range a.entries {
		if entry.PatientID == patientID && entry.Status == entities.QueueStatusWaiting {
			copied := *entry
			return &copied, nil
		}
	}

	return nil, apperrors.NewNotFoundError(fmt.Sprintf("no waiting entry for patient %s", patientID))
}

// ListWaiting returns a snapshot of all Waiting entries
func (a *QueueAdapter) ListWaiting(ctx context.Context) ([]*entities.QueueEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var waiting []*entities.QueueEntry
	for _, entry := range a.entries {
		if entry.Status == entities.QueueStatusWaiting {
			copied := *entry
			waiting = append(waiting, &copied)
		}
	}

	return waiting, nil
}

// ApplyScheduleUpdates bulk-applies recomputed scores and positions
func (a *QueueAdapter) ApplyScheduleUpdates(ctx context.Context, updates []repositories.ScheduleUpdate) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var missing []string
	for _, u := range updates {
		entry, ok := a.entries[u.ID]
		if !ok || entry.Status != entities.QueueStatusWaiting {
			missing = append(missing, u.ID)
			continue
		}
		entry.PriorityScore = u.PriorityScore
		entry.Position = u.Position
		entry.WaitMinutes = u.WaitMinutes
	}

	return missing, nil
}

// UpdateSeverity writes the severity-related fields of one entry
func (a *QueueAdapter) UpdateSeverity(ctx context.Context, id string, update repositories.SeverityUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[id]
	if !ok || entry.Status != entities.QueueStatusWaiting {
		return apperrors.NewNotFoundError(fmt.Sprintf("no waiting entry %s", id))
	}

	entry.SeverityScore = update.SeverityScore
	entry.Category = triage.Category(update.Category)
	entry.DemotionFactor = update.DemotionFactor
	if update.LastCheckedAt != nil {
		at := *update.LastCheckedAt
		entry.LastCheckedAt = &at
	}

	return nil
}

// SetLastCheckedAt records a successful check-in contact
func (a *QueueAdapter) SetLastCheckedAt(ctx context.Context, id string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[id]
	if !ok || entry.Status != entities.QueueStatusWaiting {
		return apperrors.NewNotFoundError(fmt.Sprintf("no waiting entry %s", id))
	}

	checked := at
	entry.LastCheckedAt = &checked
	return nil
}

// SetStatus transitions the entry's status
func (a *QueueAdapter) SetStatus(ctx context.Context, id string, status entities.QueueStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("queue entry %s not found", id))
	}

	if !entry.Status.CanTransitionTo(status) {
		return apperrors.NewInvalidTransitionError(
			fmt.Sprintf("cannot transition %s from %s to %s", id, entry.Status, status))
	}

	entry.Status = status
	return nil
}
