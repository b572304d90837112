package repositories

import (
	"context"
	"time"

	"github.com/ekmjt/MediQ/internal/domain/entities"
)

// ScheduleUpdate is one row of a recompute pass: the derived fields the
// scheduler writes back for a single entry.
type ScheduleUpdate struct {
	ID            string
	PriorityScore float64
	Position      int
	WaitMinutes   float64
}

// SeverityUpdate carries the mutable severity-related fields written by
// escalation, self-lowering, and check-in responses.
type SeverityUpdate struct {
	SeverityScore  float64
	Category       string
	DemotionFactor float64
	LastCheckedAt  *time.Time
}

// QueueRepository defines the interface for queue entry data operations.
// It is the sole writer of severity, status, and timestamps.
type QueueRepository interface {
	// Create creates a new queue entry in Waiting status
	Create(ctx context.Context, entry *entities.QueueEntry) error

	// GetByID retrieves a queue entry by ID
	GetByID(ctx context.Context, id string) (*entities.QueueEntry, error)

	// FindWaitingByPatient retrieves the patient's current Waiting entry,
	// if any. Returns a NotFoundError when the patient is not waiting.
	FindWaitingByPatient(ctx context.Context, patientID string) (*entities.QueueEntry, error)

	// ListWaiting returns a snapshot of all Waiting entries. Ordering is
	// not guaranteed by this call alone.
	ListWaiting(ctx context.Context) ([]*entities.QueueEntry, error)

	// ApplyScheduleUpdates bulk-applies recomputed scores and positions.
	// Missing entries are skipped and reported; one stale id does not
	// abort the rest of the batch.
	ApplyScheduleUpdates(ctx context.Context, updates []ScheduleUpdate) (missing []string, err error)

	// UpdateSeverity writes the severity-related fields of one entry
	UpdateSeverity(ctx context.Context, id string, update SeverityUpdate) error

	// SetLastCheckedAt records a successful check-in contact
	SetLastCheckedAt(ctx context.Context, id string, at time.Time) error

	// SetStatus transitions the entry's status. Only Waiting entries may
	// transition; terminal statuses are sinks.
	SetStatus(ctx context.Context, id string, status entities.QueueStatus) error
}
