package entities

import (
	"time"

	"github.com/ekmjt/MediQ/internal/domain/triage"
)

// QueueStatus represents the lifecycle status of a queue entry
type QueueStatus string

const (
	QueueStatusWaiting    QueueStatus = "waiting"
	QueueStatusInProgress QueueStatus = "in_progress"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusCancelled  QueueStatus = "cancelled"
)

// CanTransitionTo reports whether the status may legally move to next.
// Waiting is the only non-terminal status.
func (s QueueStatus) CanTransitionTo(next QueueStatus) bool {
	if s != QueueStatusWaiting {
		return false
	}
	switch next {
	case QueueStatusInProgress, QueueStatusCompleted, QueueStatusCancelled:
		return true
	default:
		return false
	}
}

// QueueEntry represents one active waitlist membership
type QueueEntry struct {
	ID             string          `json:"id" db:"id"`
	PatientID      string          `json:"patient_id" db:"patient_id"`
	SeverityScore  float64         `json:"severity_score" db:"severity_score"`
	PriorityScore  float64         `json:"priority_score" db:"priority_score"`
	Category       triage.Category `json:"category" db:"category"`
	WaitMinutes    float64         `json:"wait_minutes" db:"wait_minutes"`
	Position       int             `json:"position" db:"position"`
	Status         QueueStatus     `json:"status" db:"status"`
	DemotionFactor float64         `json:"demotion_factor" db:"demotion_factor"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	LastCheckedAt  *time.Time      `json:"last_checked_at,omitempty" db:"last_checked_at"`
}

// LastContactAt returns the reference time for check-in eligibility:
// the last successful check-in, or arrival time if never checked.
func (e *QueueEntry) LastContactAt() time.Time {
	if e.LastCheckedAt != nil {
		return *e.LastCheckedAt
	}
	return e.CreatedAt
}

// QueueSnapshotItem is the consumer-facing view of one waiting entry
type QueueSnapshotItem struct {
	EntryID       string          `json:"entry_id"`
	PatientID     string          `json:"patient_id"`
	Position      int             `json:"position"`
	SeverityScore float64         `json:"severity_score"`
	Category      triage.Category `json:"category"`
	WaitMinutes   float64         `json:"wait_minutes"`
	CreatedAt     time.Time       `json:"created_at"`
}
