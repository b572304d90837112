package repositories

import (
	"context"

	"github.com/ekmjt/MediQ/internal/domain/entities"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	// Create creates a new patient
	Create(ctx context.Context, patient *entities.Patient) error

	// GetByID retrieves a patient by ID
	GetByID(ctx context.Context, id string) (*entities.Patient, error)

	// GetBySessionID retrieves a patient by session token
	GetBySessionID(ctx context.Context, sessionID string) (*entities.Patient, error)
}

// CheckInLogRepository defines the interface for check-in audit records
type CheckInLogRepository interface {
	// Create appends one check-in response record
	Create(ctx context.Context, log *entities.CheckInLog) error

	// ListByEntry retrieves check-in records for a queue entry
	ListByEntry(ctx context.Context, entryID string) ([]*entities.CheckInLog, error)
}
