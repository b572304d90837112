package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	apperrors "github.com/ekmjt/MediQ/pkg/errors"
)

// PatientAdapter is an in-memory implementation of the PatientRepository
type PatientAdapter struct {
	mu       sync.RWMutex
	patients map[string]*entities.Patient
}

// NewPatientAdapter creates a new in-memory patient adapter
func NewPatientAdapter() *PatientAdapter {
	return &PatientAdapter{
		patients: make(map[string]*entities.Patient),
	}
}

// Create creates a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.patients[patient.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("patient %s already exists", patient.ID))
	}

	stored := *patient
	a.patients[patient.ID] = &stored
	return nil
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	patient, ok := a.patients[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient %s not found", id))
	}

	copied := *patient
	return &copied, nil
}

// GetBySessionID retrieves a patient by session token
func (a *PatientAdapter) GetBySessionID(ctx context.Context, sessionID string) (*entities.Patient, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, patient := range a.patients {
		if patient.SessionID == sessionID {
			copied := *patient
			return &copied, nil
		}
	}

	return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with session %s not found", sessionID))
}

// CheckInLogAdapter is an in-memory implementation of the CheckInLogRepository
type CheckInLogAdapter struct {
	mu   sync.RWMutex
	logs []*entities.CheckInLog
}

// NewCheckInLogAdapter creates a new in-memory check-in log adapter
func NewCheckInLogAdapter() *CheckInLogAdapter {
	return &CheckInLogAdapter{}
}

// Create appends one check-in response record
func (a *CheckInLogAdapter) Create(ctx context.Context, log *entities.CheckInLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored := *log
	a.logs = append(a.logs, &stored)
	return nil
}

// ListByEntry retrieves check-in records for a queue entry
func (a *CheckInLogAdapter) ListByEntry(ctx context.Context, entryID string) ([]*entities.CheckInLog, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var matched []*entities.CheckInLog
	for _, log := range a.logs {
		if log.QueueEntryID == entryID {
			copied := *log
			matched = append(matched, &copied)
		}
	}

	return matched, nil
}
