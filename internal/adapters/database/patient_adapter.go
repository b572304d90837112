package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/postgres"
	apperrors "github.com/ekmjt/MediQ/pkg/errors"
)

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new patient
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	record := goqu.Record{
		"id":         patient.ID,
		"session_id": patient.SessionID,
		"name":       patient.Name,
		"phone":      patient.Phone,
		"created_at": patient.CreatedAt,
	}

	query, args, err := a.db.Insert("patients").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create patient", err)
	}

	return nil
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	return a.getByField(ctx, "id", id)
}

// GetBySessionID retrieves a patient by session token
func (a *PatientAdapter) GetBySessionID(ctx context.Context, sessionID string) (*entities.Patient, error) {
	return a.getByField(ctx, "session_id", sessionID)
}

func (a *PatientAdapter) getByField(ctx context.Context, field, value string) (*entities.Patient, error) {
	query, args, err := a.db.Select("id", "session_id", "name", "phone", "created_at").
		From("patients").
		Where(goqu.Ex{field: value}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient := &entities.Patient{}
	var name, phone sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&patient.ID,
		&patient.SessionID,
		&name,
		&phone,
		&patient.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with %s %s not found", field, value))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}

	patient.Name = name.String
	patient.Phone = phone.String

	return patient, nil
}
