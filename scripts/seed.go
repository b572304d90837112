package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ekmjt/MediQ/internal/adapters/database"
	"github.com/ekmjt/MediQ/internal/application/services"
	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/postgres"
	"github.com/ekmjt/MediQ/pkg/config"
)

// Seeds a demo waiting room: a handful of patients with varying
// severity and arrival times, then one scheduling pass to assign
// positions. Run with RESET_DB=true to wipe the tables first.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database, nil)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				check_in_logs,
				queue_entries,
				patients
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to truncate tables: %v", err)
		}
	}

	patientRepo := database.NewPatientAdapter(pgClient)
	queueRepo := database.NewQueueAdapter(pgClient)

	seeds := []struct {
		name        string
		severity    float64
		arrivedMins int
	}{
		{"Amara Okafor", 9, 5},
		{"Jon Eriksen", 7, 45},
		{"Lucia Mendes", 5, 130},
		{"Priya Nair", 5, 10},
		{"Tomasz Kowalski", 3, 80},
		{"Mei Lin", 2, 20},
	}

	for _, s := range seeds {
		patient := &entities.Patient{
			ID:        uuid.New().String(),
			SessionID: uuid.New().String(),
			Name:      s.name,
			CreatedAt: time.Now().Add(-time.Duration(s.arrivedMins) * time.Minute),
		}
		if err := patientRepo.Create(ctx, patient); err != nil {
			log.Fatalf("Failed to seed patient %s: %v", s.name, err)
		}

		entry := &entities.QueueEntry{
			ID:             uuid.New().String(),
			PatientID:      patient.ID,
			SeverityScore:  s.severity,
			Category:       triage.CategoryFor(s.severity),
			Status:         entities.QueueStatusWaiting,
			DemotionFactor: 1.0,
			CreatedAt:      patient.CreatedAt,
		}
		if err := queueRepo.Create(ctx, entry); err != nil {
			log.Fatalf("Failed to seed queue entry for %s: %v", s.name, err)
		}
		log.Printf("Seeded %s (severity %.0f, waiting %dm)", s.name, s.severity, s.arrivedMins)
	}

	queueService := services.NewQueueService(queueRepo, nil, nil, triage.DefaultWeights(), cfg.Triage.DampingFactor)
	ordered, err := queueService.Recompute(ctx)
	if err != nil {
		log.Fatalf("Failed to run scheduling pass: %v", err)
	}

	log.Println("Queue order:")
	for _, e := range ordered {
		log.Printf("  %d. patient=%s severity=%.0f score=%.2f", e.Position, e.PatientID, e.SeverityScore, e.PriorityScore)
	}
}
