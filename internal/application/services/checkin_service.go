package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/providers"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/infrastructure/observability"
	"github.com/ekmjt/MediQ/pkg/errors"
)

// CheckInService periodically prompts waiting patients to confirm they
// are still present and records their responses. A patient is due when
// the interval has elapsed since their last successful contact, which
// is the later of arrival and last check-in. Failed deliveries are not
// recorded as contact, so the next firing retries them.
type CheckInService struct {
	repo         repositories.QueueRepository
	logRepo      repositories.CheckInLogRepository
	queueService *QueueService
	notifier     providers.Notifier
	metrics      *observability.Metrics
	logger       zerolog.Logger

	interval        time.Duration
	deliveryTimeout time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewCheckInService creates a new check-in service
func NewCheckInService(
	repo repositories.QueueRepository,
	logRepo repositories.CheckInLogRepository,
	queueService *QueueService,
	notifier providers.Notifier,
	metrics *observability.Metrics,
	interval time.Duration,
	deliveryTimeout time.Duration,
) *CheckInService {
	return &CheckInService{
		repo:            repo,
		logRepo:         logRepo,
		queueService:    queueService,
		notifier:        notifier,
		metrics:         metrics,
		logger:          *observability.GetLogger(),
		interval:        interval,
		deliveryTimeout: deliveryTimeout,
		stop:            make(chan struct{}),
		now:             time.Now,
	}
}

// Start launches the check-in ticker. It runs until Stop is called or
// the context is cancelled.
func (s *CheckInService) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info().
			Dur("interval", s.interval).
			Msg("Check-in ticker started")

		for {
			select {
			case <-ticker.C:
				s.runCycle(ctx)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop shuts the ticker down and waits for any in-flight cycle
func (s *CheckInService) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.logger.Info().Msg("Check-in ticker stopped")
}

// runCycle prompts every due patient once. A failure for one entry
// never prevents the rest of the pass from running.
func (s *CheckInService) runCycle(ctx context.Context) {
	entries, err := s.repo.ListWaiting(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Check-in cycle could not list waiting entries")
		return
	}

	now := s.now()
	for _, entry := range entries {
		if now.Sub(entry.LastContactAt()) < s.interval {
			continue
		}
		s.promptEntry(ctx, entry)
	}
}

func (s *CheckInService) promptEntry(ctx context.Context, entry *entities.QueueEntry) {
	event := entities.NewQueueEvent(entities.QueueEventTypeCheckInPrompt)
	event.PatientID = entry.PatientID
	event.EntryID = entry.ID
	event.Message = "Are you still waiting? Let us know how you are feeling."

	dctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	if err := s.notifier.Deliver(dctx, entry.PatientID, event); err != nil {
		observability.RecordCheckInDelivery(ctx, s.metrics, false)
		s.logger.Warn().
			Err(err).
			Str("patient_id", entry.PatientID).
			Str("entry_id", entry.ID).
			Msg("Check-in delivery failed, will retry next cycle")
		return
	}

	observability.RecordCheckInDelivery(ctx, s.metrics, true)
	if err := s.repo.SetLastCheckedAt(ctx, entry.ID, s.now()); err != nil {
		s.logger.Warn().
			Err(err).
			Str("entry_id", entry.ID).
			Msg("Failed to record check-in contact")
	}
}

// RecordResponse stores a patient's answer to a check-in prompt. A
// "worse" answer escalates the entry's severity; every answer counts
// as contact and resets the check-in clock.
func (s *CheckInService) RecordResponse(ctx context.Context, entryID string, response entities.CheckInResponse) (*entities.QueueEntry, error) {
	if !response.Valid() {
		return nil, errors.NewValidationError("response must be one of: better, same, worse")
	}

	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != entities.QueueStatusWaiting {
		return nil, errors.NewInvalidTransitionError("queue entry is no longer waiting")
	}

	logEntry := &entities.CheckInLog{
		ID:           uuid.New().String(),
		PatientID:    entry.PatientID,
		QueueEntryID: entry.ID,
		Response:     response,
		CreatedAt:    s.now(),
	}
	if err := s.logRepo.Create(ctx, logEntry); err != nil {
		s.logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("Failed to persist check-in log")
	}

	if response == entities.CheckInWorse {
		return s.queueService.Escalate(ctx, entry.ID)
	}

	if err := s.repo.SetLastCheckedAt(ctx, entry.ID, s.now()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, entry.ID)
}
