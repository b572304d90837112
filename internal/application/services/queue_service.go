package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/providers"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	"github.com/ekmjt/MediQ/internal/infrastructure/observability"
	"github.com/ekmjt/MediQ/pkg/errors"
)

// QueueService owns the waitlist lifecycle: admission, scheduling passes,
// position changes, and withdrawal. Scheduling passes and every
// read-modify-write of a waiting entry are serialized through a single
// mutex so concurrent triggers never interleave.
type QueueService struct {
	repo     repositories.QueueRepository
	eventBus providers.EventBus
	metrics  *observability.Metrics

	weights triage.Weights
	damping float64

	mu  sync.Mutex
	now func() time.Time
}

// NewQueueService creates a new queue service
func NewQueueService(
	repo repositories.QueueRepository,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
	weights triage.Weights,
	damping float64,
) *QueueService {
	return &QueueService{
		repo:     repo,
		eventBus: eventBus,
		metrics:  metrics,
		weights:  weights,
		damping:  damping,
		now:      time.Now,
	}
}

// Admit places a patient on the waitlist with the given severity score.
// A patient may hold at most one Waiting entry; a second admission is a
// conflict. The new entry's position is assigned by the scheduling pass
// that runs before Admit returns.
func (s *QueueService) Admit(ctx context.Context, patientID string, severityScore float64) (*entities.QueueEntry, error) {
	ctx, span := observability.StartSpan(ctx, "QueueService.Admit")
	defer span.End()

	if patientID == "" {
		return nil, errors.NewValidationError("patient id is required")
	}
	if severityScore < triage.MinSeverity || severityScore > triage.MaxSeverity {
		return nil, errors.NewValidationError("severity score must be between 1 and 10")
	}

	// The duplicate check and the create must not interleave with
	// another admission for the same patient.
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.FindWaitingByPatient(ctx, patientID)
	if err != nil && !errors.IsType(err, errors.ErrorTypeNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewConflictError("patient already has a waiting entry")
	}

	entry := &entities.QueueEntry{
		ID:             uuid.New().String(),
		PatientID:      patientID,
		SeverityScore:  severityScore,
		PriorityScore:  triage.PriorityScore(severityScore, 0, s.weights),
		Category:       triage.CategoryFor(severityScore),
		Status:         entities.QueueStatusWaiting,
		DemotionFactor: 1.0,
		CreatedAt:      s.now(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	ordered, err := s.recomputeLocked(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range ordered {
		if e.ID == entry.ID {
			entry = e
			break
		}
	}

	observability.RecordAdmission(ctx, s.metrics, string(entry.Category))
	s.publishToPatient(ctx, patientID, entities.QueueEventTypeAdmitted, entry)

	return entry, nil
}

// Recompute runs one scheduling pass: it rescores every Waiting entry
// from current wait time, orders the queue, and persists the resulting
// positions. Passes are globally serialized; callers racing to trigger
// one simply run back to back. Returns the queue in priority order.
func (s *QueueService) Recompute(ctx context.Context) ([]*entities.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeLocked(ctx)
}

// recomputeLocked is the scheduling pass body. Callers must hold s.mu.
func (s *QueueService) recomputeLocked(ctx context.Context) ([]*entities.QueueEntry, error) {
	start := s.now()

	entries, err := s.repo.ListWaiting(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, e := range entries {
		e.WaitMinutes = now.Sub(e.CreatedAt).Minutes()
		e.PriorityScore = triage.PriorityScore(e.SeverityScore, e.WaitMinutes, s.weights) * e.DemotionFactor
	}

	// Higher score first; ties go to the earlier arrival.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PriorityScore != entries[j].PriorityScore {
			return entries[i].PriorityScore > entries[j].PriorityScore
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	updates := make([]repositories.ScheduleUpdate, 0, len(entries))
	for i, e := range entries {
		e.Position = i + 1
		updates = append(updates, repositories.ScheduleUpdate{
			ID:            e.ID,
			PriorityScore: e.PriorityScore,
			Position:      e.Position,
			WaitMinutes:   e.WaitMinutes,
		})
	}

	missing, err := s.repo.ApplyScheduleUpdates(ctx, updates)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		// Entries that left Waiting mid-pass leave position gaps.
		// Renumber the survivors and persist the compacted positions
		// so the store matches what callers are handed back.
		entries = dropMissing(entries, missing)
		updates = updates[:0]
		for i, e := range entries {
			e.Position = i + 1
			updates = append(updates, repositories.ScheduleUpdate{
				ID:            e.ID,
				PriorityScore: e.PriorityScore,
				Position:      e.Position,
				WaitMinutes:   e.WaitMinutes,
			})
		}
		if _, err := s.repo.ApplyScheduleUpdates(ctx, updates); err != nil {
			return nil, err
		}
	}

	observability.RecordRecompute(ctx, s.metrics, len(entries), s.now().Sub(start))
	s.publishQueueUpdate(ctx, entries)

	return entries, nil
}

// SelfLower applies a voluntary demotion for the patient's waiting
// entry. The demotion is durable: the damping factor compounds across
// repeated requests and keeps scaling the score on every scheduling
// pass until an escalation resets it. Returns false when the patient
// has no waiting entry; that is not an error.
func (s *QueueService) SelfLower(ctx context.Context, patientID string) (bool, error) {
	// Read and write of the demotion factor must not interleave with a
	// concurrent escalation or another demotion.
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.repo.FindWaitingByPatient(ctx, patientID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return false, nil
		}
		return false, err
	}

	update := repositories.SeverityUpdate{
		SeverityScore:  entry.SeverityScore,
		Category:       string(entry.Category),
		DemotionFactor: entry.DemotionFactor * s.damping,
		LastCheckedAt:  entry.LastCheckedAt,
	}
	if err := s.repo.UpdateSeverity(ctx, entry.ID, update); err != nil {
		return false, err
	}

	if _, err := s.recomputeLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Escalate raises an entry's severity by one point, capped at the
// maximum. Escalation clears any accumulated demotion and counts as a
// fresh contact with the patient.
func (s *QueueService) Escalate(ctx context.Context, entryID string) (*entities.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != entities.QueueStatusWaiting {
		return nil, errors.NewNotFoundError("queue entry is no longer waiting")
	}

	now := s.now()
	severity := triage.ClampSeverity(entry.SeverityScore + 1)
	update := repositories.SeverityUpdate{
		SeverityScore:  severity,
		Category:       string(triage.CategoryFor(severity)),
		DemotionFactor: 1.0,
		LastCheckedAt:  &now,
	}
	if err := s.repo.UpdateSeverity(ctx, entry.ID, update); err != nil {
		return nil, err
	}

	ordered, err := s.recomputeLocked(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range ordered {
		if e.ID == entry.ID {
			entry = e
			break
		}
	}

	observability.RecordEscalation(ctx, s.metrics)
	return entry, nil
}

// Withdraw removes the patient's waiting entry from the queue. The
// entry moves to Completed and everyone behind it shifts up on the
// scheduling pass that follows.
func (s *QueueService) Withdraw(ctx context.Context, patientID string) error {
	entry, err := s.repo.FindWaitingByPatient(ctx, patientID)
	if err != nil {
		return err
	}

	if err := s.repo.SetStatus(ctx, entry.ID, entities.QueueStatusCompleted); err != nil {
		return err
	}

	if _, err := s.Recompute(ctx); err != nil {
		return err
	}

	s.publishToPatient(ctx, patientID, entities.QueueEventTypeWithdrawn, entry)
	return nil
}

// PositionOf returns the patient's waiting entry with a freshly
// computed position. A scheduling pass runs first so the answer
// reflects current wait times, not the last persisted ordering.
func (s *QueueService) PositionOf(ctx context.Context, patientID string) (*entities.QueueEntry, error) {
	ordered, err := s.Recompute(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range ordered {
		if e.PatientID == patientID {
			return e, nil
		}
	}
	return nil, errors.NewNotFoundError("patient has no waiting entry")
}

// QueueState runs a scheduling pass and returns the full ordered queue
// as snapshot items.
func (s *QueueService) QueueState(ctx context.Context) ([]entities.QueueSnapshotItem, error) {
	ordered, err := s.Recompute(ctx)
	if err != nil {
		return nil, err
	}
	return snapshotOf(ordered), nil
}

func (s *QueueService) publishQueueUpdate(ctx context.Context, entries []*entities.QueueEntry) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewQueueEvent(entities.QueueEventTypeQueueUpdate)
	event.Queue = snapshotOf(entries)
	if err := s.eventBus.Publish(ctx, providers.EventChannelQueueUpdates, event); err != nil {
		observability.GetLogger().Warn().Err(err).Msg("Failed to publish queue update")
	}
}

func (s *QueueService) publishToPatient(ctx context.Context, patientID string, eventType entities.QueueEventType, entry *entities.QueueEntry) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewQueueEvent(eventType)
	event.PatientID = patientID
	event.EntryID = entry.ID
	if err := s.eventBus.Publish(ctx, providers.GetPatientChannel(patientID), event); err != nil {
		observability.GetLogger().Warn().
			Err(err).
			Str("patient_id", patientID).
			Msg("Failed to publish patient event")
	}
}

func snapshotOf(entries []*entities.QueueEntry) []entities.QueueSnapshotItem {
	items := make([]entities.QueueSnapshotItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, entities.QueueSnapshotItem{
			EntryID:       e.ID,
			PatientID:     e.PatientID,
			Position:      e.Position,
			SeverityScore: e.SeverityScore,
			Category:      e.Category,
			WaitMinutes:   e.WaitMinutes,
			CreatedAt:     e.CreatedAt,
		})
	}
	return items
}

func dropMissing(entries []*entities.QueueEntry, missing []string) []*entities.QueueEntry {
	gone := make(map[string]bool, len(missing))
	for _, id := range missing {
		gone[id] = true
	}
	kept := entries[:0]
	for _, e := range entries {
		if !gone[e.ID] {
			kept = append(kept, e)
		}
	}
	return kept
}
