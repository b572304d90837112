package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/providers"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	"github.com/ekmjt/MediQ/pkg/errors"
)

const (
	// In-progress sessions expire if the patient walks away mid-triage.
	sessionTTLSeconds = 7200
	// Completed conversations are kept for a week for audit.
	historyTTLSeconds = 7 * 24 * 3600

	sessionKeyPrefix = "triage:session:"
	historyKeyPrefix = "triage:history:"
)

// triageSession is the in-progress conversation state, keyed by session id
type triageSession struct {
	PatientID string                         `json:"patient_id"`
	Name      string                         `json:"name,omitempty"`
	Phone     string                         `json:"phone,omitempty"`
	Messages  []entities.ConversationMessage `json:"messages"`
}

// TriageResult is the outcome of a completed triage conversation
type TriageResult struct {
	Entry          *entities.QueueEntry `json:"entry"`
	Assessment     *entities.Assessment `json:"assessment"`
	Recommendation string               `json:"recommendation"`
}

// TriageService runs the intake conversation: it creates a patient
// session, relays messages to the severity classifier, and on
// completion admits the patient to the waitlist with the assessed
// severity. Session state lives in the cache so an interrupted
// conversation simply expires.
type TriageService struct {
	patientRepo  repositories.PatientRepository
	classifier   providers.SeverityClassifier
	queueService *QueueService
	cache        providers.CacheProvider

	now func() time.Time
}

// NewTriageService creates a new triage service
func NewTriageService(
	patientRepo repositories.PatientRepository,
	classifier providers.SeverityClassifier,
	queueService *QueueService,
	cache providers.CacheProvider,
) *TriageService {
	return &TriageService{
		patientRepo:  patientRepo,
		classifier:   classifier,
		queueService: queueService,
		cache:        cache,
		now:          time.Now,
	}
}

// StartTriage creates a patient record and opens a triage session
func (s *TriageService) StartTriage(ctx context.Context, name, phone string) (*entities.Patient, error) {
	patient := &entities.Patient{
		ID:        uuid.New().String(),
		SessionID: uuid.New().String(),
		Name:      name,
		Phone:     phone,
		CreatedAt: s.now(),
	}

	if err := s.patientRepo.Create(ctx, patient); err != nil {
		return nil, err
	}

	session := &triageSession{
		PatientID: patient.ID,
		Name:      name,
		Phone:     phone,
	}
	if err := s.saveSession(ctx, patient.SessionID, session); err != nil {
		return nil, err
	}

	return patient, nil
}

// Message adds a patient message to the session and returns the
// classifier's current assessment of the conversation.
func (s *TriageService) Message(ctx context.Context, sessionID, content string) (*entities.Assessment, error) {
	if content == "" {
		return nil, errors.NewValidationError("message content is required")
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.Messages = append(session.Messages, entities.ConversationMessage{
		Role:    "patient",
		Content: content,
	})

	assessment, err := s.classifier.Assess(ctx, session.Messages)
	if err != nil {
		return nil, err
	}

	// The keyword check catches emergencies the classifier under-scores.
	if triage.IsEmergency(content, assessment.SeverityScore) {
		assessment.Emergency = true
	}

	if assessment.Reply != "" {
		session.Messages = append(session.Messages, entities.ConversationMessage{
			Role:    "assistant",
			Content: assessment.Reply,
		})
	}

	if err := s.saveSession(ctx, sessionID, session); err != nil {
		return nil, err
	}

	return assessment, nil
}

// CompleteTriage finalizes the conversation, admits the patient to the
// waitlist with the assessed severity, and archives the transcript.
func (s *TriageService) CompleteTriage(ctx context.Context, sessionID string) (*TriageResult, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(session.Messages) == 0 {
		return nil, errors.NewValidationError("cannot complete triage before any messages")
	}

	assessment, err := s.classifier.Assess(ctx, session.Messages)
	if err != nil {
		return nil, err
	}
	assessment.SeverityScore = triage.ClampSeverity(assessment.SeverityScore)
	assessment.Category = triage.CategoryFor(assessment.SeverityScore)

	entry, err := s.queueService.Admit(ctx, session.PatientID, assessment.SeverityScore)
	if err != nil {
		return nil, err
	}

	s.archiveConversation(ctx, session, assessment)
	_ = s.cache.Delete(ctx, sessionKeyPrefix+sessionID)

	return &TriageResult{
		Entry:          entry,
		Assessment:     assessment,
		Recommendation: triage.CareRecommendation(assessment.Category),
	}, nil
}

// PatientBySession resolves a session id to its patient record
func (s *TriageService) PatientBySession(ctx context.Context, sessionID string) (*entities.Patient, error) {
	return s.patientRepo.GetBySessionID(ctx, sessionID)
}

func (s *TriageService) loadSession(ctx context.Context, sessionID string) (*triageSession, error) {
	if sessionID == "" {
		return nil, errors.NewValidationError("session id is required")
	}

	data, err := s.cache.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		return nil, errors.NewNotFoundError("triage session not found or expired")
	}

	var session triageSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.NewInternalError("failed to decode triage session", err)
	}
	return &session, nil
}

func (s *TriageService) saveSession(ctx context.Context, sessionID string, session *triageSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.NewInternalError("failed to encode triage session", err)
	}
	if err := s.cache.Set(ctx, sessionKeyPrefix+sessionID, data, sessionTTLSeconds); err != nil {
		return errors.NewInternalError("failed to store triage session", err)
	}
	return nil
}

func (s *TriageService) archiveConversation(ctx context.Context, session *triageSession, assessment *entities.Assessment) {
	history := &entities.ConversationHistory{
		ID:        uuid.New().String(),
		PatientID: session.PatientID,
		Messages:  session.Messages,
		Result:    assessment,
		CreatedAt: s.now(),
	}
	data, err := json.Marshal(history)
	if err != nil {
		return
	}
	// Best effort; losing the transcript never fails the admission.
	_ = s.cache.Set(ctx, historyKeyPrefix+history.ID, data, historyTTLSeconds)
}
