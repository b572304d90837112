package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekmjt/MediQ/internal/adapters/memory"
	"github.com/ekmjt/MediQ/internal/application/services"
	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	apperrors "github.com/ekmjt/MediQ/pkg/errors"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Assess(ctx context.Context, messages []entities.ConversationMessage) (*entities.Assessment, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Assessment), args.Error(1)
}

func newTriageFixture(classifier *mockClassifier) *services.TriageService {
	queueSvc := services.NewQueueService(memory.NewQueueAdapter(), nil, nil, triage.DefaultWeights(), 0.8)
	return services.NewTriageService(
		memory.NewPatientAdapter(),
		classifier,
		queueSvc,
		memory.NewCacheAdapter(),
	)
}

func assessment(severity float64, reply string) *entities.Assessment {
	return &entities.Assessment{
		SeverityScore: severity,
		Category:      triage.CategoryFor(severity),
		Summary:       "test summary",
		Reply:         reply,
	}
}

func TestStartTriage(t *testing.T) {
	ctx := context.Background()
	classifier := new(mockClassifier)
	svc := newTriageFixture(classifier)

	patient, err := svc.StartTriage(ctx, "Ada", "+15550001")
	require.NoError(t, err)

	assert.NotEmpty(t, patient.ID)
	assert.NotEmpty(t, patient.SessionID)
	assert.Equal(t, "Ada", patient.Name)

	found, err := svc.PatientBySession(ctx, patient.SessionID)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, found.ID)
}

func TestMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the classifier assessment", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		patient, err := svc.StartTriage(ctx, "Ada", "")
		require.NoError(t, err)

		classifier.On("Assess", mock.Anything, mock.Anything).
			Return(assessment(6, "How long have you had the fever?"), nil)

		result, err := svc.Message(ctx, patient.SessionID, "I have a fever and a bad cough")
		require.NoError(t, err)

		assert.Equal(t, 6.0, result.SeverityScore)
		assert.Equal(t, triage.CategoryMedium, result.Category)
		assert.False(t, result.Emergency)
	})

	t.Run("emergency keywords override the classifier", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		patient, err := svc.StartTriage(ctx, "Ada", "")
		require.NoError(t, err)

		classifier.On("Assess", mock.Anything, mock.Anything).
			Return(assessment(5, "Tell me more"), nil)

		result, err := svc.Message(ctx, patient.SessionID, "I am having chest pain")
		require.NoError(t, err)
		assert.True(t, result.Emergency)
	})

	t.Run("conversation accumulates across messages", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		patient, err := svc.StartTriage(ctx, "Ada", "")
		require.NoError(t, err)

		classifier.On("Assess", mock.Anything, mock.MatchedBy(func(msgs []entities.ConversationMessage) bool {
			return len(msgs) == 1
		})).Return(assessment(4, "Anything else?"), nil).Once()
		classifier.On("Assess", mock.Anything, mock.MatchedBy(func(msgs []entities.ConversationMessage) bool {
			// patient, assistant reply, patient
			return len(msgs) == 3
		})).Return(assessment(5, ""), nil).Once()

		_, err = svc.Message(ctx, patient.SessionID, "Headache since yesterday")
		require.NoError(t, err)
		_, err = svc.Message(ctx, patient.SessionID, "Also feeling dizzy")
		require.NoError(t, err)

		classifier.AssertExpectations(t)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		_, err := svc.Message(ctx, "no-such-session", "hello")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		patient, err := svc.StartTriage(ctx, "Ada", "")
		require.NoError(t, err)

		_, err = svc.Message(ctx, patient.SessionID, "")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestCompleteTriage(t *testing.T) {
	ctx := context.Background()

	t.Run("admits the patient with the assessed severity", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		patient, err := svc.StartTriage(ctx, "Ada", "")
		require.NoError(t, err)

		classifier.On("Assess", mock.Anything, mock.Anything).
			Return(assessment(8, ""), nil)

		_, err = svc.Message(ctx, patient.SessionID, "Deep cut on my arm, bleeding a lot")
		require.NoError(t, err)

		result, err := svc.CompleteTriage(ctx, patient.SessionID)
		require.NoError(t, err)

		assert.Equal(t, patient.ID, result.Entry.PatientID)
		assert.Equal(t, 8.0, result.Entry.SeverityScore)
		assert.Equal(t, 1, result.Entry.Position)
		assert.Equal(t, triage.CategoryHigh, result.Entry.Category)
		assert.NotEmpty(t, result.Recommendation)
	})

	t.Run("out of range classifier scores are clamped", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		patient, err := svc.StartTriage(ctx, "Ada", "")
		require.NoError(t, err)

		classifier.On("Assess", mock.Anything, mock.Anything).
			Return(assessment(14, ""), nil)

		_, err = svc.Message(ctx, patient.SessionID, "feeling awful")
		require.NoError(t, err)

		result, err := svc.CompleteTriage(ctx, patient.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 10.0, result.Entry.SeverityScore)
		assert.Equal(t, triage.CategoryCritical, result.Entry.Category)
	})

	t.Run("the session is closed after completion", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		patient, err := svc.StartTriage(ctx, "Ada", "")
		require.NoError(t, err)

		classifier.On("Assess", mock.Anything, mock.Anything).
			Return(assessment(5, ""), nil)

		_, err = svc.Message(ctx, patient.SessionID, "sore throat")
		require.NoError(t, err)
		_, err = svc.CompleteTriage(ctx, patient.SessionID)
		require.NoError(t, err)

		_, err = svc.CompleteTriage(ctx, patient.SessionID)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("cannot complete an empty conversation", func(t *testing.T) {
		classifier := new(mockClassifier)
		svc := newTriageFixture(classifier)

		patient, err := svc.StartTriage(ctx, "Ada", "")
		require.NoError(t, err)

		_, err = svc.CompleteTriage(ctx, patient.SessionID)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}
