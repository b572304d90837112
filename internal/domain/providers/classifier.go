package providers

import (
	"context"

	"github.com/ekmjt/MediQ/internal/domain/entities"
)

// SeverityClassifier converts a triage conversation into a severity
// assessment. The scheduling core never calls this directly; the triage
// service does, at admit time.
type SeverityClassifier interface {
	// Assess returns a severity score in [1,10], a category, and a
	// free-text summary for the conversation so far.
	Assess(ctx context.Context, messages []entities.ConversationMessage) (*entities.Assessment, error)
}
