package entities

import (
	"time"

	"github.com/ekmjt/MediQ/internal/domain/triage"
)

// ConversationMessage is one turn in a triage conversation
type ConversationMessage struct {
	Role    string `json:"role"` // "patient" or "assistant"
	Content string `json:"content"`
}

// Assessment is the severity classifier's output for a conversation
type Assessment struct {
	SeverityScore float64         `json:"severity_score"`
	Category      triage.Category `json:"category"`
	Summary       string          `json:"summary"`
	Reply         string          `json:"reply,omitempty"`
	Emergency     bool            `json:"emergency"`
}

// ConversationHistory stores a finished triage conversation for audit
type ConversationHistory struct {
	ID        string                `json:"id" db:"id"`
	PatientID string                `json:"patient_id" db:"patient_id"`
	Messages  []ConversationMessage `json:"messages" db:"messages"`
	Result    *Assessment           `json:"result,omitempty" db:"result"`
	CreatedAt time.Time             `json:"created_at" db:"created_at"`
}
