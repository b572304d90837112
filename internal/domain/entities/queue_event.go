package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// QueueEventType represents the type of queue event
type QueueEventType string

const (
	QueueEventTypeQueueUpdate   QueueEventType = "queue_update"
	QueueEventTypeCheckInPrompt QueueEventType = "check_in"
	QueueEventTypeAdmitted      QueueEventType = "admitted"
	QueueEventTypeWithdrawn     QueueEventType = "withdrawn"
)

// QueueEvent represents a real-time update delivered to waiting patients
type QueueEvent struct {
	ID        string              `json:"id"`
	PatientID string              `json:"patient_id,omitempty"`
	EventType QueueEventType      `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	Message   string              `json:"message,omitempty"`
	EntryID   string              `json:"entry_id,omitempty"`
	Queue     []QueueSnapshotItem `json:"queue,omitempty"`
}

// NewQueueEvent creates a new queue event
func NewQueueEvent(eventType QueueEventType) *QueueEvent {
	return &QueueEvent{
		ID:        generateEventID(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

// randomString generates a random string of specified length
func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based if crypto/rand fails
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
