package providers

import (
	"context"

	"github.com/ekmjt/MediQ/internal/domain/entities"
)

// Notifier delivers an event to a single patient's live channel. Delivery
// failure is non-fatal to callers: the check-in ticker logs it and retries
// on the next firing.
type Notifier interface {
	// Deliver pushes the event to the patient's channel, or returns an
	// error when no live channel can be reached before ctx expires.
	Deliver(ctx context.Context, patientID string, event *entities.QueueEvent) error
}
