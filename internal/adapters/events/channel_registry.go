package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/pkg/errors"
)

// ChannelRegistry tracks live per-patient delivery channels. Streaming
// handlers register a channel while the patient is connected; delivery
// fails when no channel is registered or the client stops draining.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string][]chan *entities.QueueEvent
}

func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{
		channels: make(map[string][]chan *entities.QueueEvent),
	}
}

// Register adds a delivery channel for a patient and returns an
// unregister function the caller must invoke on disconnect.
func (r *ChannelRegistry) Register(patientID string, ch chan *entities.QueueEvent) func() {
	r.mu.Lock()
	r.channels[patientID] = append(r.channels[patientID], ch)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		chans := r.channels[patientID]
		for i, c := range chans {
			if c == ch {
				r.channels[patientID] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		if len(r.channels[patientID]) == 0 {
			delete(r.channels, patientID)
		}
	}
}

// Deliver pushes an event to every channel registered for the patient.
// It returns a delivery failure when no channel is registered or when
// the context expires before each channel accepts the event.
func (r *ChannelRegistry) Deliver(ctx context.Context, patientID string, event *entities.QueueEvent) error {
	r.mu.RLock()
	chans := make([]chan *entities.QueueEvent, len(r.channels[patientID]))
	copy(chans, r.channels[patientID])
	r.mu.RUnlock()

	if len(chans) == 0 {
		return errors.NewExternalError("no live channel for patient", nil)
	}

	for _, ch := range chans {
		select {
		case ch <- event:
		case <-ctx.Done():
			log.Warn().
				Str("patient_id", patientID).
				Str("event_type", string(event.EventType)).
				Msg("Delivery timed out, client not draining")
			return errors.NewExternalError("delivery timed out", ctx.Err())
		}
	}

	return nil
}

// Connected reports whether the patient has at least one live channel.
func (r *ChannelRegistry) Connected(patientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[patientID]) > 0
}
