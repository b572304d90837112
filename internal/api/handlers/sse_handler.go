package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ekmjt/MediQ/internal/adapters/events"
	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/providers"
)

// SSEHandler handles Server-Sent Events for real-time queue updates.
// Queue-wide snapshots arrive over the event bus; patient-specific
// events (check-in prompts, withdrawal confirmations) also flow through
// the live channel registry so delivery success is observable.
type SSEHandler struct {
	eventBus providers.EventBus
	registry *events.ChannelRegistry
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus, registry *events.ChannelRegistry) *SSEHandler {
	return &SSEHandler{
		eventBus: eventBus,
		registry: registry,
	}
}

// StreamQueueUpdates handles SSE connections for queue-wide updates
// GET /api/stream/queue
func (h *SSEHandler) StreamQueueUpdates(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	setSSEHeaders(w)

	eventChan, err := h.eventBus.Subscribe(r.Context(), providers.EventChannelQueueUpdates)
	if err != nil {
		log.Error().Err(err).Msg("Failed to subscribe to queue updates")
		respondWithError(w, http.StatusInternalServerError, "streaming unavailable")
		return
	}

	h.sendEvent(w, "connected", map[string]interface{}{
		"timestamp": time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Msg("Client disconnected from queue stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, open := <-eventChan:
			if !open {
				return
			}
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

// StreamPatientUpdates handles SSE connections for one patient's events
// GET /api/stream/patients/{id}
func (h *SSEHandler) StreamPatientUpdates(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("id")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	setSSEHeaders(w)

	// Register as a live delivery target so check-in prompts can
	// report success or failure.
	clientChan := make(chan *entities.QueueEvent, 10)
	unregister := h.registry.Register(patientID, clientChan)
	defer unregister()

	eventChan, err := h.eventBus.Subscribe(r.Context(), providers.GetPatientChannel(patientID))
	if err != nil {
		log.Error().Err(err).Str("patient_id", patientID).Msg("Failed to subscribe to patient channel")
		return
	}
	go forwardEvents(r.Context(), eventChan, clientChan)

	h.sendEvent(w, "connected", map[string]interface{}{
		"patient_id": patientID,
		"timestamp":  time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("patient_id", patientID).Msg("Client disconnected from patient stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

// forwardEvents forwards bus events to a client channel without
// blocking on a slow client
func forwardEvents(ctx context.Context, eventChan <-chan *entities.QueueEvent, clientChan chan<- *entities.QueueEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- event:
			default:
				// Client channel full, skip event
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// sendEvent writes a single SSE event to the response
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to marshal SSE event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
