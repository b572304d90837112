package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ekmjt/MediQ/internal/application/services"
	"github.com/ekmjt/MediQ/internal/domain/entities"
)

// QueueHandler handles waitlist HTTP requests
type QueueHandler struct {
	queueService   *services.QueueService
	checkInService *services.CheckInService
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueService *services.QueueService, checkInService *services.CheckInService) *QueueHandler {
	return &QueueHandler{
		queueService:   queueService,
		checkInService: checkInService,
	}
}

type patientRequest struct {
	PatientID string `json:"patient_id"`
}

type admitRequest struct {
	PatientID     string  `json:"patient_id"`
	SeverityScore float64 `json:"severity_score"`
}

type checkInResponseRequest struct {
	EntryID  string `json:"entry_id"`
	Response string `json:"response"`
}

// GetQueue handles GET /api/queue
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.queueService.QueueState(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queue": queue,
		"count": len(queue),
	})
}

// GetPosition handles GET /api/queue/position/{patientId}
func (h *QueueHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientId")
	if patientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient ID is required")
		return
	}

	entry, err := h.queueService.PositionOf(r.Context(), patientID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}

// Admit handles POST /api/queue/admit. Most patients arrive through
// triage completion; this endpoint exists for staff-entered admissions.
func (h *QueueHandler) Admit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.queueService.Admit(r.Context(), req.PatientID, req.SeverityScore)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

// LowerPosition handles POST /api/queue/lower
func (h *QueueHandler) LowerPosition(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient_id is required")
		return
	}

	lowered, err := h.queueService.SelfLower(r.Context(), req.PatientID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"lowered": lowered})
}

// Withdraw handles POST /api/queue/withdraw
func (h *QueueHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID == "" {
		respondWithError(w, http.StatusBadRequest, "patient_id is required")
		return
	}

	if err := h.queueService.Withdraw(r.Context(), req.PatientID); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// CheckInResponse handles POST /api/queue/checkin
func (h *QueueHandler) CheckInResponse(w http.ResponseWriter, r *http.Request) {
	var req checkInResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EntryID == "" {
		respondWithError(w, http.StatusBadRequest, "entry_id is required")
		return
	}

	entry, err := h.checkInService.RecordResponse(r.Context(), req.EntryID, entities.CheckInResponse(req.Response))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}
