package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ekmjt/MediQ/internal/application/services"
)

// TriageHandler handles triage conversation HTTP requests
type TriageHandler struct {
	triageService *services.TriageService
}

// NewTriageHandler creates a new triage handler
func NewTriageHandler(triageService *services.TriageService) *TriageHandler {
	return &TriageHandler{
		triageService: triageService,
	}
}

type startTriageRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type triageMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type completeTriageRequest struct {
	SessionID string `json:"session_id"`
}

// StartTriage handles POST /api/triage/start
func (h *TriageHandler) StartTriage(w http.ResponseWriter, r *http.Request) {
	var req startTriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patient, err := h.triageService.StartTriage(r.Context(), req.Name, req.Phone)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, patient)
}

// Message handles POST /api/triage/message
func (h *TriageHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req triageMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	assessment, err := h.triageService.Message(r.Context(), req.SessionID, req.Message)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, assessment)
}

// CompleteTriage handles POST /api/triage/complete
func (h *TriageHandler) CompleteTriage(w http.ResponseWriter, r *http.Request) {
	var req completeTriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	result, err := h.triageService.CompleteTriage(r.Context(), req.SessionID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}
