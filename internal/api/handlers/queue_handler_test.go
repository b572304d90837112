package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmjt/MediQ/internal/adapters/events"
	"github.com/ekmjt/MediQ/internal/adapters/memory"
	"github.com/ekmjt/MediQ/internal/api/handlers"
	"github.com/ekmjt/MediQ/internal/application/services"
	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/triage"
)

func newQueueFixture() (*handlers.QueueHandler, *services.QueueService) {
	repo := memory.NewQueueAdapter()
	queueSvc := services.NewQueueService(repo, nil, nil, triage.DefaultWeights(), 0.8)
	checkInSvc := services.NewCheckInService(
		repo,
		memory.NewCheckInLogAdapter(),
		queueSvc,
		events.NewChannelRegistry(),
		nil,
		30*time.Minute,
		5*time.Second,
	)
	return handlers.NewQueueHandler(queueSvc, checkInSvc), queueSvc
}

func TestQueueHandler_Admit(t *testing.T) {
	handler, _ := newQueueFixture()

	body := `{"patient_id":"patient-a","severity_score":8}`
	req := httptest.NewRequest("POST", "/api/queue/admit", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Admit(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var entry entities.QueueEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entry))
	assert.Equal(t, "patient-a", entry.PatientID)
	assert.Equal(t, 1, entry.Position)
	assert.Equal(t, triage.CategoryHigh, entry.Category)
}

func TestQueueHandler_Admit_Duplicate(t *testing.T) {
	handler, svc := newQueueFixture()

	_, err := svc.Admit(context.Background(), "patient-a", 6)
	require.NoError(t, err)

	body := `{"patient_id":"patient-a","severity_score":4}`
	req := httptest.NewRequest("POST", "/api/queue/admit", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Admit(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestQueueHandler_Admit_InvalidSeverity(t *testing.T) {
	handler, _ := newQueueFixture()

	body := `{"patient_id":"patient-a","severity_score":15}`
	req := httptest.NewRequest("POST", "/api/queue/admit", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Admit(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueHandler_GetQueue(t *testing.T) {
	handler, svc := newQueueFixture()

	_, err := svc.Admit(context.Background(), "patient-a", 9)
	require.NoError(t, err)
	_, err = svc.Admit(context.Background(), "patient-b", 3)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/queue", nil)
	w := httptest.NewRecorder()

	handler.GetQueue(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Queue []entities.QueueSnapshotItem `json:"queue"`
		Count int                          `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, "patient-a", response.Queue[0].PatientID)
}

func TestQueueHandler_GetPosition(t *testing.T) {
	handler, svc := newQueueFixture()

	_, err := svc.Admit(context.Background(), "patient-a", 5)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/queue/position/patient-a", nil)
	req.SetPathValue("patientId", "patient-a")
	w := httptest.NewRecorder()

	handler.GetPosition(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var entry entities.QueueEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&entry))
	assert.Equal(t, 1, entry.Position)
}

func TestQueueHandler_GetPosition_NotFound(t *testing.T) {
	handler, _ := newQueueFixture()

	req := httptest.NewRequest("GET", "/api/queue/position/patient-missing", nil)
	req.SetPathValue("patientId", "patient-missing")
	w := httptest.NewRecorder()

	handler.GetPosition(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueHandler_LowerPosition(t *testing.T) {
	handler, svc := newQueueFixture()

	_, err := svc.Admit(context.Background(), "patient-a", 7)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/queue/lower", strings.NewReader(`{"patient_id":"patient-a"}`))
	w := httptest.NewRecorder()

	handler.LowerPosition(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]bool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response["lowered"])
}

func TestQueueHandler_LowerPosition_NoEntry(t *testing.T) {
	handler, _ := newQueueFixture()

	req := httptest.NewRequest("POST", "/api/queue/lower", strings.NewReader(`{"patient_id":"patient-x"}`))
	w := httptest.NewRecorder()

	handler.LowerPosition(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]bool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.False(t, response["lowered"])
}

func TestQueueHandler_Withdraw(t *testing.T) {
	handler, svc := newQueueFixture()

	_, err := svc.Admit(context.Background(), "patient-a", 5)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/queue/withdraw", strings.NewReader(`{"patient_id":"patient-a"}`))
	w := httptest.NewRecorder()
	handler.Withdraw(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("POST", "/api/queue/withdraw", strings.NewReader(`{"patient_id":"patient-a"}`))
	w = httptest.NewRecorder()
	handler.Withdraw(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueHandler_CheckInResponse(t *testing.T) {
	handler, svc := newQueueFixture()

	entry, err := svc.Admit(context.Background(), "patient-a", 5)
	require.NoError(t, err)

	body := `{"entry_id":"` + entry.ID + `","response":"worse"}`
	req := httptest.NewRequest("POST", "/api/queue/checkin", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CheckInResponse(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var updated entities.QueueEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, 6.0, updated.SeverityScore)
}

func TestQueueHandler_CheckInResponse_Invalid(t *testing.T) {
	handler, svc := newQueueFixture()

	entry, err := svc.Admit(context.Background(), "patient-a", 5)
	require.NoError(t, err)

	body := `{"entry_id":"` + entry.ID + `","response":"shrug"}`
	req := httptest.NewRequest("POST", "/api/queue/checkin", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CheckInResponse(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
