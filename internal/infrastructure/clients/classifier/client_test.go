package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	"github.com/ekmjt/MediQ/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.ClassifierConfig{APIKey: "test-key", Model: "test-model"})
	require.NoError(t, err)
	client.baseURL = server.URL
	return client, server
}

func modelResponse(text string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"output": []map[string]interface{}{
			{
				"content": []map[string]string{
					{"type": "output_text", "text": text},
				},
			},
		},
	})
	return body
}

func TestClientAssess(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a severity assessment", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.Equal(t, http.MethodPost, r.Method)

			w.Write(modelResponse(`{"severity_score": 7.5, "summary": "suspected fracture", "reply": "Can you move it?", "emergency": false}`))
		})

		result, err := client.Assess(ctx, []entities.ConversationMessage{
			{Role: "patient", Content: "I fell off my bike and my arm hurts badly"},
		})
		require.NoError(t, err)

		assert.Equal(t, 7.5, result.SeverityScore)
		assert.Equal(t, triage.CategoryHigh, result.Category)
		assert.Equal(t, "suspected fracture", result.Summary)
		assert.False(t, result.Emergency)
	})

	t.Run("strips markdown fences from the payload", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write(modelResponse("```json\n{\"severity_score\": 3, \"summary\": \"minor\", \"reply\": \"\", \"emergency\": false}\n```"))
		})

		result, err := client.Assess(ctx, []entities.ConversationMessage{
			{Role: "patient", Content: "small rash on my hand"},
		})
		require.NoError(t, err)
		assert.Equal(t, 3.0, result.SeverityScore)
	})

	t.Run("clamps out of range scores", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write(modelResponse(`{"severity_score": 42, "summary": "", "reply": "", "emergency": true}`))
		})

		result, err := client.Assess(ctx, []entities.ConversationMessage{
			{Role: "patient", Content: "everything hurts"},
		})
		require.NoError(t, err)
		assert.Equal(t, 10.0, result.SeverityScore)
		assert.True(t, result.Emergency)
	})

	t.Run("propagates upstream errors", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.Assess(ctx, []entities.ConversationMessage{
			{Role: "patient", Content: "hello"},
		})
		assert.ErrorContains(t, err, "status 429")
	})

	t.Run("rejects an empty model output", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"output": []}`))
		})

		_, err := client.Assess(ctx, []entities.ConversationMessage{
			{Role: "patient", Content: "hello"},
		})
		assert.ErrorContains(t, err, "missing output text")
	})
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.ClassifierConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}
