package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/providers"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	"github.com/ekmjt/MediQ/pkg/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements the severity classifier against an OpenAI-style
// responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new classifier client.
func NewClient(cfg *config.ClassifierConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("classifier api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

type assessmentPayload struct {
	SeverityScore float64 `json:"severity_score"`
	Summary       string  `json:"summary"`
	Reply         string  `json:"reply"`
	Emergency     bool    `json:"emergency"`
}

// Assess sends the conversation to the model and parses its severity
// assessment.
func (c *Client) Assess(ctx context.Context, messages []entities.ConversationMessage) (*entities.Assessment, error) {
	input := []map[string]string{
		{"role": "system", "content": triageSystemPrompt},
	}
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "assistant"
		}
		input = append(input, map[string]string{"role": role, "content": m.Content})
	}

	payload := map[string]interface{}{
		"model":             c.model,
		"input":             input,
		"temperature":       0.2,
		"max_output_tokens": 300,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classifier request failed with status %d", resp.StatusCode)
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		return nil, errors.New("classifier response missing output text")
	}

	// Clean Markdown code blocks if present
	cleaned := text
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	var parsed assessmentPayload
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	severity := triage.ClampSeverity(parsed.SeverityScore)
	return &entities.Assessment{
		SeverityScore: severity,
		Category:      triage.CategoryFor(severity),
		Summary:       parsed.Summary,
		Reply:         parsed.Reply,
		Emergency:     parsed.Emergency,
	}, nil
}

var _ providers.SeverityClassifier = (*Client)(nil)
