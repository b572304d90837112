package classifier

import (
	"context"
	"strings"

	"github.com/ekmjt/MediQ/internal/domain/entities"
	"github.com/ekmjt/MediQ/internal/domain/providers"
	"github.com/ekmjt/MediQ/internal/domain/triage"
)

// severityKeywords maps symptom phrases to a baseline severity. The
// highest matching baseline wins; emergency phrases are handled by the
// shared keyword check on top of this.
var severityKeywords = []struct {
	phrase   string
	severity float64
}{
	{"chest pain", 9},
	{"difficulty breathing", 9},
	{"severe bleeding", 9},
	{"unconscious", 10},
	{"stroke", 10},
	{"broken bone", 7},
	{"fracture", 7},
	{"high fever", 7},
	{"severe pain", 7},
	{"vomiting", 5},
	{"fever", 5},
	{"migraine", 5},
	{"sprain", 4},
	{"cough", 3},
	{"sore throat", 3},
	{"headache", 3},
	{"rash", 2},
	{"runny nose", 2},
}

// RuleClassifier is a keyword-based fallback used when no model API
// key is configured. It is deliberately conservative: unknown
// complaints land in the middle of the scale rather than the bottom.
type RuleClassifier struct{}

// NewRuleClassifier creates the fallback classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Assess(ctx context.Context, messages []entities.ConversationMessage) (*entities.Assessment, error) {
	severity := 4.0
	var lastPatientMessage string

	for _, m := range messages {
		if m.Role != "patient" && m.Role != "user" {
			continue
		}
		lastPatientMessage = m.Content
		text := strings.ToLower(m.Content)
		for _, kw := range severityKeywords {
			if strings.Contains(text, kw.phrase) && kw.severity > severity {
				severity = kw.severity
			}
		}
	}

	severity = triage.ClampSeverity(severity)
	category := triage.CategoryFor(severity)

	return &entities.Assessment{
		SeverityScore: severity,
		Category:      category,
		Summary:       "Keyword-based assessment",
		Reply:         "Thank you. A member of staff will review your symptoms shortly.",
		Emergency:     triage.IsEmergency(lastPatientMessage, severity),
	}, nil
}

var _ providers.SeverityClassifier = (*RuleClassifier)(nil)
