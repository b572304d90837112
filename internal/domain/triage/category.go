package triage

import "strings"

// Category is the human-facing severity band shown to staff.
type Category string

const (
	CategoryCritical Category = "Critical"
	CategoryHigh     Category = "High"
	CategoryMedium   Category = "Medium"
	CategoryLow      Category = "Low"
)

// CategoryFor maps a severity score onto its category. Scores outside
// [1,10] are clamped before classification.
func CategoryFor(severityScore float64) Category {
	score := ClampSeverity(severityScore)

	switch {
	case score >= 9:
		return CategoryCritical
	case score >= 7:
		return CategoryHigh
	case score >= 4:
		return CategoryMedium
	case score >= MinSeverity:
		return CategoryLow
	default:
		// Unreachable after clamping.
		return CategoryMedium
	}
}

// emergencyKeywords are phrases that force an emergency recommendation
// regardless of the numeric severity score.
var emergencyKeywords = []string{
	"chest pain", "difficulty breathing", "can't breathe", "choking",
	"severe pain", "unconscious", "severe bleeding", "heart attack",
	"stroke", "seizure", "severe allergic reaction", "overdose",
}

// IsEmergency reports whether the free-text summary or the severity score
// indicates an emergency case.
func IsEmergency(text string, severityScore float64) bool {
	lower := strings.ToLower(text)
	for _, keyword := range emergencyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return severityScore >= 9
}

// CareRecommendation returns the guidance text for a severity category.
func CareRecommendation(category Category) string {
	switch category {
	case CategoryCritical:
		return "Please go to the emergency room immediately or call 911."
	case CategoryHigh:
		return "Please visit urgent care within the next hour."
	case CategoryLow:
		return "You can manage this at home with self-care. Monitor your symptoms."
	default:
		return "Schedule an appointment within 24 hours."
	}
}
