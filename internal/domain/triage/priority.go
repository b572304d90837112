package triage

// Reference weights for the blended priority score. The severity term
// dominates so a long wait never outranks a genuinely sicker patient.
const (
	SeverityWeight = 0.7
	WaitWeight     = 0.3

	// WaitCapMinutes caps the wait-time contribution; beyond this the
	// wait term saturates at its maximum.
	WaitCapMinutes = 120.0

	MinSeverity = 1.0
	MaxSeverity = 10.0
)

// Weights holds the tunable parameters of the priority formula.
type Weights struct {
	Severity       float64
	Wait           float64
	WaitCapMinutes float64
}

// DefaultWeights returns the reference weight configuration.
func DefaultWeights() Weights {
	return Weights{
		Severity:       SeverityWeight,
		Wait:           WaitWeight,
		WaitCapMinutes: WaitCapMinutes,
	}
}

// ClampSeverity clamps a severity score to the valid [1,10] range.
func ClampSeverity(score float64) float64 {
	if score < MinSeverity {
		return MinSeverity
	}
	if score > MaxSeverity {
		return MaxSeverity
	}
	return score
}

// NormalizedWait maps wait time in minutes onto [0,1], saturating at the cap.
func NormalizedWait(waitMinutes, capMinutes float64) float64 {
	if waitMinutes <= 0 {
		return 0
	}
	normalized := waitMinutes / capMinutes
	if normalized > 1 {
		return 1
	}
	return normalized
}

// PriorityScore computes the blended priority score from severity and wait
// time. Both terms are on a 0-10 scale so the weighted sum stays within it.
func PriorityScore(severityScore, waitMinutes float64, w Weights) float64 {
	severityScore = ClampSeverity(severityScore)
	return w.Severity*severityScore + w.Wait*(NormalizedWait(waitMinutes, w.WaitCapMinutes)*10)
}
