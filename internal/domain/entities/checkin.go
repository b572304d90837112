package entities

import "time"

// CheckInResponse is a patient's answer to a check-in prompt
type CheckInResponse string

const (
	CheckInBetter CheckInResponse = "better"
	CheckInSame   CheckInResponse = "same"
	CheckInWorse  CheckInResponse = "worse"
)

// Valid reports whether the response is one of the known values
func (r CheckInResponse) Valid() bool {
	switch r {
	case CheckInBetter, CheckInSame, CheckInWorse:
		return true
	default:
		return false
	}
}

// CheckInLog records one check-in response for audit
type CheckInLog struct {
	ID           string          `json:"id" db:"id"`
	PatientID    string          `json:"patient_id" db:"patient_id"`
	QueueEntryID string          `json:"queue_entry_id" db:"queue_entry_id"`
	Response     CheckInResponse `json:"response" db:"response"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
