package attendance

import "time"

// Status enumerates attendance outcomes. Token redemption only ever writes
// Present; the other values exist for manual marking by trainers/admins.
type Status string

const (
	Present Status = "PRESENT"
	Absent  Status = "ABSENT"
	Late    Status = "LATE"
	Excused Status = "EXCUSED"
)

// Token is a redeemable capability for one batch on one calendar day.
// Tokens are never mutated after issuance except for explicit deactivation;
// expiry is computed from ExpiresAt, not enforced by deletion.
type Token struct {
	ID        string    `json:"token_id"`
	BatchID   string    `json:"batch_id"`
	Payload   string    `json:"payload"`
	ValidDate time.Time `json:"valid_date"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
}

// Record is one student's attendance outcome for one calendar day. At most
// one record exists per (student, date); redemption inserts, never updates.
type Record struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	BatchID       string    `json:"batch_id"`
	Date          time.Time `json:"date"`
	Status        Status    `json:"status"`
	MarkedAt      time.Time `json:"marked_at"`
	SourceTokenID *string   `json:"source_token_id,omitempty"`
}

// DateKey formats a calendar date the way the stores key it.
func DateKey(t time.Time) string { return t.Format("2006-01-02") }
