package model

import (
	"time"

	json "github.com/goccy/go-json"
)

// PendingSubmission is a submission captured while the store was
// unreachable, waiting for the next sync.
type PendingSubmission struct {
	ID          string    `db:"id"`
	ChallengeID int64     `db:"challenge_id"`
	Payload     string    `db:"payload"`
	Attempts    int       `db:"attempts"`
	LastError   string    `db:"last_error"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (p *PendingSubmission) Submission() (*Submission, error) {
	var s Submission
	if err := json.Unmarshal([]byte(p.Payload), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
