package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/doin/internal/model"
)

var (
	ErrPendingNotFound = errors.New("pending submission not found")
)

// PendingRepository is the offline submission queue, drained oldest first.
type PendingRepository interface {
	Enqueue(s *model.Submission) (*model.PendingSubmission, error)
	Pending(limit int) ([]*model.PendingSubmission, error)
	MarkFailed(id string, reason string) error
	Delete(id string) error
	Count() (int, error)
}

type pendingRepository struct {
	db *sqlx.DB
}

func NewPendingRepository(db *sqlx.DB) PendingRepository {
	return &pendingRepository{db: db}
}

func (r *pendingRepository) Enqueue(s *model.Submission) (*model.PendingSubmission, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	now := time.Now().UTC()
	p := &model.PendingSubmission{
		ID:          uuid.New().String(),
		ChallengeID: s.ChallengeID,
		Payload:     string(payload),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO pending_submissions (id, challenge_id, payload, attempts, last_error, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.Exec(query, p.ID, p.ChallengeID, p.Payload, p.Attempts, p.LastError, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (r *pendingRepository) Pending(limit int) ([]*model.PendingSubmission, error) {
	if limit <= 0 {
		limit = 100
	}

	var out []*model.PendingSubmission
	query := `SELECT * FROM pending_submissions ORDER BY created_at ASC, id ASC LIMIT $1`

	err := r.db.Select(&out, query, limit)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *pendingRepository) MarkFailed(id string, reason string) error {
	query := `UPDATE pending_submissions
	          SET attempts = attempts + 1, last_error = $1, updated_at = $2
	          WHERE id = $3`

	result, err := r.db.Exec(query, reason, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrPendingNotFound)
}

func (r *pendingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM pending_submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(result, ErrPendingNotFound)
}

func (r *pendingRepository) Count() (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM pending_submissions`)
	return n, err
}

func expectRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
