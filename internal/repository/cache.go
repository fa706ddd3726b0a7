package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/templui/doin/internal/model"
)

var (
	ErrCacheMiss = errors.New("nothing cached for challenge")
)

// CacheRepository keeps the last successfully fetched list and challenge so
// statistics can still be shown while offline.
type CacheRepository interface {
	SaveParticipations(challengeID int64, list []model.Participation, fetchedAt time.Time) error
	Participations(challengeID int64) ([]model.Participation, time.Time, error)
	SaveChallenge(c *model.Challenge, fetchedAt time.Time) error
	Challenge(challengeID int64) (*model.Challenge, time.Time, error)
	Clear(challengeID int64) error
}

type cacheRepository struct {
	db *sqlx.DB
}

func NewCacheRepository(db *sqlx.DB) CacheRepository {
	return &cacheRepository{db: db}
}

type cacheRow struct {
	Payload   string    `db:"payload"`
	FetchedAt time.Time `db:"fetched_at"`
}

func (r *cacheRepository) SaveParticipations(challengeID int64, list []model.Participation, fetchedAt time.Time) error {
	if list == nil {
		list = []model.Participation{}
	}
	return r.save("participation_cache", challengeID, list, fetchedAt)
}

func (r *cacheRepository) Participations(challengeID int64) ([]model.Participation, time.Time, error) {
	var list []model.Participation
	fetchedAt, err := r.load("participation_cache", challengeID, &list)
	if err != nil {
		return nil, time.Time{}, err
	}
	return list, fetchedAt, nil
}

func (r *cacheRepository) SaveChallenge(c *model.Challenge, fetchedAt time.Time) error {
	return r.save("challenge_cache", c.ID, c, fetchedAt)
}

func (r *cacheRepository) Challenge(challengeID int64) (*model.Challenge, time.Time, error) {
	c := &model.Challenge{}
	fetchedAt, err := r.load("challenge_cache", challengeID, c)
	if err != nil {
		return nil, time.Time{}, err
	}
	return c, fetchedAt, nil
}

func (r *cacheRepository) Clear(challengeID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"participation_cache", "challenge_cache"} {
		_, err := tx.Exec(`DELETE FROM `+table+` WHERE challenge_id = $1`, challengeID)
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (r *cacheRepository) save(table string, challengeID int64, v any, fetchedAt time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload: %w", err)
	}

	query := `INSERT INTO ` + table + ` (challenge_id, payload, fetched_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (challenge_id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`

	_, err = r.db.Exec(query, challengeID, string(payload), fetchedAt.UTC())
	return err
}

func (r *cacheRepository) load(table string, challengeID int64, v any) (time.Time, error) {
	row := cacheRow{}
	query := `SELECT payload, fetched_at FROM ` + table + ` WHERE challenge_id = $1`

	err := r.db.Get(&row, query, challengeID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return time.Time{}, err
	}

	if err := json.Unmarshal([]byte(row.Payload), v); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode cache payload: %w", err)
	}
	return row.FetchedAt, nil
}
