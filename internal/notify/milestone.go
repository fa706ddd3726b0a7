// Package notify tracks which goal-percent milestones a challenge has
// already announced.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

// PercentMilestones are announced once per challenge when progress first
// reaches them.
var PercentMilestones = []int{25, 50, 75, 100}

const Channel = "doin:milestones"

type Event struct {
	ChallengeID int64     `json:"challengeId"`
	Percent     int       `json:"percent"`
	ReachedAt   time.Time `json:"reachedAt"`
}

type MilestoneTracker struct {
	rdb *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
}

func NewMilestoneTracker(rdb *redis.Client) *MilestoneTracker {
	return &MilestoneTracker{rdb: rdb}
}

func key(challengeID int64) string {
	return "doin:challenge:" + strconv.FormatInt(challengeID, 10) + ":milestones"
}

// Record marks every milestone at or below percent and returns the ones
// that were not marked before. Each milestone is returned at most once per
// challenge, even across processes.
func (t *MilestoneTracker) Record(ctx context.Context, challengeID int64, percent float64, now time.Time) ([]int, error) {
	var crossed []int
	for _, m := range PercentMilestones {
		if percent < float64(m) {
			break
		}
		added, err := t.rdb.SAdd(ctx, key(challengeID), m).Result()
		if err != nil {
			return crossed, fmt.Errorf("failed to record milestone: %w", err)
		}
		if added == 0 {
			continue
		}
		crossed = append(crossed, m)
		t.publish(ctx, Event{ChallengeID: challengeID, Percent: m, ReachedAt: now})
	}
	return crossed, nil
}

func (t *MilestoneTracker) publish(ctx context.Context, ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := t.rdb.Publish(ctx, Channel, b).Err(); err != nil {
		slog.Warn("failed to publish milestone", "challenge_id", ev.ChallengeID, "percent", ev.Percent, "error", err)
	}
}

// Reached lists the milestones already announced, ascending.
func (t *MilestoneTracker) Reached(ctx context.Context, challengeID int64) ([]int, error) {
	members, err := t.rdb.SMembers(ctx, key(challengeID)).Result()
	if err != nil {
		return nil, err
	}

	var out []int
	for _, m := range PercentMilestones {
		for _, s := range members {
			if s == strconv.Itoa(m) {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (t *MilestoneTracker) Reset(ctx context.Context, challengeID int64) error {
	return t.rdb.Del(ctx, key(challengeID)).Err()
}

func (t *MilestoneTracker) Ping(ctx context.Context) error {
	return t.rdb.Ping(ctx).Err()
}
