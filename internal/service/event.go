package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/templui/doin/internal/aggregate"
	"github.com/templui/doin/internal/clock"
	"github.com/templui/doin/internal/export"
	"github.com/templui/doin/internal/gateway"
	"github.com/templui/doin/internal/model"
	"github.com/templui/doin/internal/repository"
	"github.com/templui/doin/internal/storage"
)

var (
	ErrParticipationNotFound = errors.New("participation not found")
	ErrStorageDisabled       = errors.New("report storage is not configured")
)

// Remote is the store plus challenge lookup, as served by gateway.Client.
type Remote interface {
	gateway.Store
	gateway.ChallengeSource
}

// MilestoneRecorder announces goal-percent milestones once per challenge.
type MilestoneRecorder interface {
	Record(ctx context.Context, challengeID int64, percent float64, now time.Time) ([]int, error)
}

// Stats is a computed view plus where its data came from.
type Stats struct {
	View           *aggregate.View
	Challenge      *model.Challenge
	Participations []model.Participation
	// Stale is true when the store was unreachable and the view was
	// computed from the local cache.
	Stale     bool
	FetchedAt time.Time
	Pending   int
}

type EventOptions struct {
	Thresholds   aggregate.MomentumThresholds
	Location     *time.Location
	QueueOffline bool
	Milestones   MilestoneRecorder
	Storage      storage.Storage
}

type EventService struct {
	remote     Remote
	gw         *gateway.Gateway
	cache      repository.CacheRepository
	pending    repository.PendingRepository
	clock      clock.Clock
	thresholds aggregate.MomentumThresholds
	loc        *time.Location
	queue      bool
	milestones MilestoneRecorder
	storage    storage.Storage
}

func NewEventService(remote Remote, gw *gateway.Gateway, cache repository.CacheRepository,
	pending repository.PendingRepository, clk clock.Clock, opts EventOptions) *EventService {
	if opts.Thresholds == (aggregate.MomentumThresholds{}) {
		opts.Thresholds = aggregate.DefaultMomentumThresholds
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	s := &EventService{
		remote:     remote,
		gw:         gw,
		cache:      cache,
		pending:    pending,
		clock:      clk,
		thresholds: opts.Thresholds,
		loc:        opts.Location,
		queue:      opts.QueueOffline,
		milestones: opts.Milestones,
		storage:    opts.Storage,
	}
	gw.Subscribe(s)
	return s
}

// ParticipationsRefreshed keeps the offline cache in step with every list
// the gateway fetches, including the refetch after a submit.
func (s *EventService) ParticipationsRefreshed(challengeID int64, list []model.Participation) {
	if err := s.cache.SaveParticipations(challengeID, list, s.clock.Now()); err != nil {
		slog.Warn("failed to cache participations", "challenge_id", challengeID, "error", err)
	}
}

// Load fetches the challenge and its participations and derives the view.
// When the store is unreachable it falls back to the cache and marks the
// result stale.
func (s *EventService) Load(ctx context.Context, challengeID int64, me *model.Identity) (*Stats, error) {
	now := s.clock.Now()
	stats := &Stats{FetchedAt: now}

	challenge, list, err := s.fetch(ctx, challengeID)
	switch {
	case errors.Is(err, gateway.ErrChallengeNotFound):
		return nil, err
	case err != nil:
		slog.Warn("store unreachable, using cached participations", "challenge_id", challengeID, "error", err)
		var cacheErr error
		challenge, list, stats.FetchedAt, cacheErr = s.cached(challengeID)
		if cacheErr != nil {
			return nil, fmt.Errorf("failed to load challenge %d: %w", challengeID, err)
		}
		stats.Stale = true
	default:
		s.store(challenge, list, now)
	}

	view, err := s.compute(challenge, list, me, now)
	if err != nil {
		return nil, err
	}
	stats.View = view
	stats.Challenge = challenge
	stats.Participations = list

	if n, err := s.pending.Count(); err == nil {
		stats.Pending = n
	}

	if !stats.Stale {
		s.checkMilestones(ctx, challengeID, view.Progress.Percent, now)
	}
	return stats, nil
}

func (s *EventService) fetch(ctx context.Context, challengeID int64) (*model.Challenge, []model.Participation, error) {
	challenge, err := s.remote.Challenge(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.remote.List(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}
	return challenge, list, nil
}

func (s *EventService) cached(challengeID int64) (*model.Challenge, []model.Participation, time.Time, error) {
	challenge, _, err := s.cache.Challenge(challengeID)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	list, fetchedAt, err := s.cache.Participations(challengeID)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	return challenge, list, fetchedAt, nil
}

func (s *EventService) store(challenge *model.Challenge, list []model.Participation, now time.Time) {
	if err := s.cache.SaveChallenge(challenge, now); err != nil {
		slog.Warn("failed to cache challenge", "challenge_id", challenge.ID, "error", err)
	}
	if err := s.cache.SaveParticipations(challenge.ID, list, now); err != nil {
		slog.Warn("failed to cache participations", "challenge_id", challenge.ID, "error", err)
	}
}

// compute derives the view. Malformed upstream numbers are logged at error
// level so they reach Sentry, then returned.
func (s *EventService) compute(challenge *model.Challenge, list []model.Participation, me *model.Identity, now time.Time) (*aggregate.View, error) {
	view, err := aggregate.Compute(challenge, list, me, now, aggregate.Options{
		Thresholds: s.thresholds,
		Location:   s.loc,
	})
	if err != nil {
		var iv *aggregate.InvariantViolation
		var ce *aggregate.ConfigurationError
		switch {
		case errors.As(err, &iv):
			slog.Error("participation data violates invariant", "challenge_id", challenge.ID,
				"field", iv.Field, "value", iv.Value, "reason", iv.Reason)
		case errors.As(err, &ce):
			slog.Warn("challenge misconfigured", "challenge_id", challenge.ID, "field", ce.Field, "reason", ce.Reason)
		}
		return nil, err
	}
	return view, nil
}

func (s *EventService) checkMilestones(ctx context.Context, challengeID int64, percent float64, now time.Time) {
	if s.milestones == nil {
		return
	}
	crossed, err := s.milestones.Record(ctx, challengeID, percent, now)
	if err != nil {
		slog.Warn("failed to record milestones", "challenge_id", challengeID, "error", err)
	}
	for _, m := range crossed {
		slog.Info("challenge milestone reached", "challenge_id", challengeID, "percent", m)
	}
}

// Submit sends a submission through the gateway. When the store cannot be
// reached and queueing is enabled, the payload is stored for Sync and the
// result carries its PendingID.
func (s *EventService) Submit(ctx context.Context, sub *model.Submission) (model.SubmitResult, error) {
	result, err := s.gw.Submit(ctx, sub)
	if err == nil {
		s.refreshMilestones(ctx, sub.ChallengeID)
		return result, nil
	}

	var subErr *gateway.SubmissionError
	if !s.queue || !errors.As(err, &subErr) || !subErr.Unreachable() {
		return model.SubmitResult{}, err
	}

	p, qErr := s.pending.Enqueue(sub)
	if qErr != nil {
		slog.Error("failed to queue offline submission", "challenge_id", sub.ChallengeID, "error", qErr)
		return model.SubmitResult{}, err
	}

	slog.Info("submission queued while offline", "challenge_id", sub.ChallengeID, "pending_id", p.ID)
	return model.SubmitResult{PendingID: p.ID}, nil
}

func (s *EventService) refreshMilestones(ctx context.Context, challengeID int64) {
	if s.milestones == nil {
		return
	}
	challenge, err := s.remote.Challenge(ctx, challengeID)
	if err != nil {
		slog.Warn("failed to fetch challenge for milestones", "challenge_id", challengeID, "error", err)
		return
	}
	progress, err := aggregate.ComputeProgress(challenge.CurrentValue, challenge.GoalValue)
	if err != nil {
		return
	}
	s.checkMilestones(ctx, challengeID, progress.Percent, s.clock.Now())
}

// Delete removes the requester's own participation.
func (s *EventService) Delete(ctx context.Context, challengeID, participationID int64, requester *model.Identity) error {
	list, err := s.remote.List(ctx, challengeID)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == participationID {
			return s.gw.Delete(ctx, &list[i], requester)
		}
	}
	return ErrParticipationNotFound
}

// Refresh refetches every listed challenge so the cache stays warm for
// offline use.
func (s *EventService) Refresh(ctx context.Context, challengeIDs []int64) {
	for _, id := range challengeIDs {
		challenge, err := s.remote.Challenge(ctx, id)
		if err != nil {
			slog.Warn("refresh failed", "challenge_id", id, "error", err)
			continue
		}
		if err := s.cache.SaveChallenge(challenge, s.clock.Now()); err != nil {
			slog.Warn("failed to cache challenge", "challenge_id", id, "error", err)
		}
		if _, err := s.gw.Refresh(ctx, id); err != nil {
			slog.Warn("refresh failed", "challenge_id", id, "error", err)
		}
	}
}

// Report builds the export report for a challenge.
func (s *EventService) Report(ctx context.Context, challengeID int64) (*export.Report, *Stats, error) {
	stats, err := s.Load(ctx, challengeID, nil)
	if err != nil {
		return nil, nil, err
	}
	report, err := export.Build(stats.Challenge, stats.Participations, s.clock.Now(), s.loc)
	if err != nil {
		return nil, nil, err
	}
	return report, stats, nil
}

// PublishReport uploads the CSV report and returns a download link.
func (s *EventService) PublishReport(ctx context.Context, challengeID int64) (string, error) {
	if s.storage == nil {
		return "", ErrStorageDisabled
	}

	report, _, err := s.Report(ctx, challengeID)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf); err != nil {
		return "", err
	}

	key := path.Join("exports", fmt.Sprint(challengeID), report.Filename())
	if err := s.storage.Save(ctx, key, "text/csv; charset=utf-8", &buf); err != nil {
		return "", fmt.Errorf("failed to store report: %w", err)
	}

	slog.Info("report exported", "challenge_id", challengeID, "key", key)
	return s.storage.URL(ctx, key)
}
