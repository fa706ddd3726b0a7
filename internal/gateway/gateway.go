// Package gateway is the thin boundary between the engine and the remote
// participation store.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/templui/doin/internal/model"
)

// Store is the remote persistence contract.
type Store interface {
	List(ctx context.Context, challengeID int64) ([]model.Participation, error)
	Submit(ctx context.Context, s *model.Submission) (model.SubmitResult, error)
	Delete(ctx context.Context, participationID int64) error
}

// ChallengeSource fetches challenge details, including the server-maintained
// running total.
type ChallengeSource interface {
	Challenge(ctx context.Context, id int64) (*model.Challenge, error)
}

// Listener is told about every freshly fetched list so derived statistics
// can be recomputed.
type Listener interface {
	ParticipationsRefreshed(challengeID int64, list []model.Participation)
}

type ListenerFunc func(challengeID int64, list []model.Participation)

func (f ListenerFunc) ParticipationsRefreshed(challengeID int64, list []model.Participation) {
	f(challengeID, list)
}

// pending tracks which keyed actions are in flight.
type pending struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// acquire marks key busy. It reports false when key is already busy.
func (p *pending) acquire(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.keys[key]; busy {
		return false
	}
	if p.keys == nil {
		p.keys = make(map[string]struct{})
	}
	p.keys[key] = struct{}{}
	return true
}

func (p *pending) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, key)
}

func (p *pending) busy(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.keys[key]
	return ok
}

// Gateway guards each store action with a pending flag and refetches the
// list after every successful mutation instead of splicing locally. Flags
// are per actor: a submit is keyed on challenge and submitter, a delete on
// the participation, a refresh on the challenge. Different users never
// block each other.
type Gateway struct {
	store Store

	submits   pending
	refreshes pending
	deletes   pending

	mu        sync.Mutex
	listeners []Listener
	listSeq   uint64
	delivered map[int64]uint64
}

func New(store Store) *Gateway {
	return &Gateway{
		store:     store,
		delivered: make(map[int64]uint64),
	}
}

func (g *Gateway) Subscribe(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, l)
}

func submitKey(s *model.Submission) string {
	return fmt.Sprintf("%d/%s", s.ChallengeID, s.TwitterID)
}

// Submit sends the payload once. A second call for the same submitter and
// challenge while the first is pending returns ErrInFlight without reaching
// the store.
func (g *Gateway) Submit(ctx context.Context, s *model.Submission) (model.SubmitResult, error) {
	key := submitKey(s)
	if !g.submits.acquire(key) {
		return model.SubmitResult{}, ErrInFlight
	}
	defer g.submits.release(key)

	result, err := g.store.Submit(ctx, s)
	if err != nil {
		var subErr *SubmissionError
		if !errors.As(err, &subErr) {
			subErr = &SubmissionError{Message: "failed to register participation", Err: err}
		}
		slog.Warn("participation submit failed", "challenge_id", s.ChallengeID, "error", err)
		return model.SubmitResult{}, subErr
	}

	slog.Info("participation submitted", "challenge_id", s.ChallengeID, "participation_id", result.ID,
		"contribution", s.Contribution)

	if _, err := g.list(ctx, s.ChallengeID); err != nil {
		slog.Warn("refetch after submit failed", "challenge_id", s.ChallengeID, "error", err)
	}

	return result, nil
}

// Refresh fetches the list and notifies listeners. It returns ErrInFlight
// if a refresh of the same challenge is still pending.
func (g *Gateway) Refresh(ctx context.Context, challengeID int64) ([]model.Participation, error) {
	key := fmt.Sprint(challengeID)
	if !g.refreshes.acquire(key) {
		return nil, ErrInFlight
	}
	defer g.refreshes.release(key)

	return g.list(ctx, challengeID)
}

// list always runs; out-of-order responses are not delivered over newer ones.
func (g *Gateway) list(ctx context.Context, challengeID int64) ([]model.Participation, error) {
	g.mu.Lock()
	g.listSeq++
	seq := g.listSeq
	g.mu.Unlock()

	list, err := g.store.List(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if seq < g.delivered[challengeID] {
		g.mu.Unlock()
		return list, nil
	}
	g.delivered[challengeID] = seq
	listeners := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	for _, l := range listeners {
		l.ParticipationsRefreshed(challengeID, list)
	}
	return list, nil
}

// Delete removes the requester's own participation and refetches the list.
func (g *Gateway) Delete(ctx context.Context, p *model.Participation, requester *model.Identity) error {
	if !owns(requester, p) {
		return ErrNotOwner
	}
	key := fmt.Sprint(p.ID)
	if !g.deletes.acquire(key) {
		return ErrInFlight
	}
	defer g.deletes.release(key)

	if err := g.store.Delete(ctx, p.ID); err != nil {
		return err
	}

	slog.Info("participation deleted", "challenge_id", p.ChallengeID, "participation_id", p.ID)

	if _, err := g.list(ctx, p.ChallengeID); err != nil {
		slog.Warn("refetch after delete failed", "challenge_id", p.ChallengeID, "error", err)
	}
	return nil
}

func owns(requester *model.Identity, p *model.Participation) bool {
	if requester == nil || p == nil {
		return false
	}
	if p.UserID != nil && requester.ID != 0 && *p.UserID == requester.ID {
		return true
	}
	return requester.TwitterID != "" && p.TwitterID == requester.TwitterID
}
