package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/templui/doin/internal/companion"
	"github.com/templui/doin/internal/draft"
	"github.com/templui/doin/internal/model"
)

var ErrUnauthenticated = errors.New("sign in to participate")

type CompanionRequest struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// JoinRequest is a complete participation filled in one go, as sent by the
// API or the CLI.
type JoinRequest struct {
	Message       string             `json:"message"`
	Prefecture    string             `json:"prefecture"`
	Gender        model.Gender       `json:"gender"`
	AllowVideoUse bool               `json:"allowVideoUse"`
	Companions    []CompanionRequest `json:"companions"`
}

// Joiner runs a draft machine headlessly: open, fill, confirm, close.
type Joiner struct {
	events   *EventService
	resolver companion.ProfileResolver
	opts     []draft.Option
}

func NewJoiner(events *EventService, resolver companion.ProfileResolver, opts ...draft.Option) *Joiner {
	return &Joiner{events: events, resolver: resolver, opts: opts}
}

func (j *Joiner) Join(ctx context.Context, challengeID int64, ids draft.IdentityProvider, req JoinRequest) (*model.SubmitResult, error) {
	m := draft.NewMachine(challengeID, ids, j.events, companion.NewRegistry(j.resolver), j.opts...)
	defer func() {
		if err := m.Close(); err != nil {
			slog.Warn("failed to close draft", "challenge_id", challengeID, "error", err)
		}
	}()

	if err := m.Open(ctx); err != nil {
		return nil, err
	}
	if m.State() == draft.Unauthenticated {
		return nil, ErrUnauthenticated
	}

	if err := m.SetMessage(req.Message); err != nil {
		return nil, err
	}
	if req.Prefecture != "" {
		if err := m.SetPrefecture(req.Prefecture); err != nil {
			return nil, err
		}
	}
	if req.Gender != "" {
		if err := m.SetGender(req.Gender); err != nil {
			return nil, err
		}
	}
	if err := m.SetAllowVideoUse(req.AllowVideoUse); err != nil {
		return nil, err
	}

	for _, c := range req.Companions {
		if err := j.addCompanion(ctx, m, c); err != nil {
			return nil, err
		}
	}

	if err := m.RequestConfirm(); err != nil {
		return nil, err
	}
	result, err := m.Confirm(ctx)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// addCompanion resolves the handle when one is given. An unknown handle or
// a failed lookup falls back to the typed name.
func (j *Joiner) addCompanion(ctx context.Context, m *draft.Machine, c CompanionRequest) error {
	in := companion.Input{Name: c.Name, Handle: c.Handle}
	if c.Handle != "" {
		profile, err := m.LookupCompanion(ctx, c.Handle)
		switch {
		case err == nil:
			in.Profile = &profile
		case c.Name == "":
			return err
		default:
			slog.Debug("companion lookup failed, using typed name", "handle", c.Handle, "error", err)
		}
	}
	_, err := m.AddCompanion(in)
	return err
}
