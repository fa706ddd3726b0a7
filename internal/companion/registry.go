// Package companion keeps the people a fan brings along while a
// participation draft is being filled in.
package companion

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/templui/doin/internal/model"
	"github.com/templui/doin/internal/validation"
)

// ProfileResolver looks up a Twitter-style account by bare handle. It
// returns ErrProfileNotFound when the account does not exist; any other
// error is treated as a transport failure.
type ProfileResolver interface {
	Resolve(ctx context.Context, handle string) (model.Profile, error)
}

// Input describes a companion about to be added. Profile wins over the
// typed Name when both are present.
type Input struct {
	Profile *model.Profile
	Name    string
	Handle  string
}

// Registry is an ordered, draft-local list of companions.
type Registry struct {
	mu         sync.Mutex
	companions []model.CompanionDraft
	resolver   ProfileResolver
	newID      func() string

	lookupMu  sync.Mutex
	lookupSeq uint64
}

func NewRegistry(resolver ProfileResolver) *Registry {
	return &Registry{
		resolver: resolver,
		newID:    newDraftID,
	}
}

func newDraftID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Add appends a companion. It needs either a resolved profile or a
// non-blank typed name.
func (r *Registry) Add(in Input) (model.CompanionDraft, error) {
	name := validation.SanitizeName(in.Name)
	if in.Profile != nil && strings.TrimSpace(in.Profile.Name) != "" {
		name = validation.SanitizeName(in.Profile.Name)
	}
	if err := validation.ValidateName(name); err != nil {
		return model.CompanionDraft{}, err
	}

	c := model.CompanionDraft{
		DisplayName: name,
		Handle:      validation.ParseHandle(in.Handle),
	}
	if in.Profile != nil {
		c.Handle = in.Profile.Handle
		c.TwitterID = in.Profile.ID
		c.AvatarURL = in.Profile.AvatarURL
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = r.newID()
	r.companions = append(r.companions, c)
	return c, nil
}

// Remove drops the companion with the given ID. Unknown IDs are ignored so
// a double tap is harmless.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.companions = slices.DeleteFunc(r.companions, func(c model.CompanionDraft) bool {
		return c.ID == id
	})
}

func (r *Registry) Companions() []model.CompanionDraft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.companions)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.companions)
}

// Contribution is the headcount of the draft: the submitter plus every
// companion. It is always derived, never stored.
func (r *Registry) Contribution() int {
	return 1 + r.Len()
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companions = nil
}

// Resolve normalizes a handle or profile URL and looks it up. Only the
// most recent call may deliver a result; an earlier call that finishes
// later returns ErrStaleLookup.
func (r *Registry) Resolve(ctx context.Context, input string) (model.Profile, error) {
	handle := validation.ParseHandle(input)
	seq := r.nextLookup()

	if handle == "" {
		return model.Profile{}, validation.NewValidationError(validation.CodeMissingName, "handle", "enter a Twitter username")
	}
	if r.resolver == nil {
		return model.Profile{}, &LookupFailedError{Handle: handle, Err: errors.New("no profile resolver configured")}
	}

	profile, err := r.resolver.Resolve(ctx, handle)

	if !r.isLatest(seq) {
		slog.Debug("discarding stale profile lookup", "handle", handle)
		return model.Profile{}, ErrStaleLookup
	}

	if errors.Is(err, ErrProfileNotFound) {
		return model.Profile{}, &ProfileNotFoundError{Handle: handle}
	}
	if err != nil {
		return model.Profile{}, &LookupFailedError{Handle: handle, Err: err}
	}
	return profile, nil
}

// CancelLookup invalidates any lookup still in flight, e.g. when the input
// is cleared.
func (r *Registry) CancelLookup() {
	r.nextLookup()
}

func (r *Registry) nextLookup() uint64 {
	r.lookupMu.Lock()
	defer r.lookupMu.Unlock()
	r.lookupSeq++
	return r.lookupSeq
}

func (r *Registry) isLatest(seq uint64) bool {
	r.lookupMu.Lock()
	defer r.lookupMu.Unlock()
	return seq == r.lookupSeq
}
