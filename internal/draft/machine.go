// Package draft drives a single participation draft from opening through
// submission.
package draft

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/templui/doin/internal/companion"
	"github.com/templui/doin/internal/gateway"
	"github.com/templui/doin/internal/model"
	"github.com/templui/doin/internal/validation"
)

// IdentityProvider returns the signed-in user, or nil when nobody is
// signed in.
type IdentityProvider interface {
	Identity(ctx context.Context) (*model.Identity, error)
}

type Submitter interface {
	Submit(ctx context.Context, s *model.Submission) (model.SubmitResult, error)
}

type Timer interface {
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Option func(*Machine)

func WithScheduler(s Scheduler) Option {
	return func(m *Machine) {
		m.sched = s
	}
}

// WithObserver registers a function called with a fresh snapshot after
// every change. It runs outside the machine lock.
func WithObserver(f func(Snapshot)) Option {
	return func(m *Machine) {
		m.observer = f
	}
}

type Machine struct {
	mu sync.Mutex

	challengeID int64
	ids         IdentityProvider
	submitter   Submitter
	registry    *companion.Registry
	sched       Scheduler
	observer    func(Snapshot)

	state    State
	fields   Fields
	identity *model.Identity
	// gen changes whenever the draft is opened or closed so late lookup
	// results and timers from an earlier draft are dropped.
	gen    uint64
	timers []Timer

	errMsg        string
	validationErr *validation.ValidationError
	lookupErr     error
	lookupProfile *model.Profile

	last   *model.Submission
	result *model.SubmitResult

	showMessages    bool
	showSharePrompt bool
}

func NewMachine(challengeID int64, ids IdentityProvider, submitter Submitter, registry *companion.Registry, opts ...Option) *Machine {
	m := &Machine{
		challengeID: challengeID,
		ids:         ids,
		submitter:   submitter,
		registry:    registry,
		sched:       realScheduler{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:           m.state,
		Fields:          m.fields,
		Companions:      m.registry.Companions(),
		Contribution:    m.registry.Contribution(),
		Error:           m.errMsg,
		ValidationError: m.validationErr,
		LookupError:     m.lookupErr,
		ShowMessages:    m.showMessages,
		ShowSharePrompt: m.showSharePrompt,
	}
	if m.identity != nil {
		id := *m.identity
		s.Identity = &id
	}
	if m.lookupProfile != nil {
		p := *m.lookupProfile
		s.LookupProfile = &p
	}
	if m.last != nil {
		s.LastSubmission = copySubmission(m.last)
	}
	if m.result != nil {
		r := *m.result
		s.Result = &r
	}
	return s
}

// unlock releases the lock and tells the observer about the new state.
func (m *Machine) unlock() {
	var snap Snapshot
	observer := m.observer
	if observer != nil {
		snap = m.snapshotLocked()
	}
	m.mu.Unlock()
	if observer != nil {
		observer(snap)
	}
}

// Open starts a draft. Without an identity the machine parks in
// Unauthenticated; the caller signs in and opens again.
func (m *Machine) Open(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Idle && m.state != Unauthenticated {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	m.mu.Unlock()

	identity, err := m.ids.Identity(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.unlock()

	if m.state != Idle && m.state != Unauthenticated {
		return ErrInvalidTransition
	}
	m.gen++
	m.showMessages, m.showSharePrompt = false, false

	if identity == nil {
		m.identity = nil
		m.state = Unauthenticated
		return nil
	}

	id := *identity
	m.identity = &id
	if m.fields.Prefecture == "" {
		m.fields.Prefecture = identity.SavedPrefecture
	}
	if m.fields.Gender == "" && identity.SavedGender.Provided() {
		m.fields.Gender = identity.SavedGender
	}

	if identity.HasSavedProfile() && m.registry.Len() == 0 {
		m.state = OneClickConfirm
	} else {
		m.state = FullForm
	}
	slog.Debug("draft opened", "challenge_id", m.challengeID, "state", m.state)
	return nil
}

// edit runs f when the draft is editable. Editing moves a fast-path or
// failed draft back to the full form; Confirming stays put.
func (m *Machine) edit(f func() error) error {
	m.mu.Lock()
	defer m.unlock()

	if !m.state.editable() {
		return ErrInvalidTransition
	}
	if err := f(); err != nil {
		return err
	}
	if m.state == OneClickConfirm || m.state == Error {
		m.state = FullForm
	}
	m.errMsg = ""
	return nil
}

func (m *Machine) SetMessage(msg string) error {
	return m.edit(func() error {
		m.fields.Message = validation.SanitizeMessage(msg)
		return nil
	})
}

func (m *Machine) SetPrefecture(name string) error {
	return m.edit(func() error {
		m.fields.Prefecture = strings.TrimSpace(name)
		if m.fields.Prefecture != "" && m.validationErr != nil && m.validationErr.Code == validation.CodeMissingPrefecture {
			m.validationErr = nil
		}
		return nil
	})
}

func (m *Machine) SetGender(g model.Gender) error {
	return m.edit(func() error {
		m.fields.Gender = g
		if g.Provided() && m.validationErr != nil && m.validationErr.Code == validation.CodeMissingGender {
			m.validationErr = nil
		}
		return nil
	})
}

func (m *Machine) SetAllowVideoUse(allow bool) error {
	return m.edit(func() error {
		m.fields.AllowVideoUse = allow
		return nil
	})
}

// AddCompanion adds a companion to the draft. A missing name is recorded
// on the snapshot and returned.
func (m *Machine) AddCompanion(in companion.Input) (model.CompanionDraft, error) {
	var added model.CompanionDraft
	err := m.edit(func() error {
		c, err := m.registry.Add(in)
		if err != nil {
			var vErr *validation.ValidationError
			if errors.As(err, &vErr) {
				m.validationErr = vErr
			}
			return err
		}
		added = c
		m.validationErr = nil
		m.lookupProfile = nil
		m.lookupErr = nil
		return nil
	})
	return added, err
}

func (m *Machine) RemoveCompanion(id string) error {
	return m.edit(func() error {
		m.registry.Remove(id)
		return nil
	})
}

// LookupCompanion resolves a handle or profile URL. The machine lock is
// not held during the call; a result from a superseded lookup or an
// earlier draft returns companion.ErrStaleLookup and is not recorded.
func (m *Machine) LookupCompanion(ctx context.Context, input string) (model.Profile, error) {
	m.mu.Lock()
	if !m.state.editable() {
		m.mu.Unlock()
		return model.Profile{}, ErrInvalidTransition
	}
	gen := m.gen
	m.mu.Unlock()

	profile, err := m.registry.Resolve(ctx, input)
	if errors.Is(err, companion.ErrStaleLookup) {
		return model.Profile{}, err
	}

	m.mu.Lock()
	defer m.unlock()
	if gen != m.gen {
		return model.Profile{}, companion.ErrStaleLookup
	}
	if err != nil {
		m.lookupErr = err
		m.lookupProfile = nil
		return model.Profile{}, err
	}
	m.lookupErr = nil
	m.lookupProfile = &profile
	return profile, nil
}

// EditForm leaves the fast path or the confirm screen for the full form.
func (m *Machine) EditForm() error {
	m.mu.Lock()
	defer m.unlock()

	switch m.state {
	case OneClickConfirm, Confirming, Error, FullForm:
		m.state = FullForm
		return nil
	}
	return ErrInvalidTransition
}

// RequestConfirm moves to the confirm screen once prefecture and gender
// are filled in.
func (m *Machine) RequestConfirm() error {
	m.mu.Lock()
	defer m.unlock()

	switch m.state {
	case FullForm, OneClickConfirm, Error:
	default:
		return ErrInvalidTransition
	}
	if err := m.checkRequiredLocked(); err != nil {
		return err
	}
	m.state = Confirming
	return nil
}

func (m *Machine) checkRequiredLocked() error {
	var vErr *validation.ValidationError
	switch {
	case m.fields.Prefecture == "":
		vErr = validation.NewValidationError(validation.CodeMissingPrefecture, "prefecture", "select your prefecture")
	case !m.fields.Gender.Provided():
		vErr = validation.NewValidationError(validation.CodeMissingGender, "gender", "select your gender")
	}
	if vErr == nil {
		m.validationErr = nil
		return nil
	}
	m.validationErr = vErr
	m.state = FullForm
	return vErr
}

// Cancel backs out of the confirm screen.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.unlock()

	if m.state != Confirming {
		return ErrInvalidTransition
	}
	m.state = FullForm
	return nil
}

// Confirm submits the draft. While a submission is pending it returns
// (nil, nil) without contacting the store again. A rejection is returned
// as *gateway.SubmissionError and leaves the draft untouched for a retry.
func (m *Machine) Confirm(ctx context.Context) (*model.SubmitResult, error) {
	m.mu.Lock()
	switch m.state {
	case Submitting:
		m.mu.Unlock()
		return nil, nil
	case Confirming, OneClickConfirm, Error:
	default:
		m.mu.Unlock()
		return nil, ErrInvalidTransition
	}

	if err := m.checkRequiredLocked(); err != nil {
		m.unlock()
		return nil, err
	}

	payload := m.packageLocked()
	if err := validation.ValidateSubmission(payload); err != nil {
		var vErr *validation.ValidationError
		if errors.As(err, &vErr) {
			m.validationErr = vErr
		}
		m.state = FullForm
		m.unlock()
		return nil, err
	}

	m.state = Submitting
	m.errMsg = ""
	m.unlock()

	result, err := m.submitter.Submit(ctx, payload)

	m.mu.Lock()
	defer m.unlock()

	if err != nil {
		var subErr *gateway.SubmissionError
		if !errors.As(err, &subErr) {
			subErr = &gateway.SubmissionError{Message: "failed to register participation", Err: err}
		}
		m.state = Error
		m.errMsg = subErr.Message
		return nil, subErr
	}

	m.last = copySubmission(payload)
	m.result = &result
	m.fields = Fields{}
	m.registry.Reset()
	m.registry.CancelLookup()
	m.lookupProfile = nil
	m.lookupErr = nil
	m.validationErr = nil
	m.state = Success
	m.scheduleRevealsLocked()

	slog.Info("participation draft submitted", "challenge_id", m.challengeID, "participation_id", result.ID,
		"contribution", payload.Contribution)

	r := result
	return &r, nil
}

// packageLocked builds the payload. Contribution is taken from the
// registry at this moment, not from any earlier screen.
func (m *Machine) packageLocked() *model.Submission {
	companions := m.registry.Companions()
	payload := &model.Submission{
		ChallengeID:    m.challengeID,
		Message:        m.fields.Message,
		CompanionCount: len(companions),
		Contribution:   1 + len(companions),
		Prefecture:     m.fields.Prefecture,
		Gender:         m.fields.Gender,
		AllowVideoUse:  m.fields.AllowVideoUse,
	}
	if m.identity != nil {
		payload.TwitterID = m.identity.TwitterID
		payload.DisplayName = m.identity.DisplayName
		payload.Username = m.identity.Handle
		payload.ProfileImage = m.identity.AvatarURL
		payload.FollowersCount = m.identity.FollowersCount
	}
	if payload.DisplayName == "" {
		payload.DisplayName = DefaultDisplayName
	}
	for _, c := range companions {
		payload.Companions = append(payload.Companions, model.CompanionPayload{
			DisplayName:     c.DisplayName,
			TwitterUsername: c.Handle,
			TwitterID:       c.TwitterID,
			ProfileImage:    c.AvatarURL,
		})
	}
	return payload
}

func (m *Machine) scheduleRevealsLocked() {
	gen := m.gen
	m.timers = append(m.timers,
		m.sched.AfterFunc(MessagesRevealDelay, func() {
			m.reveal(gen, func() { m.showMessages = true })
		}),
		m.sched.AfterFunc(SharePromptRevealDelay, func() {
			m.reveal(gen, func() { m.showSharePrompt = true })
		}),
	)
}

func (m *Machine) reveal(gen uint64, set func()) {
	m.mu.Lock()
	if gen != m.gen || m.state != Success {
		m.mu.Unlock()
		return
	}
	set()
	m.unlock()
}

func (m *Machine) DismissError() {
	m.mu.Lock()
	defer m.unlock()
	m.errMsg = ""
	m.validationErr = nil
	m.lookupErr = nil
}

func (m *Machine) DismissSharePrompt() {
	m.mu.Lock()
	defer m.unlock()
	m.showSharePrompt = false
}

// Close discards the draft and returns to Idle. The last accepted
// submission is kept. Closing while a submission is pending is refused.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.unlock()

	if m.state == Submitting {
		return ErrInvalidTransition
	}
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
	m.gen++
	m.fields = Fields{}
	m.registry.Reset()
	m.registry.CancelLookup()
	m.errMsg = ""
	m.validationErr = nil
	m.lookupErr = nil
	m.lookupProfile = nil
	m.showMessages, m.showSharePrompt = false, false
	m.state = Idle
	return nil
}

func copySubmission(s *model.Submission) *model.Submission {
	c := *s
	c.Companions = slices.Clone(s.Companions)
	return &c
}
