package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/templui/doin/internal/companion"
	"github.com/templui/doin/internal/gateway"
	"github.com/templui/doin/internal/model"
	"github.com/templui/doin/internal/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticIdentity struct {
	identity *model.Identity
	err      error
}

func (s staticIdentity) Identity(ctx context.Context) (*model.Identity, error) {
	return s.identity, s.err
}

type recordingSubmitter struct {
	mu       sync.Mutex
	calls    []*model.Submission
	err      error
	block    chan struct{}
	entered  chan struct{}
	resultID int64
}

func (r *recordingSubmitter) Submit(ctx context.Context, s *model.Submission) (model.SubmitResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	err := r.err
	r.mu.Unlock()

	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	if err != nil {
		return model.SubmitResult{}, err
	}
	n := 42
	return model.SubmitResult{ID: r.resultID, ParticipantNumber: &n}, nil
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) fire(d time.Duration) {
	for _, t := range s.timers {
		if t.d == d && !t.stopped {
			t.f()
		}
	}
}

type noResolver struct{}

func (noResolver) Resolve(ctx context.Context, handle string) (model.Profile, error) {
	if handle == "ren" {
		return model.Profile{ID: "11", Name: "Ren", Handle: "ren"}, nil
	}
	return model.Profile{}, companion.ErrProfileNotFound
}

func savedIdentity() *model.Identity {
	return &model.Identity{
		ID:              9,
		TwitterID:       "tw-9",
		Handle:          "aki",
		DisplayName:     "Aki",
		SavedPrefecture: "大阪府",
		SavedGender:     model.GenderFemale,
	}
}

func newMachine(identity *model.Identity, sub *recordingSubmitter, sched *fakeScheduler) *Machine {
	return NewMachine(7, staticIdentity{identity: identity}, sub, companion.NewRegistry(noResolver{}), WithScheduler(sched))
}

func TestOpenWithoutIdentity(t *testing.T) {
	m := newMachine(nil, &recordingSubmitter{}, &fakeScheduler{})

	require.NoError(t, m.Open(context.Background()))
	assert.Equal(t, Unauthenticated, m.State())

	_, err := m.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOpenIdentityError(t *testing.T) {
	boom := errors.New("session lookup failed")
	m := NewMachine(7, staticIdentity{err: boom}, &recordingSubmitter{}, companion.NewRegistry(nil))

	assert.ErrorIs(t, m.Open(context.Background()), boom)
	assert.Equal(t, Idle, m.State())
}

func TestOpenFastPath(t *testing.T) {
	m := newMachine(savedIdentity(), &recordingSubmitter{}, &fakeScheduler{})

	require.NoError(t, m.Open(context.Background()))
	snap := m.Snapshot()
	assert.Equal(t, OneClickConfirm, snap.State)
	assert.Equal(t, "大阪府", snap.Fields.Prefecture)
	assert.Equal(t, model.GenderFemale, snap.Fields.Gender)
}

func TestOpenWithoutSavedProfileGoesToFullForm(t *testing.T) {
	tests := []struct {
		name     string
		identity *model.Identity
	}{
		{"no saved fields", &model.Identity{TwitterID: "tw-1"}},
		{"unspecified gender", &model.Identity{TwitterID: "tw-1", SavedPrefecture: "東京都", SavedGender: model.GenderUnspecified}},
		{"no prefecture", &model.Identity{TwitterID: "tw-1", SavedGender: model.GenderMale}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(tt.identity, &recordingSubmitter{}, &fakeScheduler{})
			require.NoError(t, m.Open(context.Background()))
			assert.Equal(t, FullForm, m.State())
		})
	}
}

func TestOpenWithCompanionsSkipsFastPath(t *testing.T) {
	reg := companion.NewRegistry(nil)
	_, err := reg.Add(companion.Input{Name: "Ren"})
	require.NoError(t, err)

	m := NewMachine(7, staticIdentity{identity: savedIdentity()}, &recordingSubmitter{}, reg, WithScheduler(&fakeScheduler{}))
	require.NoError(t, m.Open(context.Background()))
	assert.Equal(t, FullForm, m.State())
}

func TestFullFormRequiresPrefectureAndGender(t *testing.T) {
	m := newMachine(&model.Identity{TwitterID: "tw-1", DisplayName: "Mio"}, &recordingSubmitter{}, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))

	err := m.RequestConfirm()
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, validation.CodeMissingPrefecture, vErr.Code)
	assert.Equal(t, FullForm, m.State())

	require.NoError(t, m.SetPrefecture("北海道"))
	require.NoError(t, m.SetGender(model.GenderUnspecified))
	err = m.RequestConfirm()
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, validation.CodeMissingGender, vErr.Code)
	assert.Equal(t, validation.CodeMissingGender, m.Snapshot().ValidationError.Code)

	require.NoError(t, m.SetGender(model.GenderMale))
	assert.Nil(t, m.Snapshot().ValidationError)
	require.NoError(t, m.RequestConfirm())
	assert.Equal(t, Confirming, m.State())

	require.NoError(t, m.Cancel())
	assert.Equal(t, FullForm, m.State())
}

func TestConfirmFromFullFormIsRejected(t *testing.T) {
	m := newMachine(savedIdentity(), &recordingSubmitter{}, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))
	require.NoError(t, m.EditForm())

	_, err := m.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEditsLeaveFastPath(t *testing.T) {
	m := newMachine(savedIdentity(), &recordingSubmitter{}, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))

	require.NoError(t, m.SetMessage("  がんばれ\r\n "))
	snap := m.Snapshot()
	assert.Equal(t, FullForm, snap.State)
	assert.Equal(t, "がんばれ", snap.Fields.Message)
}

func TestEditsStayOnConfirmScreen(t *testing.T) {
	m := newMachine(savedIdentity(), &recordingSubmitter{}, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))
	require.NoError(t, m.RequestConfirm())

	require.NoError(t, m.SetAllowVideoUse(true))
	assert.Equal(t, Confirming, m.State())
	assert.True(t, m.Snapshot().Fields.AllowVideoUse)
}

func TestConfirmSuccess(t *testing.T) {
	sub := &recordingSubmitter{resultID: 100}
	sched := &fakeScheduler{}
	var observed []State
	m := NewMachine(7, staticIdentity{identity: savedIdentity()}, sub, companion.NewRegistry(noResolver{}),
		WithScheduler(sched), WithObserver(func(s Snapshot) { observed = append(observed, s.State) }))

	require.NoError(t, m.Open(context.Background()))
	require.NoError(t, m.SetMessage("応援してます"))
	c, err := m.AddCompanion(companion.Input{Name: "Ren"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	require.NoError(t, m.RequestConfirm())

	res, err := m.Confirm(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, int64(100), res.ID)

	require.Equal(t, 1, sub.count())
	sent := sub.calls[0]
	assert.Equal(t, int64(7), sent.ChallengeID)
	assert.Equal(t, 2, sent.Contribution)
	assert.Equal(t, 1, sent.CompanionCount)
	assert.Equal(t, "tw-9", sent.TwitterID)
	assert.Equal(t, "Aki", sent.DisplayName)
	assert.Equal(t, "Ren", sent.Companions[0].DisplayName)

	snap := m.Snapshot()
	assert.Equal(t, Success, snap.State)
	assert.Equal(t, Fields{}, snap.Fields)
	assert.Empty(t, snap.Companions)
	assert.Equal(t, 1, snap.Contribution)
	require.NotNil(t, snap.LastSubmission)
	assert.Equal(t, "応援してます", snap.LastSubmission.Message)
	assert.Equal(t, 2, snap.LastSubmission.Contribution)
	assert.False(t, snap.ShowMessages)
	assert.False(t, snap.ShowSharePrompt)

	snap.LastSubmission.Message = "changed"
	assert.Equal(t, "応援してます", m.Snapshot().LastSubmission.Message)

	sched.fire(MessagesRevealDelay)
	assert.True(t, m.Snapshot().ShowMessages)
	assert.False(t, m.Snapshot().ShowSharePrompt)
	sched.fire(SharePromptRevealDelay)
	assert.True(t, m.Snapshot().ShowSharePrompt)

	m.DismissSharePrompt()
	assert.False(t, m.Snapshot().ShowSharePrompt)

	assert.Contains(t, observed, Submitting)
	assert.Equal(t, Success, observed[len(observed)-1])
}

func TestContributionRecomputedAtSubmit(t *testing.T) {
	sub := &recordingSubmitter{}
	m := newMachine(savedIdentity(), sub, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))
	require.NoError(t, m.RequestConfirm())
	assert.Equal(t, 1, m.Snapshot().Contribution)

	_, err := m.AddCompanion(companion.Input{Name: "Ren"})
	require.NoError(t, err)
	_, err = m.AddCompanion(companion.Input{Name: "Mio"})
	require.NoError(t, err)
	assert.Equal(t, Confirming, m.State())

	_, err = m.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sub.calls[0].Contribution)
}

func TestConfirmRejectionPreservesDraft(t *testing.T) {
	sub := &recordingSubmitter{err: &gateway.SubmissionError{Message: "You have already joined this challenge.", Status: 409}}
	m := newMachine(savedIdentity(), sub, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))
	require.NoError(t, m.SetMessage("hello"))
	_, err := m.AddCompanion(companion.Input{Name: "Ren"})
	require.NoError(t, err)
	require.NoError(t, m.RequestConfirm())

	_, err = m.Confirm(context.Background())
	var subErr *gateway.SubmissionError
	require.ErrorAs(t, err, &subErr)

	snap := m.Snapshot()
	assert.Equal(t, Error, snap.State)
	assert.Equal(t, "You have already joined this challenge.", snap.Error)
	assert.Equal(t, "hello", snap.Fields.Message)
	assert.Len(t, snap.Companions, 1)
	assert.Nil(t, snap.LastSubmission)

	m.DismissError()
	assert.Empty(t, m.Snapshot().Error)

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()
	_, err = m.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Success, m.State())
	assert.Equal(t, 2, sub.count())
}

func TestConfirmWrapsPlainErrors(t *testing.T) {
	sub := &recordingSubmitter{err: errors.New("connection reset")}
	m := newMachine(savedIdentity(), sub, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))

	_, err := m.Confirm(context.Background())
	var subErr *gateway.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.NotEmpty(t, m.Snapshot().Error)
}

func TestDoubleConfirmIsNoop(t *testing.T) {
	sub := &recordingSubmitter{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	m := newMachine(savedIdentity(), sub, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := m.Confirm(context.Background())
		done <- err
	}()
	<-sub.entered
	assert.Equal(t, Submitting, m.State())

	res, err := m.Confirm(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, res)

	assert.ErrorIs(t, m.SetMessage("late"), ErrInvalidTransition)
	assert.ErrorIs(t, m.Close(), ErrInvalidTransition)

	close(sub.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sub.count())
	assert.Equal(t, Success, m.State())
}

func TestAddCompanionMissingName(t *testing.T) {
	m := newMachine(savedIdentity(), &recordingSubmitter{}, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))

	_, err := m.AddCompanion(companion.Input{Name: "   "})
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, validation.CodeMissingName, m.Snapshot().ValidationError.Code)
	assert.Equal(t, OneClickConfirm, m.State())
}

func TestLookupCompanion(t *testing.T) {
	m := newMachine(savedIdentity(), &recordingSubmitter{}, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))

	_, err := m.LookupCompanion(context.Background(), "@nobody")
	var nf *companion.ProfileNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nobody", nf.Handle)
	assert.Error(t, m.Snapshot().LookupError)

	p, err := m.LookupCompanion(context.Background(), "https://x.com/ren")
	require.NoError(t, err)
	snap := m.Snapshot()
	assert.Nil(t, snap.LookupError)
	require.NotNil(t, snap.LookupProfile)
	assert.Equal(t, "Ren", snap.LookupProfile.Name)

	c, err := m.AddCompanion(companion.Input{Profile: &p})
	require.NoError(t, err)
	assert.Equal(t, "ren", c.Handle)
	assert.Equal(t, "11", c.TwitterID)
	assert.Nil(t, m.Snapshot().LookupProfile)

	require.NoError(t, m.RemoveCompanion(c.ID))
	require.NoError(t, m.RemoveCompanion(c.ID))
	assert.Empty(t, m.Snapshot().Companions)
}

func TestCloseStopsRevealsAndResets(t *testing.T) {
	sched := &fakeScheduler{}
	m := newMachine(savedIdentity(), &recordingSubmitter{}, sched)
	require.NoError(t, m.Open(context.Background()))
	_, err := m.Confirm(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close())
	for _, tm := range sched.timers {
		assert.True(t, tm.stopped)
	}

	// a timer that raced the close must not flip the flags
	sched.timers[0].stopped = false
	sched.fire(MessagesRevealDelay)

	snap := m.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.False(t, snap.ShowMessages)
	assert.NotNil(t, snap.LastSubmission)

	require.NoError(t, m.Open(context.Background()))
	assert.Equal(t, OneClickConfirm, m.State())
}

func TestOpenTwiceIsRejected(t *testing.T) {
	m := newMachine(savedIdentity(), &recordingSubmitter{}, &fakeScheduler{})
	require.NoError(t, m.Open(context.Background()))
	assert.ErrorIs(t, m.Open(context.Background()), ErrInvalidTransition)
}
