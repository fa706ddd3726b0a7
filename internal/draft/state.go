package draft

import (
	"errors"
	"time"

	"github.com/templui/doin/internal/model"
	"github.com/templui/doin/internal/validation"
)

type State int

const (
	Idle State = iota
	Unauthenticated
	OneClickConfirm
	FullForm
	Confirming
	Submitting
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Unauthenticated:
		return "unauthenticated"
	case OneClickConfirm:
		return "one-click-confirm"
	case FullForm:
		return "full-form"
	case Confirming:
		return "confirming"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return "unknown"
}

// editable reports whether draft fields may change in this state.
func (s State) editable() bool {
	switch s {
	case OneClickConfirm, FullForm, Confirming, Error:
		return true
	}
	return false
}

var ErrInvalidTransition = errors.New("action not allowed in current state")

// Delays before the post-submit reveals.
const (
	MessagesRevealDelay    = 500 * time.Millisecond
	SharePromptRevealDelay = 1500 * time.Millisecond
)

// DefaultDisplayName is used when the identity carries no name.
const DefaultDisplayName = "ゲスト"

type Fields struct {
	Message       string
	Prefecture    string
	Gender        model.Gender
	AllowVideoUse bool
}

// Snapshot is a copy of the machine state for rendering. Mutating it has no
// effect on the machine.
type Snapshot struct {
	State        State
	Fields       Fields
	Companions   []model.CompanionDraft
	Contribution int
	Identity     *model.Identity

	// Error is the human-readable submission failure, shown once.
	Error           string
	ValidationError *validation.ValidationError
	LookupError     error
	LookupProfile   *model.Profile

	// LastSubmission is the payload of the most recent accepted submission.
	// It is independent of the reset draft.
	LastSubmission *model.Submission
	Result         *model.SubmitResult

	ShowMessages    bool
	ShowSharePrompt bool
}
