package gateway

import (
	"errors"
)

var (
	// ErrInFlight is returned when the same action is already pending.
	ErrInFlight = errors.New("request already in flight")

	// ErrNotOwner is returned when deleting someone else's participation.
	ErrNotOwner = errors.New("only the owner can delete this participation")

	ErrChallengeNotFound = errors.New("challenge not found")
)

// SubmissionError is a rejected or failed submission. Message is meant to
// be shown to the user once; the draft stays intact for a retry.
type SubmissionError struct {
	Message string
	// Status is the HTTP status of the rejection, 0 when the server was
	// never reached.
	Status int
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Unreachable reports whether the request never got a response, which makes
// it a candidate for the offline queue.
func (e *SubmissionError) Unreachable() bool {
	return e.Status == 0
}

// RequestError is a non-submission call that the server rejected.
type RequestError struct {
	Procedure string
	Status    int
	Message   string
}

func (e *RequestError) Error() string {
	return e.Procedure + ": " + e.Message
}
