package aggregate

import (
	"fmt"

	"github.com/templui/doin/internal/model"
)

// InvariantViolation reports numeric data that a trusted source should
// never produce. It is not recoverable locally.
type InvariantViolation struct {
	Field  string
	Value  int
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s=%d: %s", e.Field, e.Value, e.Reason)
}

// ConfigurationError reports a challenge that cannot be measured, such as a
// zero goal.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func checkRecord(p *model.Participation) error {
	if p.Contribution < 0 {
		return &InvariantViolation{Field: "contribution", Value: p.Contribution, Reason: "must not be negative"}
	}
	if p.CompanionCount < 0 {
		return &InvariantViolation{Field: "companionCount", Value: p.CompanionCount, Reason: "must not be negative"}
	}
	return nil
}
