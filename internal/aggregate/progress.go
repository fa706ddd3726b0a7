package aggregate

type Progress struct {
	Percent   float64 `json:"progress"`
	Remaining int     `json:"remaining"`
}

// ComputeProgress derives the completion percentage (capped at 100) and the
// remaining count (floored at 0) from the server-maintained total.
func ComputeProgress(current, goal int) (Progress, error) {
	if goal == 0 {
		return Progress{}, &ConfigurationError{Field: "goalValue", Reason: "goal must be at least 1"}
	}
	if goal < 0 {
		return Progress{}, &InvariantViolation{Field: "goalValue", Value: goal, Reason: "must not be negative"}
	}
	if current < 0 {
		return Progress{}, &InvariantViolation{Field: "currentValue", Value: current, Reason: "must not be negative"}
	}

	return Progress{
		Percent:   min(float64(current)/float64(goal)*100, 100),
		Remaining: max(goal-current, 0),
	}, nil
}
