package model

import (
	"time"
)

// UndecidedEventYear marks an event date that the host has not fixed yet.
const UndecidedEventYear = 2099

type Challenge struct {
	ID           int64     `json:"id"`
	HostID       int64     `json:"hostUserId"`
	HostName     string    `json:"hostName"`
	Title        string    `json:"title"`
	GoalValue    int       `json:"goalValue"`
	GoalUnit     string    `json:"goalUnit"`
	CurrentValue int       `json:"currentValue"`
	EventDate    time.Time `json:"eventDate"`
}

func (c *Challenge) IsDateUndecided() bool {
	return c.EventDate.Year() == UndecidedEventYear
}

// Unit falls back to the attendance unit when the host left it blank.
func (c *Challenge) Unit() string {
	if c.GoalUnit == "" {
		return "人"
	}
	return c.GoalUnit
}
