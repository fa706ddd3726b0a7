package model

import (
	"time"
)

type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

// Provided reports whether the gender was actually chosen.
func (g Gender) Provided() bool {
	return g == GenderMale || g == GenderFemale
}

type Participation struct {
	ID             int64     `json:"id" db:"id"`
	ChallengeID    int64     `json:"challengeId" db:"challenge_id"`
	UserID         *int64    `json:"userId" db:"user_id"` // Nullable for anonymous entries
	TwitterID      string    `json:"twitterId" db:"twitter_id"`
	Username       string    `json:"username" db:"username"`
	DisplayName    string    `json:"displayName" db:"display_name"`
	ProfileImage   string    `json:"profileImage" db:"profile_image"`
	Message        *string   `json:"message" db:"message"`
	Contribution   int       `json:"contribution" db:"contribution"`
	CompanionCount int       `json:"companionCount" db:"companion_count"`
	Prefecture     *string   `json:"prefecture" db:"prefecture"`
	Gender         Gender    `json:"gender" db:"gender"`
	AllowVideoUse  bool      `json:"allowVideoUse" db:"allow_video_use"`
	IsAnonymous    bool      `json:"isAnonymous" db:"is_anonymous"`
	FollowersCount int       `json:"followersCount" db:"followers_count"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Headcount is the number of people this record stands for.
// A record without an explicit contribution counts as one.
func (p *Participation) Headcount() int {
	if p.Contribution == 0 {
		return 1
	}
	return p.Contribution
}

func (p *Participation) PrefectureName() string {
	if p.Prefecture == nil {
		return ""
	}
	return *p.Prefecture
}

func (p *Participation) HasMessage() bool {
	return p.Message != nil && *p.Message != ""
}
