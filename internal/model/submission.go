package model

type CompanionPayload struct {
	DisplayName     string `json:"displayName" validate:"required,max=100"`
	TwitterUsername string `json:"twitterUsername,omitempty"`
	TwitterID       string `json:"twitterId,omitempty"`
	ProfileImage    string `json:"profileImage,omitempty"`
}

// Submission is the payload sent to participations.create.
type Submission struct {
	ChallengeID    int64              `json:"challengeId" validate:"gt=0"`
	Message        string             `json:"message,omitempty" validate:"max=500"`
	CompanionCount int                `json:"companionCount" validate:"gte=0"`
	Contribution   int                `json:"contribution" validate:"gte=1"`
	Prefecture     string             `json:"prefecture" validate:"required"`
	Gender         Gender             `json:"gender" validate:"required,oneof=male female unspecified"`
	TwitterID      string             `json:"twitterId" validate:"required"`
	DisplayName    string             `json:"displayName" validate:"required,max=100"`
	Username       string             `json:"username,omitempty"`
	ProfileImage   string             `json:"profileImage,omitempty"`
	FollowersCount int                `json:"followersCount,omitempty"`
	AllowVideoUse  bool               `json:"allowVideoUse"`
	Companions     []CompanionPayload `json:"companions,omitempty" validate:"dive"`
}

type SubmitResult struct {
	ID                int64 `json:"id"`
	ParticipantNumber *int  `json:"participantNumber,omitempty"`
	// PendingID is set instead of ID when the submission was queued
	// locally because the store could not be reached.
	PendingID string `json:"-"`
}

func (r SubmitResult) Queued() bool {
	return r.PendingID != ""
}
