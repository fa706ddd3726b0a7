package model

// CompanionDraft is a person the submitter brings along. It only lives
// inside an unsent draft; ID is local to that draft.
type CompanionDraft struct {
	ID          string
	DisplayName string
	Handle      string
	TwitterID   string
	AvatarURL   string
}

// Profile is a resolved Twitter-style account.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Handle    string `json:"username"`
	AvatarURL string `json:"profileImage"`
}
