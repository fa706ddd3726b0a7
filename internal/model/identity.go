package model

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	ID              int64
	TwitterID       string
	Handle          string
	DisplayName     string
	AvatarURL       string
	FollowersCount  int
	SavedPrefecture string
	SavedGender     Gender
}

// HasSavedProfile reports whether the saved profile already satisfies
// every required participation field.
func (i *Identity) HasSavedProfile() bool {
	return i.SavedPrefecture != "" && i.SavedGender.Provided()
}
