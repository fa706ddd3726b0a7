package aggregate

import (
	"github.com/templui/doin/internal/model"
)

// ComputeMyParticipation returns the first record submitted by the given
// identity, or nil when the user has not joined yet.
func ComputeMyParticipation(list []model.Participation, me *model.Identity) *model.Participation {
	if me == nil {
		return nil
	}
	for i := range list {
		p := &list[i]
		if me.TwitterID != "" && p.TwitterID == me.TwitterID {
			return p
		}
		if me.ID != 0 && p.UserID != nil && *p.UserID == me.ID {
			return p
		}
	}
	return nil
}
