package aggregate

import (
	"time"

	"github.com/templui/doin/internal/model"
)

// MomentumThresholds decide when a challenge counts as hot.
type MomentumThresholds struct {
	Hot24h int
	Hot1h  int
}

var DefaultMomentumThresholds = MomentumThresholds{
	Hot24h: 5,
	Hot1h:  2,
}

type Momentum struct {
	Recent24h int  `json:"recent24h"`
	Recent1h  int  `json:"recent1h"`
	IsHot     bool `json:"isHot"`
}

// ComputeMomentum counts records younger than 24h and 1h. A record
// exactly 24h (or 1h) old is outside its window.
func ComputeMomentum(list []model.Participation, now time.Time, th MomentumThresholds) Momentum {
	var m Momentum
	for i := range list {
		age := now.Sub(list[i].CreatedAt)
		if age < 24*time.Hour {
			m.Recent24h++
		}
		if age < time.Hour {
			m.Recent1h++
		}
	}
	m.IsHot = m.Recent24h >= th.Hot24h || m.Recent1h >= th.Hot1h
	return m
}
