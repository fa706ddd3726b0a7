package aggregate

import (
	"sort"

	"github.com/templui/doin/internal/model"
)

type RankingEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID int64  `json:"participationId"`
	DisplayName   string `json:"displayName"`
	Username      string `json:"username,omitempty"`
	ProfileImage  string `json:"profileImage,omitempty"`
	Headcount     int    `json:"headcount"`
}

// ComputeRanking returns the top n contributors by headcount. Ties keep
// list order.
func ComputeRanking(list []model.Participation, n int) ([]RankingEntry, error) {
	rows := make([]RankingEntry, 0, len(list))
	for i := range list {
		p := &list[i]
		if err := checkRecord(p); err != nil {
			return nil, err
		}
		name := p.DisplayName
		if p.IsAnonymous {
			name = "Anonymous"
		}
		rows = append(rows, RankingEntry{
			ParticipantID: p.ID,
			DisplayName:   name,
			Username:      p.Username,
			ProfileImage:  p.ProfileImage,
			Headcount:     p.Headcount(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Headcount > rows[j].Headcount
	})

	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

type Summary struct {
	Participants int `json:"participants"`
	Prefectures  int `json:"prefectures"`
	Headcount    int `json:"headcount"`
	Companions   int `json:"companions"`
	Messages     int `json:"messages"`
}

func ComputeSummary(list []model.Participation) (Summary, error) {
	counts, err := ComputePrefectureCounts(list)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Participants: len(list), Prefectures: len(counts)}
	for i := range list {
		s.Headcount += list[i].Headcount()
		s.Companions += list[i].CompanionCount
		if list[i].HasMessage() {
			s.Messages++
		}
	}
	return s, nil
}
