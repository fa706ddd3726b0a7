package aggregate

import (
	"sort"
	"time"

	"github.com/templui/doin/internal/model"
)

type DailyStat struct {
	Date       string `json:"date"`
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"`
}

// ComputeDailyStats sums headcounts per calendar day in loc, oldest first.
func ComputeDailyStats(list []model.Participation, loc *time.Location) ([]DailyStat, error) {
	if loc == nil {
		loc = time.UTC
	}

	byDay := make(map[string]int)
	for i := range list {
		p := &list[i]
		if err := checkRecord(p); err != nil {
			return nil, err
		}
		byDay[p.CreatedAt.In(loc).Format(time.DateOnly)] += p.Headcount()
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]DailyStat, 0, len(days))
	cumulative := 0
	for _, d := range days {
		cumulative += byDay[d]
		out = append(out, DailyStat{Date: d, Count: byDay[d], Cumulative: cumulative})
	}
	return out, nil
}

type HourlyStat struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// ComputeHourlyStats buckets headcounts into the 24 hours of the day in loc.
func ComputeHourlyStats(list []model.Participation, loc *time.Location) ([]HourlyStat, error) {
	if loc == nil {
		loc = time.UTC
	}

	out := make([]HourlyStat, 24)
	for h := range out {
		out[h].Hour = h
	}
	for i := range list {
		p := &list[i]
		if err := checkRecord(p); err != nil {
			return nil, err
		}
		out[p.CreatedAt.In(loc).Hour()].Count += p.Headcount()
	}
	return out, nil
}
