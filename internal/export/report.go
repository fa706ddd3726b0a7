// Package export renders a challenge's statistics as a CSV workbook or a
// plain-text summary for sharing.
package export

import (
	"fmt"
	"time"

	"github.com/templui/doin/internal/aggregate"
	"github.com/templui/doin/internal/model"
)

const (
	topPrefectures = 5
	topRegions     = 3
)

// Row is one participation as it appears in the export.
type Row struct {
	DisplayName    string
	Prefecture     string
	CompanionCount int
	Contribution   int
	CreatedAt      time.Time
}

type Report struct {
	Challenge   model.Challenge
	ExportedAt  time.Time
	Location    *time.Location
	Summary     aggregate.Summary
	ProgressPct float64
	Rows        []Row
	Prefectures []aggregate.Share
	Regions     []aggregate.Share
	Daily       []aggregate.DailyStat
	Hourly      []aggregate.HourlyStat
}

// Build derives every section of the report. Times are rendered in loc;
// nil means UTC.
func Build(c *model.Challenge, list []model.Participation, exportedAt time.Time, loc *time.Location) (*Report, error) {
	if loc == nil {
		loc = time.UTC
	}

	summary, err := aggregate.ComputeSummary(list)
	if err != nil {
		return nil, err
	}
	prefectures, err := aggregate.ComputePrefectureShares(list)
	if err != nil {
		return nil, err
	}
	regions, err := aggregate.ComputeRegionShares(list)
	if err != nil {
		return nil, err
	}
	daily, err := aggregate.ComputeDailyStats(list, loc)
	if err != nil {
		return nil, err
	}
	hourly, err := aggregate.ComputeHourlyStats(list, loc)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Challenge:   *c,
		ExportedAt:  exportedAt,
		Location:    loc,
		Summary:     summary,
		Prefectures: prefectures,
		Regions:     regions,
		Daily:       daily,
		Hourly:      hourly,
	}
	// the export reports the headcount it actually saw, not the server total
	if c.GoalValue > 0 {
		r.ProgressPct = float64(summary.Headcount) / float64(c.GoalValue) * 100
	}

	for i := range list {
		p := &list[i]
		name := p.DisplayName
		if p.IsAnonymous {
			name = "Anonymous"
		}
		pref := p.PrefectureName()
		if pref == "" {
			pref = "Unset"
		}
		r.Rows = append(r.Rows, Row{
			DisplayName:    name,
			Prefecture:     pref,
			CompanionCount: p.CompanionCount,
			Contribution:   p.Headcount(),
			CreatedAt:      p.CreatedAt,
		})
	}
	return r, nil
}

// Filename is the suggested object name for the CSV export.
func (r *Report) Filename() string {
	return fmt.Sprintf("challenge-%d-%s.csv", r.Challenge.ID, r.ExportedAt.In(r.Location).Format("20060102-1504"))
}

func (r *Report) eventDate() string {
	if r.Challenge.EventDate.IsZero() || r.Challenge.IsDateUndecided() {
		return "undecided"
	}
	return r.Challenge.EventDate.In(r.Location).Format("2006/01/02")
}

func (r *Report) stamp(t time.Time) string {
	return t.In(r.Location).Format("2006/01/02 15:04")
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
