package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/templui/doin/internal/model"
)

// Milestones are the cumulative headcounts that earn a label on the
// trajectory chart.
var Milestones = []int{1, 10, 50, 100, 500, 1000}

// Milestone returns the label for count when it is exactly one of the
// Milestones.
func Milestone(count int) (string, bool) {
	for _, m := range Milestones {
		if m == count {
			if m == 1 {
				return "First participant!", true
			}
			return fmt.Sprintf("%d participants!", m), true
		}
		if m > count {
			break
		}
	}
	return "", false
}

type TrajectoryPoint struct {
	Date      time.Time `json:"date"`
	Count     int       `json:"count"`
	Milestone string    `json:"milestone,omitempty"`
}

// ComputeTrajectory builds the cumulative headcount series keyed by
// calendar date in loc (UTC when nil). Records are ordered by CreatedAt;
// several records on one day collapse to that day's last running total.
// A day keeps the latest milestone crossed during it.
func ComputeTrajectory(list []model.Participation, loc *time.Location) ([]TrajectoryPoint, error) {
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]model.Participation, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var points []TrajectoryPoint
	total := 0
	for i := range sorted {
		p := &sorted[i]
		if err := checkRecord(p); err != nil {
			return nil, err
		}
		total += p.Headcount()

		y, m, d := p.CreatedAt.In(loc).Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)

		if n := len(points); n == 0 || !points[n-1].Date.Equal(day) {
			points = append(points, TrajectoryPoint{Date: day})
		}
		last := &points[len(points)-1]
		last.Count = total
		if label, ok := Milestone(total); ok {
			last.Milestone = label
		}
	}
	return points, nil
}
