package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes the report as a sectioned CSV. Section titles are
// comment lines starting with '#'.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	unit := r.Challenge.Unit()

	records := [][]string{
		{"# Participation report"},
		{"# Challenge: " + r.Challenge.Title},
		{"# Host: " + r.Challenge.HostName},
		{"# Goal: " + strconv.Itoa(r.Challenge.GoalValue) + unit},
		{"# Event date: " + r.eventDate()},
		{"# Exported at: " + r.stamp(r.ExportedAt)},
		{},
		{"## Summary"},
		{"total_headcount", strconv.Itoa(r.Summary.Headcount)},
		{"participants", strconv.Itoa(r.Summary.Participants)},
		{"progress", percent(r.ProgressPct)},
		{},
		{"## Participants"},
		{"display_name", "prefecture", "companions", "contribution", "joined_at"},
	}
	for _, row := range r.Rows {
		records = append(records, []string{
			row.DisplayName,
			row.Prefecture,
			strconv.Itoa(row.CompanionCount),
			strconv.Itoa(row.Contribution),
			r.stamp(row.CreatedAt),
		})
	}

	records = append(records, []string{}, []string{"## Prefectures"}, []string{"prefecture", "headcount", "share"})
	for _, s := range r.Prefectures {
		records = append(records, []string{s.Name, strconv.Itoa(s.Count), percent(s.Percent)})
	}

	records = append(records, []string{}, []string{"## Regions"}, []string{"region", "headcount", "share"})
	for _, s := range r.Regions {
		records = append(records, []string{s.Name, strconv.Itoa(s.Count), percent(s.Percent)})
	}

	records = append(records, []string{}, []string{"## Daily"}, []string{"date", "headcount", "cumulative"})
	for _, d := range r.Daily {
		records = append(records, []string{d.Date, strconv.Itoa(d.Count), strconv.Itoa(d.Cumulative)})
	}

	records = append(records, []string{}, []string{"## Hourly"}, []string{"hour", "headcount"})
	for _, h := range r.Hourly {
		records = append(records, []string{fmt.Sprintf("%02d:00", h.Hour), strconv.Itoa(h.Count)})
	}

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
