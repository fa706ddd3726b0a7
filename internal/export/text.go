package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const rule = "━━━━━━━━━━━━━━━━━━━━"

// WriteText writes a short shareable summary with the top prefectures and
// regions.
func (r *Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	unit := r.Challenge.Unit()

	lines := []string{
		"📊 Participation report",
		rule,
		"",
		"🎯 Challenge: " + r.Challenge.Title,
		"👤 Host: " + r.Challenge.HostName,
		"📅 Event date: " + r.eventDate(),
		"",
		"📈 Progress",
		rule,
		fmt.Sprintf("Now: %d / %d%s", r.Summary.Headcount, r.Challenge.GoalValue, unit),
		"Achieved: " + percent(r.ProgressPct),
		fmt.Sprintf("Participants: %d", r.Summary.Participants),
		"",
		fmt.Sprintf("🏆 Top %d prefectures", topPrefectures),
		rule,
	}
	for i, s := range r.Prefectures {
		if i == topPrefectures {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %d%s (%s)", i+1, s.Name, s.Count, unit, percent(s.Percent)))
	}

	lines = append(lines, "", fmt.Sprintf("🗾 Top %d regions", topRegions), rule)
	for i, s := range r.Regions {
		if i == topRegions {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %d%s (%s)", i+1, s.Name, s.Count, unit, percent(s.Percent)))
	}

	lines = append(lines, "", rule, "Generated: "+r.stamp(r.ExportedAt), "#doin")

	if _, err := bw.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return err
	}
	return bw.Flush()
}
