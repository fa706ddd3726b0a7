package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/templui/doin/internal/app"
	"github.com/templui/doin/internal/service"
)

func StatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats <challenge-id>",
		Short: "Show progress, momentum, prefectures and ranking for a challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "challenge")
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				me, err := identity(cmd, a)
				if err != nil {
					return err
				}
				stats, err := a.EventService.Load(ctx, id, me)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(stats.View)
				}
				printStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the computed view as JSON")
	return cmd
}

func printStats(w io.Writer, s *service.Stats) {
	v := s.View
	fmt.Fprintf(w, "%s\n", s.Challenge.Title)
	fmt.Fprintf(w, "  progress   %d / %d %s (%.1f%%, %d to go)\n",
		v.CurrentValue, v.GoalValue, s.Challenge.Unit(), v.Progress.Percent, v.Progress.Remaining)
	hot := ""
	if v.Momentum.IsHot {
		hot = " [hot]"
	}
	fmt.Fprintf(w, "  momentum   %d in 24h, %d in 1h%s\n", v.Momentum.Recent24h, v.Momentum.Recent1h, hot)
	fmt.Fprintf(w, "  people     %d participants, %d companions, %d prefectures\n",
		v.Summary.Participants, v.Summary.Companions, v.Summary.Prefectures)

	if len(v.Regions) > 0 {
		fmt.Fprintln(w, "  regions")
		for _, r := range v.Regions {
			if r.Count > 0 {
				fmt.Fprintf(w, "    %-10s %d\n", r.Name, r.Count)
			}
		}
	}

	prefs := make([]string, 0, len(v.PrefectureCounts))
	for p := range v.PrefectureCounts {
		prefs = append(prefs, p)
	}
	slices.SortFunc(prefs, func(a, b string) int {
		return v.PrefectureCounts[b] - v.PrefectureCounts[a]
	})
	if len(prefs) > 0 {
		fmt.Fprintln(w, "  prefectures")
		for _, p := range prefs {
			fmt.Fprintf(w, "    %-10s %d\n", p, v.PrefectureCounts[p])
		}
	}

	if len(v.Ranking) > 0 {
		fmt.Fprintln(w, "  ranking")
		for _, r := range v.Ranking {
			fmt.Fprintf(w, "    %2d. %s (%d)\n", r.Rank, r.DisplayName, r.Headcount)
		}
	}

	if v.MyParticipation != nil {
		fmt.Fprintf(w, "  you        joined with %d\n", v.MyParticipation.Headcount())
	}
	if s.Stale {
		fmt.Fprintf(w, "  (offline: cached at %s)\n", s.FetchedAt.Format("2006-01-02 15:04"))
	}
	if s.Pending > 0 {
		fmt.Fprintf(w, "  (%d submissions waiting to sync)\n", s.Pending)
	}
}
