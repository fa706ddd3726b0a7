package aggregate

import (
	"time"

	"github.com/templui/doin/internal/model"
)

const RankingSize = 10

// View is everything the presentation layer derives from a challenge and
// its participation list. It is recomputed on every list change and never
// stored.
type View struct {
	ChallengeID      int64                `json:"challengeId"`
	GoalValue        int                  `json:"goalValue"`
	GoalUnit         string               `json:"goalUnit"`
	CurrentValue     int                  `json:"currentValue"`
	DateUndecided    bool                 `json:"dateUndecided"`
	Progress         Progress             `json:"progress"`
	Momentum         Momentum             `json:"momentum"`
	PrefectureCounts map[string]int       `json:"prefectureCounts"`
	Regions          []RegionCount        `json:"regions"`
	Trajectory       []TrajectoryPoint    `json:"trajectory"`
	Ranking          []RankingEntry       `json:"ranking"`
	Summary          Summary              `json:"summary"`
	MyParticipation  *model.Participation `json:"myParticipation,omitempty"`
}

// Options tune Compute. Zero values mean DefaultMomentumThresholds and UTC
// calendar days.
type Options struct {
	Thresholds MomentumThresholds
	Location   *time.Location
}

// Compute derives the full view, keying trajectory days in opts.Location
// and judging momentum by opts.Thresholds. me may be nil; a zero Options
// means UTC days and DefaultMomentumThresholds.
func Compute(c *model.Challenge, list []model.Participation, me *model.Identity, now time.Time, opts Options) (*View, error) {
	if opts.Thresholds == (MomentumThresholds{}) {
		opts.Thresholds = DefaultMomentumThresholds
	}

	progress, err := ComputeProgress(c.CurrentValue, c.GoalValue)
	if err != nil {
		return nil, err
	}

	counts, err := ComputePrefectureCounts(list)
	if err != nil {
		return nil, err
	}

	regions, err := ComputeRegionCounts(list)
	if err != nil {
		return nil, err
	}

	trajectory, err := ComputeTrajectory(list, opts.Location)
	if err != nil {
		return nil, err
	}

	ranking, err := ComputeRanking(list, RankingSize)
	if err != nil {
		return nil, err
	}

	summary, err := ComputeSummary(list)
	if err != nil {
		return nil, err
	}

	return &View{
		ChallengeID:      c.ID,
		GoalValue:        c.GoalValue,
		GoalUnit:         c.Unit(),
		CurrentValue:     c.CurrentValue,
		DateUndecided:    c.IsDateUndecided(),
		Progress:         progress,
		Momentum:         ComputeMomentum(list, now, opts.Thresholds),
		PrefectureCounts: counts,
		Regions:          regions,
		Trajectory:       trajectory,
		Ranking:          ranking,
		Summary:          summary,
		MyParticipation:  ComputeMyParticipation(list, me),
	}, nil
}
