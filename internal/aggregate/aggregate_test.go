package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/doin/internal/model"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func participation(id int64, age time.Duration, pref string, contribution int) model.Participation {
	p := model.Participation{
		ID:           id,
		ChallengeID:  1,
		TwitterID:    "tw" + string(rune('a'+id)),
		DisplayName:  "fan",
		Contribution: contribution,
		CreatedAt:    now.Add(-age),
	}
	if pref != "" {
		p.Prefecture = strPtr(pref)
	}
	return p
}

func TestComputeProgress(t *testing.T) {
	p, err := ComputeProgress(100, 100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Percent)
	assert.Equal(t, 0, p.Remaining)

	p, err = ComputeProgress(25, 100)
	require.NoError(t, err)
	assert.Equal(t, 25.0, p.Percent)
	assert.Equal(t, 75, p.Remaining)

	p, err = ComputeProgress(250, 100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Percent)
	assert.Equal(t, 0, p.Remaining)
}

func TestComputeProgressBounds(t *testing.T) {
	for goal := 1; goal <= 60; goal++ {
		for current := 0; current <= 80; current++ {
			p, err := ComputeProgress(current, goal)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, p.Percent, 0.0)
			assert.LessOrEqual(t, p.Percent, 100.0)
			assert.Equal(t, max(goal-current, 0), p.Remaining)
			if current >= goal {
				assert.Equal(t, 100.0, p.Percent)
				assert.Equal(t, 0, p.Remaining)
			}
		}
	}
}

func TestComputeProgressRejectsBadGoal(t *testing.T) {
	_, err := ComputeProgress(10, 0)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "goalValue", cfgErr.Field)

	_, err = ComputeProgress(10, -5)
	var inv *InvariantViolation
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, -5, inv.Value)

	_, err = ComputeProgress(-1, 10)
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "currentValue", inv.Field)
}

func TestComputeMomentum(t *testing.T) {
	var list []model.Participation
	for i := 0; i < 5; i++ {
		list = append(list, participation(int64(i), time.Duration(i+1)*time.Minute, "", 1))
	}

	m := ComputeMomentum(list, now, DefaultMomentumThresholds)
	assert.Equal(t, 5, m.Recent1h)
	assert.Equal(t, 5, m.Recent24h)
	assert.True(t, m.IsHot)
}

func TestComputeMomentumWindowsAreHalfOpen(t *testing.T) {
	list := []model.Participation{
		participation(1, 24*time.Hour, "", 1),
		participation(2, time.Hour, "", 1),
		participation(3, 24*time.Hour-time.Nanosecond, "", 1),
		participation(4, 72*time.Hour, "", 1),
	}

	m := ComputeMomentum(list, now, DefaultMomentumThresholds)
	assert.Equal(t, 2, m.Recent24h)
	assert.Equal(t, 0, m.Recent1h)
	assert.False(t, m.IsHot)
}

func TestComputeMomentumOldSignupsNeverHot(t *testing.T) {
	var list []model.Participation
	for i := 0; i < 50; i++ {
		list = append(list, participation(int64(i), 48*time.Hour, "", 1))
	}
	assert.False(t, ComputeMomentum(list, now, DefaultMomentumThresholds).IsHot)
}

func TestComputeMomentumMonotonicInNow(t *testing.T) {
	var list []model.Participation
	for i := 0; i < 30; i++ {
		list = append(list, participation(int64(i), time.Duration(i)*47*time.Minute, "", 1))
	}

	prev := ComputeMomentum(list, now, DefaultMomentumThresholds)
	for step := 1; step <= 40; step++ {
		cur := ComputeMomentum(list, now.Add(time.Duration(step)*17*time.Minute), DefaultMomentumThresholds)
		assert.LessOrEqual(t, cur.Recent24h, prev.Recent24h)
		assert.LessOrEqual(t, cur.Recent1h, prev.Recent1h)
		prev = cur
	}
}

func TestComputeMomentumCustomThresholds(t *testing.T) {
	list := []model.Participation{participation(1, time.Minute, "", 1)}
	m := ComputeMomentum(list, now, MomentumThresholds{Hot24h: 10, Hot1h: 1})
	assert.True(t, m.IsHot)
}

func TestComputePrefectureCounts(t *testing.T) {
	list := []model.Participation{
		participation(1, time.Hour, "大阪府", 2),
		participation(2, time.Hour, "大阪", 1),
		participation(3, time.Hour, "", 4),
		participation(4, time.Hour, "東京都", 0),
	}

	counts, err := ComputePrefectureCounts(list)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"大阪": 3, "東京": 1}, counts)
}

func TestComputePrefectureCountsRejectsNegative(t *testing.T) {
	_, err := ComputePrefectureCounts([]model.Participation{participation(1, 0, "大阪府", -2)})
	var inv *InvariantViolation
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "contribution", inv.Field)
}

func TestComputeRegionCounts(t *testing.T) {
	list := []model.Participation{
		participation(1, time.Hour, "大阪府", 2),
		participation(2, time.Hour, "京都", 1),
		participation(3, time.Hour, "北海道", 1),
	}

	regions, err := ComputeRegionCounts(list)
	require.NoError(t, err)
	require.Len(t, regions, 6)

	byID := map[string]int{}
	for _, r := range regions {
		byID[r.ID] = r.Count
	}
	assert.Equal(t, 3, byID["kinki"])
	assert.Equal(t, 1, byID["hokkaido-tohoku"])
	assert.Equal(t, 0, byID["kanto"])
}

func TestComputeShares(t *testing.T) {
	list := []model.Participation{
		participation(1, time.Hour, "大阪府", 3),
		participation(2, time.Hour, "東京都", 1),
	}

	shares, err := ComputePrefectureShares(list)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "大阪府", shares[0].Name)
	assert.InDelta(t, 75.0, shares[0].Percent, 0.001)

	regions, err := ComputeRegionShares(list)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "近畿", regions[0].Name)
}

func TestMilestone(t *testing.T) {
	for _, m := range Milestones {
		_, ok := Milestone(m)
		assert.True(t, ok, "milestone %d", m)
	}
	for _, c := range []int{0, 2, 9, 11, 99, 101, 999, 1001} {
		_, ok := Milestone(c)
		assert.False(t, ok, "count %d", c)
	}
}

func TestComputeTrajectory(t *testing.T) {
	day1 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	list := []model.Participation{
		{ID: 3, Contribution: 5, CreatedAt: day2},
		{ID: 1, Contribution: 1, CreatedAt: day1},
		{ID: 2, Contribution: 3, CreatedAt: day1.Add(time.Hour)},
		{ID: 4, CreatedAt: day2.Add(time.Hour)},
	}

	points, err := ComputeTrajectory(list, nil)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, 4, points[0].Count)
	assert.Equal(t, "First participant!", points[0].Milestone)

	assert.Equal(t, 10, points[1].Count)
	assert.Equal(t, "10 participants!", points[1].Milestone)
}

func TestComputeTrajectoryNonDecreasing(t *testing.T) {
	var list []model.Participation
	for i := 0; i < 40; i++ {
		list = append(list, participation(int64(i), time.Duration((i*37)%90)*time.Hour, "", i%4))
	}

	points, err := ComputeTrajectory(list, nil)
	require.NoError(t, err)
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].Count, points[i-1].Count)
		assert.True(t, points[i].Date.After(points[i-1].Date))
	}
}

func TestComputeTrajectoryInLocation(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	list := []model.Participation{
		{ID: 1, CreatedAt: time.Date(2026, 10, 1, 14, 0, 0, 0, time.UTC)},
		{ID: 2, CreatedAt: time.Date(2026, 10, 1, 16, 0, 0, 0, time.UTC)},
	}

	utc, err := ComputeTrajectory(list, nil)
	require.NoError(t, err)
	assert.Len(t, utc, 1)

	local, err := ComputeTrajectory(list, jst)
	require.NoError(t, err)
	assert.Len(t, local, 2)
}

func TestComputeMyParticipation(t *testing.T) {
	uid := int64(42)
	list := []model.Participation{
		{ID: 1, TwitterID: "111"},
		{ID: 2, TwitterID: "222"},
		{ID: 3, UserID: &uid},
	}

	mine := ComputeMyParticipation(list, &model.Identity{TwitterID: "222"})
	require.NotNil(t, mine)
	assert.Equal(t, int64(2), mine.ID)

	mine = ComputeMyParticipation(list, &model.Identity{ID: 42})
	require.NotNil(t, mine)
	assert.Equal(t, int64(3), mine.ID)

	assert.Nil(t, ComputeMyParticipation(list, &model.Identity{TwitterID: "999"}))
	assert.Nil(t, ComputeMyParticipation(list, nil))
}

func TestComputeRanking(t *testing.T) {
	list := []model.Participation{
		{ID: 1, DisplayName: "a", Contribution: 1},
		{ID: 2, DisplayName: "b", Contribution: 4},
		{ID: 3, DisplayName: "c", Contribution: 4, IsAnonymous: true},
		{ID: 4, DisplayName: "d"},
	}

	ranking, err := ComputeRanking(list, 3)
	require.NoError(t, err)
	require.Len(t, ranking, 3)
	assert.Equal(t, int64(2), ranking[0].ParticipantID)
	assert.Equal(t, "Anonymous", ranking[1].DisplayName)
	assert.Equal(t, 3, ranking[2].Rank)
}

func TestComputeSummary(t *testing.T) {
	list := []model.Participation{
		{ID: 1, Contribution: 3, CompanionCount: 2, Prefecture: strPtr("大阪府"), Message: strPtr("行きます")},
		{ID: 2, Prefecture: strPtr("大阪")},
		{ID: 3, Prefecture: strPtr("福岡県"), Message: strPtr("")},
	}

	s, err := ComputeSummary(list)
	require.NoError(t, err)
	assert.Equal(t, Summary{Participants: 3, Prefectures: 2, Headcount: 5, Companions: 2, Messages: 1}, s)
}

func TestDailyAndHourlyStats(t *testing.T) {
	list := []model.Participation{
		{ID: 1, Contribution: 2, CreatedAt: time.Date(2026, 10, 2, 10, 0, 0, 0, time.UTC)},
		{ID: 2, CreatedAt: time.Date(2026, 10, 1, 10, 30, 0, 0, time.UTC)},
		{ID: 3, CreatedAt: time.Date(2026, 10, 1, 23, 0, 0, 0, time.UTC)},
	}

	daily, err := ComputeDailyStats(list, nil)
	require.NoError(t, err)
	assert.Equal(t, []DailyStat{
		{Date: "2026-10-01", Count: 2, Cumulative: 2},
		{Date: "2026-10-02", Count: 2, Cumulative: 4},
	}, daily)

	hourly, err := ComputeHourlyStats(list, nil)
	require.NoError(t, err)
	require.Len(t, hourly, 24)
	assert.Equal(t, 3, hourly[10].Count)
	assert.Equal(t, 1, hourly[23].Count)
}

func TestCompute(t *testing.T) {
	c := &model.Challenge{ID: 1, GoalValue: 100, CurrentValue: 100, EventDate: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)}
	list := []model.Participation{
		participation(1, time.Minute, "大阪府", 2),
		participation(2, 2*time.Minute, "大阪", 1),
	}

	view, err := Compute(c, list, &model.Identity{TwitterID: list[1].TwitterID}, now, Options{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, view.Progress.Percent)
	assert.Equal(t, 0, view.Progress.Remaining)
	assert.True(t, view.DateUndecided)
	assert.Equal(t, "人", view.GoalUnit)
	assert.Equal(t, map[string]int{"大阪": 3}, view.PrefectureCounts)
	assert.True(t, view.Momentum.IsHot)
	require.NotNil(t, view.MyParticipation)
	assert.Equal(t, int64(2), view.MyParticipation.ID)

	_, err = Compute(&model.Challenge{ID: 2}, list, nil, now, Options{})
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestComputeOptions(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	c := &model.Challenge{ID: 1, GoalValue: 10, CurrentValue: 1}
	late := participation(1, 0, "", 0)
	late.CreatedAt = time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC)
	list := []model.Participation{late}

	view, err := Compute(c, list, nil, now, Options{})
	require.NoError(t, err)
	require.Len(t, view.Trajectory, 1)
	assert.Equal(t, 16, view.Trajectory[0].Date.Day())
	assert.False(t, view.Momentum.IsHot)

	view, err = Compute(c, list, nil, now, Options{
		Thresholds: MomentumThresholds{Hot24h: 1, Hot1h: 5},
		Location:   tokyo,
	})
	require.NoError(t, err)
	require.Len(t, view.Trajectory, 1)
	assert.Equal(t, 17, view.Trajectory[0].Date.Day())
	assert.Equal(t, tokyo, view.Trajectory[0].Date.Location())
	assert.Equal(t, 1, view.Momentum.Recent24h)
	assert.True(t, view.Momentum.IsHot)
}
