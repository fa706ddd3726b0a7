package aggregate

import (
	"sort"

	"github.com/templui/doin/internal/model"
	"github.com/templui/doin/internal/prefecture"
)

// ComputePrefectureCounts sums headcounts per normalized prefecture. Records
// without a prefecture are left out.
func ComputePrefectureCounts(list []model.Participation) (map[string]int, error) {
	counts := make(map[string]int)
	for i := range list {
		p := &list[i]
		if err := checkRecord(p); err != nil {
			return nil, err
		}
		key := prefecture.Normalize(p.PrefectureName())
		if key == "" {
			continue
		}
		counts[key] += p.Headcount()
	}
	return counts, nil
}

type RegionCount struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Prefectures []string `json:"prefectures"`
	Count       int      `json:"count"`
}

// ComputeRegionCounts tallies every region in display order, including
// regions nobody joined from.
func ComputeRegionCounts(list []model.Participation) ([]RegionCount, error) {
	counts, err := ComputePrefectureCounts(list)
	if err != nil {
		return nil, err
	}

	out := make([]RegionCount, len(prefecture.Regions))
	index := make(map[string]int, len(prefecture.Regions))
	for i, r := range prefecture.Regions {
		out[i] = RegionCount{ID: r.ID, Name: r.Name, Prefectures: r.Prefectures}
		index[r.ID] = i
	}
	for name, n := range counts {
		if r, ok := prefecture.RegionOf(name); ok {
			out[index[r.ID]].Count += n
		}
	}
	return out, nil
}

type Share struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// ComputePrefectureShares lists prefectures by descending headcount with
// their share of all located participants.
func ComputePrefectureShares(list []model.Participation) ([]Share, error) {
	counts, err := ComputePrefectureCounts(list)
	if err != nil {
		return nil, err
	}

	shares := make([]Share, 0, len(counts))
	for name, c := range counts {
		shares = append(shares, Share{Name: prefecture.Official(name), Count: c})
	}
	return withPercent(shares), nil
}

// ComputeRegionShares is ComputePrefectureShares rolled up to regions.
// Prefectures outside the region table are not counted.
func ComputeRegionShares(list []model.Participation) ([]Share, error) {
	regions, err := ComputeRegionCounts(list)
	if err != nil {
		return nil, err
	}

	var shares []Share
	for _, r := range regions {
		if r.Count == 0 {
			continue
		}
		shares = append(shares, Share{Name: r.Name, Count: r.Count})
	}
	return withPercent(shares), nil
}

func withPercent(shares []Share) []Share {
	total := 0
	for _, s := range shares {
		total += s.Count
	}
	for i := range shares {
		if total > 0 {
			shares[i].Percent = float64(shares[i].Count) / float64(total) * 100
		}
	}
	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Name < shares[j].Name
	})
	return shares
}
