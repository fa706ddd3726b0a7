package prefecture

// Region groups prefectures the way the heatmap and export reports do.
type Region struct {
	ID          string
	Name        string
	Prefectures []string
}

var Regions = []Region{
	{ID: "hokkaido-tohoku", Name: "北海道・東北", Prefectures: []string{"北海道", "青森県", "岩手県", "宮城県", "秋田県", "山形県", "福島県"}},
	{ID: "kanto", Name: "関東", Prefectures: []string{"茨城県", "栃木県", "群馬県", "埼玉県", "千葉県", "東京都", "神奈川県"}},
	{ID: "chubu", Name: "中部", Prefectures: []string{"新潟県", "富山県", "石川県", "福井県", "山梨県", "長野県", "岐阜県", "静岡県", "愛知県"}},
	{ID: "kinki", Name: "近畿", Prefectures: []string{"三重県", "滋賀県", "京都府", "大阪府", "兵庫県", "奈良県", "和歌山県"}},
	{ID: "chugoku-shikoku", Name: "中国・四国", Prefectures: []string{"鳥取県", "島根県", "岡山県", "広島県", "山口県", "徳島県", "香川県", "愛媛県", "高知県"}},
	{ID: "kyushu-okinawa", Name: "九州・沖縄", Prefectures: []string{"福岡県", "佐賀県", "長崎県", "熊本県", "大分県", "宮崎県", "鹿児島県", "沖縄県"}},
}

// shortNames holds the normalized form of every official prefecture name.
var shortNames = map[string]string{}

// regionByShort maps a normalized prefecture name to its region ID.
var regionByShort = map[string]string{}

func init() {
	for _, r := range Regions {
		for _, p := range r.Prefectures {
			short := stripSuffix(p)
			shortNames[short] = p
			regionByShort[short] = r.ID
		}
	}
}

func stripSuffix(name string) string {
	for _, s := range suffixes {
		if n := len(name) - len(s); n > 0 && name[n:] == s {
			return name[:n]
		}
	}
	return name
}

// RegionOf returns the region a prefecture belongs to, matching on the
// normalized name.
func RegionOf(name string) (Region, bool) {
	id, ok := regionByShort[Normalize(name)]
	if !ok {
		return Region{}, false
	}
	for _, r := range Regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}

// Official returns the full official name for a normalized name, or the
// input unchanged when it is not a known prefecture.
func Official(name string) string {
	if full, ok := shortNames[Normalize(name)]; ok {
		return full
	}
	return name
}

// All lists the 47 official prefecture names in region order.
func All() []string {
	var out []string
	for _, r := range Regions {
		out = append(out, r.Prefectures...)
	}
	return out
}
