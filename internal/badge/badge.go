package badge

import (
	"slices"

	"github.com/dukerupert/motiveme/internal/model"
)

type Kind string

const (
	KindStarter     Kind = "starter"
	KindStreak      Kind = "streak"
	KindAchievement Kind = "achievement"
	KindSocial      Kind = "social"
	KindLevel       Kind = "level"
)

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Kind        Kind   `json:"kind"`
	Points      int    `json:"points"`
	Rarity      string `json:"rarity,omitempty"`

	// Threshold is the counter value that earns the badge; metric picks the counter.
	Threshold int `json:"threshold"`
	metric    func(model.UserStats) int
}

func points(s model.UserStats) int        { return s.Points }
func created(s model.UserStats) int       { return s.ChallengesCreated }
func completed(s model.UserStats) int     { return s.ChallengesCompleted }
func checkIns(s model.UserStats) int      { return s.TotalCheckIns }
func longestStreak(s model.UserStats) int { return s.LongestStreak }
func witnessCount(s model.UserStats) int  { return s.WitnessCount }

// Level badges come last so points granted earlier in the same evaluation
// count toward them.
var catalog = []Badge{
	{ID: "first_challenge", Name: "First Step", Description: "Created your first challenge", Icon: "🎯", Kind: KindStarter, Points: 10, Threshold: 1, metric: created},
	{ID: "first_checkin", Name: "First Win", Description: "Completed your first check-in", Icon: "✅", Kind: KindStarter, Points: 5, Threshold: 1, metric: checkIns},
	{ID: "week_streak", Name: "First Week", Description: "7 check-ins in a row", Icon: "🔥", Kind: KindStreak, Points: 50, Threshold: 7, metric: longestStreak},
	{ID: "month_streak", Name: "Marathoner", Description: "30 check-ins in a row", Icon: "🏃", Kind: KindStreak, Points: 200, Threshold: 30, metric: longestStreak},
	{ID: "legend_streak", Name: "Legend", Description: "100 check-ins in a row", Icon: "👑", Kind: KindStreak, Points: 2000, Rarity: "legendary", Threshold: 100, metric: longestStreak},
	{ID: "overachiever", Name: "Overachiever", Description: "Completed 10 challenges", Icon: "🚀", Kind: KindAchievement, Points: 300, Threshold: 10, metric: completed},
	{ID: "first_witness", Name: "Faithful Witness", Description: "Witnessed your first challenge", Icon: "👁️", Kind: KindSocial, Points: 100, Threshold: 1, metric: witnessCount},
	{ID: "mentor", Name: "Mentor", Description: "Witnessed 5 challenges", Icon: "🧙", Kind: KindSocial, Points: 1000, Rarity: "epic", Threshold: 5, metric: witnessCount},
	{ID: "influencer", Name: "Influencer", Description: "Witnessed 20 challenges", Icon: "🌟", Kind: KindSocial, Points: 500, Rarity: "epic", Threshold: 20, metric: witnessCount},
	{ID: "bronze_level", Name: "Bronze", Description: "Reached 100 points", Icon: "🥉", Kind: KindLevel, Threshold: 100, metric: points},
	{ID: "silver_level", Name: "Silver", Description: "Reached 500 points", Icon: "🥈", Kind: KindLevel, Rarity: "rare", Threshold: 500, metric: points},
	{ID: "gold_level", Name: "Gold", Description: "Reached 1000 points", Icon: "🥇", Kind: KindLevel, Rarity: "epic", Threshold: 1000, metric: points},
	{ID: "platinum_level", Name: "Platinum", Description: "Reached 2500 points", Icon: "💍", Kind: KindLevel, Rarity: "legendary", Threshold: 2500, metric: points},
}

// Catalog returns every badge in evaluation order.
func Catalog() []Badge {
	return slices.Clone(catalog)
}

// Lookup returns the badge with the given id.
func Lookup(id string) (Badge, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// Evaluate returns the badges stats now qualifies for that are not in owned,
// in catalog order. Points of each newly earned badge are added to the
// running total before later badges are checked.
func Evaluate(stats model.UserStats, owned []string) []Badge {
	var earned []Badge
	for _, b := range catalog {
		if slices.Contains(owned, b.ID) {
			continue
		}
		if b.metric(stats) >= b.Threshold {
			earned = append(earned, b)
			stats.Points += b.Points
		}
	}
	return earned
}

// TotalPoints sums the points of earned badges.
func TotalPoints(badges []Badge) int {
	total := 0
	for _, b := range badges {
		total += b.Points
	}
	return total
}

type Status struct {
	Badge
	Earned   bool `json:"earned"`
	Progress int  `json:"progress"`
}

// Progress reports how far stats are toward the badge, capped at its threshold.
func Progress(id string, stats model.UserStats) (progress, total int) {
	b, ok := Lookup(id)
	if !ok {
		return 0, 0
	}
	return min(b.metric(stats), b.Threshold), b.Threshold
}

// Board lists the whole catalog with the owned badges marked and progress
// filled in for the rest.
func Board(stats model.UserStats, owned []string) []Status {
	out := make([]Status, 0, len(catalog))
	for _, b := range catalog {
		s := Status{Badge: b}
		if slices.Contains(owned, b.ID) {
			s.Earned = true
			s.Progress = b.Threshold
		} else {
			s.Progress = min(b.metric(stats), b.Threshold)
		}
		out = append(out, s)
	}
	return out
}
