package entity

// HoursPerDay is the number of buckets in an hourly profile.
const HoursPerDay = 24

// ContributorCount is one row of the top-contributor query.
type ContributorCount struct {
	UserID   int64
	Username string
	Count    int64
}

// HourCount is one non-empty bucket of the hourly histogram query.
type HourCount struct {
	Hour  int // 0-23, UTC
	Count int64
}

// LeaderboardEntry is a ranked contributor ready for display.
type LeaderboardEntry struct {
	DisplayName string `json:"display_name"`
	Count       int64  `json:"count"`
}

// HourlyProfile holds message counts per UTC hour of day, index 0 = 00:00-00:59.
type HourlyProfile [HoursPerDay]int64

// Total 返回所有小时的消息总数
func (p HourlyProfile) Total() int64 {
	var total int64
	for _, c := range p {
		total += c
	}
	return total
}

// Slice 返回 24 个桶的副本
func (p HourlyProfile) Slice() []int64 {
	out := make([]int64, HoursPerDay)
	copy(out, p[:])
	return out
}

// Busiest returns the hour with the most messages (lowest hour wins a tie)
// and false when the profile is empty.
func (p HourlyProfile) Busiest() (int, bool) {
	best := -1
	for h, c := range p {
		if c > 0 && (best < 0 || c > p[best]) {
			best = h
		}
	}
	return best, best >= 0
}
