package contrib

import (
	"sort"
	"time"
)

// CurrentStreak returns the length of the user's active consecutive-day run.
//
// The streak is anchored at recency: it is 0 unless the user contributed
// today or yesterday (a user who hasn't acted yet today keeps yesterday's
// streak on display; a full silent day breaks it). From the most recent
// contribution day it counts backward while days are consecutive.
//
// days holds UTC day keys as produced by DayKey. today anchors "now" so the
// computation is deterministic under test.
func CurrentStreak(days map[string]struct{}, today time.Time) int {
	if len(days) == 0 {
		return 0
	}

	todayKey := DayKey(today)
	yesterdayKey := DayKey(today.AddDate(0, 0, -1))

	_, hasToday := days[todayKey]
	_, hasYesterday := days[yesterdayKey]
	if !hasToday && !hasYesterday {
		return 0
	}

	sorted := sortedDaysDesc(days)

	streak := 1
	cursor, err := time.Parse("2006-01-02", sorted[0])
	if err != nil {
		return 0
	}
	for _, key := range sorted[1:] {
		expected := DayKey(cursor.AddDate(0, 0, -1))
		if key != expected {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak returns the longest consecutive-day run anywhere in the
// user's history. Unlike CurrentStreak it has no recency anchor: a
// ten-day run from last year still counts.
//
// The two scans are deliberately separate algorithms. Unifying them would
// change current-streak semantics whenever the most recent activity is
// older than yesterday.
func LongestStreak(days map[string]struct{}) int {
	if len(days) == 0 {
		return 0
	}

	sorted := sortedDaysDesc(days)

	longest := 0
	run := 1
	for i := 1; i < len(sorted); i++ {
		prev, err := time.Parse("2006-01-02", sorted[i-1])
		if err != nil {
			continue
		}
		curr, err := time.Parse("2006-01-02", sorted[i])
		if err != nil {
			continue
		}
		if prev.Sub(curr) == 24*time.Hour {
			run++
		} else {
			if run > longest {
				longest = run
			}
			run = 1
		}
	}
	if run > longest {
		longest = run
	}
	return longest
}

// sortedDaysDesc returns the distinct day keys sorted newest first.
// YYYY-MM-DD keys sort lexicographically in date order.
func sortedDaysDesc(days map[string]struct{}) []string {
	out := make([]string, 0, len(days))
	for d := range days {
		out = append(out, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
