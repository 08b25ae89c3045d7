package contrib

import (
	"context"

	"github.com/google/uuid"
)

// UserStats recomputes the profile aggregate from the event log and the set
// count. It never returns an error: each sub-query that fails degrades only
// its own field to the zero default and is logged, so one flaky read cannot
// blank the whole stats card. The fail-open policy is deliberate and lives
// here, at the boundary, rather than in a caught exception.
func (a *Aggregator) UserStats(ctx context.Context, userID uuid.UUID) UserStats {
	stats := UserStats{
		ContributionsByType: map[ContributionType]int{},
	}

	total, err := a.events.SumValues(ctx, userID)
	if err != nil {
		a.log.Warn("stats: total contributions unavailable", "user_id", userID, "error", err)
	} else {
		stats.TotalContributions = total
	}

	days, err := a.ContributionDays(ctx, userID)
	if err != nil {
		a.log.Warn("stats: streak history unavailable", "user_id", userID, "error", err)
	} else {
		stats.CurrentStreak = CurrentStreak(days, a.now())
		stats.LongestStreak = LongestStreak(days)
	}

	setsCount, err := a.sets.CountSets(ctx, userID)
	if err != nil {
		a.log.Warn("stats: set count unavailable", "user_id", userID, "error", err)
	} else {
		stats.SetsCount = int(setsCount)
	}

	stats.TotalCardsStudied = a.totalCardsStudied(ctx, userID)

	byType, err := a.events.SumByType(ctx, userID)
	if err != nil {
		a.log.Warn("stats: per-type sums unavailable", "user_id", userID, "error", err)
	} else {
		stats.ContributionsByType = byType
	}

	return stats
}

// totalCardsStudied sums the cards_studied metadata field across all
// study_completed events. Events with missing or malformed metadata
// contribute zero.
func (a *Aggregator) totalCardsStudied(ctx context.Context, userID uuid.UUID) int {
	events, err := a.events.ListByType(ctx, userID, TypeStudyCompleted)
	if err != nil {
		a.log.Warn("stats: study history unavailable", "user_id", userID, "error", err)
		return 0
	}

	total := 0
	for _, ev := range events {
		switch v := ev.Metadata["cards_studied"].(type) {
		case float64:
			total += int(v)
		case int:
			total += v
		}
	}
	return total
}
