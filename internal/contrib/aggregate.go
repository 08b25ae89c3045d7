package contrib

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rohan/flashdeck/internal/logger"
)

// DefaultWindow is the trailing window aggregated when the caller does not
// supply a date range. It matches the year-long contribution graph.
const DefaultWindow = 365 * 24 * time.Hour

// Aggregator folds the raw event log into day buckets and derived stats.
type Aggregator struct {
	events EventLog
	sets   SetCounter
	log    *logger.Logger

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewAggregator creates an Aggregator over the given collaborators.
func NewAggregator(events EventLog, sets SetCounter, log *logger.Logger) *Aggregator {
	return &Aggregator{
		events: events,
		sets:   sets,
		log:    log,
		now:    time.Now,
	}
}

// Aggregate returns one DayBucket per calendar day in [from, to], keyed by
// UTC day (YYYY-MM-DD). Zero values for from/to select the trailing 365 days.
//
// Every day in the window gets a bucket, zero-filled when no events landed on
// it, so the contribution graph renders a contiguous range with no gaps. A
// bucket's count accumulates event values, not occurrences: a perfect_score
// event is worth 2.
//
// Fail-open: if the event log read fails the result is an empty map, never an
// error. The graph is decorative; it must not take the page down with it.
func (a *Aggregator) Aggregate(ctx context.Context, userID uuid.UUID, from, to time.Time) map[string]DayBucket {
	if to.IsZero() {
		to = a.now()
	}
	if from.IsZero() {
		from = to.Add(-DefaultWindow)
	}

	events, err := a.events.ListBetween(ctx, userID, from, to)
	if err != nil {
		a.log.Warn("contribution window read failed, serving empty graph",
			"user_id", userID, "error", err)
		return map[string]DayBucket{}
	}

	buckets := make(map[string]DayBucket)

	// Zero-fill every day in the window first.
	for day := from.UTC(); !day.After(to.UTC()); day = day.AddDate(0, 0, 1) {
		buckets[DayKey(day)] = DayBucket{Details: []Detail{}}
	}

	for _, ev := range events {
		key := DayKey(ev.CreatedAt)
		b := buckets[key]
		b.Count += ev.Value
		b.Details = append(b.Details, Detail{
			Type:     ev.Type,
			Value:    ev.Value,
			Time:     ev.CreatedAt.UTC().Format("15:04:05"),
			Metadata: ev.Metadata,
		})
		buckets[key] = b
	}

	return buckets
}

// ContributionDays reduces the user's full event history to the set of
// distinct UTC days with at least one event. Input for the streak functions.
func (a *Aggregator) ContributionDays(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	timestamps, err := a.events.ListTimestamps(ctx, userID)
	if err != nil {
		return nil, err
	}
	days := make(map[string]struct{}, len(timestamps))
	for _, ts := range timestamps {
		days[DayKey(ts)] = struct{}{}
	}
	return days, nil
}
