package contrib

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rohan/flashdeck/internal/logger"
)

// fakeLog is an in-memory EventLog for aggregator and recorder tests.
type fakeLog struct {
	events []Event
	err    error
}

func (f *fakeLog) Append(_ context.Context, ev AppendEvent) error {
	if f.err != nil {
		return f.err
	}
	var meta map[string]any
	if ev.Metadata != nil {
		raw, _ := json.Marshal(ev.Metadata)
		_ = json.Unmarshal(raw, &meta)
	}
	f.events = append(f.events, Event{
		ID:        uuid.New(),
		UserID:    ev.UserID,
		Type:      ev.Type,
		Value:     ev.Value,
		CreatedAt: time.Now().UTC(),
		Metadata:  meta,
	})
	return nil
}

func (f *fakeLog) at(userID uuid.UUID, t ContributionType, value int, created time.Time, meta map[string]any) {
	f.events = append(f.events, Event{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      t,
		Value:     value,
		CreatedAt: created,
		Metadata:  meta,
	})
}

func (f *fakeLog) ListBetween(_ context.Context, userID uuid.UUID, from, to time.Time) ([]Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Event
	for _, ev := range f.events {
		if ev.UserID == userID && !ev.CreatedAt.Before(from) && !ev.CreatedAt.After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeLog) ListTimestamps(_ context.Context, userID uuid.UUID) ([]time.Time, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []time.Time
	for _, ev := range f.events {
		if ev.UserID == userID {
			out = append(out, ev.CreatedAt)
		}
	}
	return out, nil
}

func (f *fakeLog) ListByType(_ context.Context, userID uuid.UUID, t ContributionType) ([]Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Event
	for _, ev := range f.events {
		if ev.UserID == userID && ev.Type == t {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeLog) SumValues(_ context.Context, userID uuid.UUID) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	total := 0
	for _, ev := range f.events {
		if ev.UserID == userID {
			total += ev.Value
		}
	}
	return total, nil
}

func (f *fakeLog) SumByType(_ context.Context, userID uuid.UUID) (map[ContributionType]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[ContributionType]int{}
	for _, ev := range f.events {
		if ev.UserID == userID {
			out[ev.Type] += ev.Value
		}
	}
	return out, nil
}

func (f *fakeLog) CountSince(_ context.Context, userID uuid.UUID, t ContributionType, since time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, ev := range f.events {
		if ev.UserID != userID || ev.CreatedAt.Before(since) {
			continue
		}
		if t != "" && ev.Type != t {
			continue
		}
		n++
	}
	return n, nil
}

type fakeSets struct {
	count int64
	err   error
}

func (f *fakeSets) CountSets(context.Context, uuid.UUID) (int64, error) {
	return f.count, f.err
}

func testAggregator(events *fakeLog, sets *fakeSets, now time.Time) *Aggregator {
	a := NewAggregator(events, sets, logger.Nop())
	a.now = func() time.Time { return now }
	return a
}

func TestAggregate_ContiguousBuckets(t *testing.T) {
	userID := uuid.New()
	events := &fakeLog{}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	events.at(userID, TypeStudyCompleted, 1, from.Add(26*time.Hour), nil)

	a := testAggregator(events, &fakeSets{}, to)
	buckets := a.Aggregate(context.Background(), userID, from, to)

	if len(buckets) != 10 {
		t.Fatalf("expected 10 buckets, got %d", len(buckets))
	}

	keys := make([]string, 0, len(buckets))
	for k, b := range buckets {
		keys = append(keys, k)
		if b.Count < 0 {
			t.Errorf("bucket %s has negative count %d", k, b.Count)
		}
	}
	sort.Strings(keys)
	for i, k := range keys {
		want := DayKey(from.AddDate(0, 0, i))
		if k != want {
			t.Errorf("bucket %d: expected day %s, got %s", i, want, k)
		}
	}
}

func TestAggregate_CountsEventValues(t *testing.T) {
	userID := uuid.New()
	events := &fakeLog{}
	day := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	events.at(userID, TypeStudyCompleted, 1, day, nil)
	events.at(userID, TypePerfectScore, 2, day.Add(time.Minute), nil)

	a := testAggregator(events, &fakeSets{}, day)
	buckets := a.Aggregate(context.Background(), userID, day.AddDate(0, 0, -1), day)

	b := buckets[DayKey(day)]
	if b.Count != 3 {
		t.Errorf("expected count 3 (values summed), got %d", b.Count)
	}
	if len(b.Details) != 2 {
		t.Errorf("expected 2 details, got %d", len(b.Details))
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	userID := uuid.New()
	events := &fakeLog{}
	day := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	events.at(userID, TypeSetCreated, 1, day, map[string]any{"title": "biology"})

	a := testAggregator(events, &fakeSets{}, day)
	from, to := day.AddDate(0, 0, -3), day

	first := a.Aggregate(context.Background(), userID, from, to)
	second := a.Aggregate(context.Background(), userID, from, to)

	if len(first) != len(second) {
		t.Fatalf("bucket counts differ: %d vs %d", len(first), len(second))
	}
	for k, b := range first {
		if second[k].Count != b.Count {
			t.Errorf("bucket %s: counts differ %d vs %d", k, b.Count, second[k].Count)
		}
	}
}

func TestAggregate_FailOpen(t *testing.T) {
	events := &fakeLog{err: errors.New("connection refused")}
	a := testAggregator(events, &fakeSets{}, time.Now())

	buckets := a.Aggregate(context.Background(), uuid.New(), time.Time{}, time.Time{})
	if buckets == nil {
		t.Fatal("expected empty map, got nil")
	}
	if len(buckets) != 0 {
		t.Errorf("expected empty map on read failure, got %d buckets", len(buckets))
	}
}

func TestAggregate_DefaultWindow(t *testing.T) {
	userID := uuid.New()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := testAggregator(&fakeLog{}, &fakeSets{}, now)

	buckets := a.Aggregate(context.Background(), userID, time.Time{}, time.Time{})

	// 365 days back plus the partial current day.
	if len(buckets) != 366 {
		t.Errorf("expected 366 buckets for the default window, got %d", len(buckets))
	}
}

func TestUserStats_PerFieldFailOpen(t *testing.T) {
	userID := uuid.New()
	events := &fakeLog{err: errors.New("timeout")}
	sets := &fakeSets{count: 4}

	a := testAggregator(events, sets, time.Now())
	stats := a.UserStats(context.Background(), userID)

	// Event-log fields degrade to zero, but the set count still comes through.
	if stats.TotalContributions != 0 || stats.CurrentStreak != 0 || stats.LongestStreak != 0 {
		t.Errorf("expected zeroed event fields, got %+v", stats)
	}
	if stats.SetsCount != 4 {
		t.Errorf("expected sets count 4, got %d", stats.SetsCount)
	}
}

func TestUserStats_CardsStudiedFromMetadata(t *testing.T) {
	userID := uuid.New()
	events := &fakeLog{}
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	// JSON decoding yields float64 numbers.
	events.at(userID, TypeStudyCompleted, 1, now, map[string]any{"cards_studied": float64(12)})
	events.at(userID, TypeStudyCompleted, 1, now.Add(time.Hour), map[string]any{"cards_studied": float64(8)})
	events.at(userID, TypeStudyCompleted, 1, now.Add(2*time.Hour), map[string]any{})

	a := testAggregator(events, &fakeSets{count: 1}, now)
	stats := a.UserStats(context.Background(), userID)

	if stats.TotalCardsStudied != 20 {
		t.Errorf("expected 20 cards studied, got %d", stats.TotalCardsStudied)
	}
	if stats.TotalContributions != 3 {
		t.Errorf("expected total 3, got %d", stats.TotalContributions)
	}
	if stats.ContributionsByType[TypeStudyCompleted] != 3 {
		t.Errorf("expected 3 study_completed, got %d", stats.ContributionsByType[TypeStudyCompleted])
	}
}
