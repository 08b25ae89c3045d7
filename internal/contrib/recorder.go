package contrib

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rohan/flashdeck/internal/logger"
)

// Recorder appends contribution events for user actions. Load-bearing writes
// (the primary event of an action) surface errors; bonus events are
// best-effort and only logged, favoring availability over perfect
// contribution accounting.
type Recorder struct {
	events EventLog
	log    *logger.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder over the given event log.
func NewRecorder(events EventLog, log *logger.Logger) *Recorder {
	return &Recorder{events: events, log: log, now: time.Now}
}

// Track appends one event with an explicit value and typed metadata.
// metadata may be nil for types that carry none; when present its Kind must
// match t.
func (r *Recorder) Track(ctx context.Context, userID uuid.UUID, t ContributionType, value int, metadata Metadata) error {
	if !t.Valid() {
		return fmt.Errorf("unknown contribution type %q", t)
	}
	if value < 1 {
		return fmt.Errorf("contribution value must be >= 1, got %d", value)
	}
	if metadata != nil && metadata.Kind() != t {
		return fmt.Errorf("metadata kind %q does not match event type %q", metadata.Kind(), t)
	}
	return r.events.Append(ctx, AppendEvent{
		UserID:   userID,
		Type:     t,
		Value:    value,
		Metadata: metadata,
	})
}

// StudyOutcome is what a finished study session reports to the recorder.
type StudyOutcome struct {
	SetID                 uuid.UUID
	CardsStudied          int
	CorrectCards          int
	AIScorePercentage     int
	ManualScorePercentage int
	FinalScorePercentage  int
}

// RecordStudyCompletion emits the events of a finished session: one
// study_completed (value 1), plus perfect_score (value 2) when the final
// score is exactly 100, plus first_of_day (value 1) when the user had no
// event yet this calendar day.
//
// The three inserts are independent, not atomic. A bonus insert failing
// after the primary succeeded is swallowed and logged; the session already
// finished from the user's point of view and must not error out over a
// bonus row.
func (r *Recorder) RecordStudyCompletion(ctx context.Context, userID uuid.UUID, outcome StudyOutcome) error {
	// Sample the first-of-day condition before inserting, so the primary
	// event doesn't shadow it.
	firstToday := r.isFirstOfDay(ctx, userID)

	err := r.Track(ctx, userID, TypeStudyCompleted, 1, StudyCompletedMetadata{
		SetID:                 outcome.SetID,
		CardsStudied:          outcome.CardsStudied,
		CorrectCards:          outcome.CorrectCards,
		AIScorePercentage:     outcome.AIScorePercentage,
		ManualScorePercentage: outcome.ManualScorePercentage,
		FinalScorePercentage:  outcome.FinalScorePercentage,
	})
	if err != nil {
		return fmt.Errorf("record study completion: %w", err)
	}

	if outcome.FinalScorePercentage == 100 {
		err := r.Track(ctx, userID, TypePerfectScore, 2, PerfectScoreMetadata{SetID: outcome.SetID})
		if err != nil {
			r.log.Warn("perfect_score bonus not recorded", "user_id", userID, "error", err)
		}
	}

	if firstToday {
		r.recordFirstOfDay(ctx, userID)
	}

	return nil
}

// RecordSetCreated emits the set_created event for a newly created set, plus
// first_of_day when applicable. The primary insert is load-bearing.
func (r *Recorder) RecordSetCreated(ctx context.Context, userID, setID uuid.UUID, cardCount int, title string) error {
	firstToday := r.isFirstOfDay(ctx, userID)

	err := r.Track(ctx, userID, TypeSetCreated, 1, SetCreatedMetadata{
		SetID:     setID,
		CardCount: cardCount,
		Title:     title,
	})
	if err != nil {
		return fmt.Errorf("record set created: %w", err)
	}

	if firstToday {
		r.recordFirstOfDay(ctx, userID)
	}

	return nil
}

// RecordAppOpen tracks an app_opened event at most once per calendar day.
// Returns true when a new event was recorded. The dedupe reads the event log
// itself rather than client state, so it holds across devices.
func (r *Recorder) RecordAppOpen(ctx context.Context, userID uuid.UUID) (bool, error) {
	today := r.today()
	opened, err := r.events.CountSince(ctx, userID, TypeAppOpened, today)
	if err != nil {
		return false, fmt.Errorf("check app opens today: %w", err)
	}
	if opened > 0 {
		return false, nil
	}

	err = r.Track(ctx, userID, TypeAppOpened, 1, AppOpenedMetadata{Date: DayKey(today)})
	if err != nil {
		return false, fmt.Errorf("record app open: %w", err)
	}
	return true, nil
}

// isFirstOfDay reports whether the user has no event yet today. Errors read
// as "not first": the bonus is skipped rather than risking a duplicate.
func (r *Recorder) isFirstOfDay(ctx context.Context, userID uuid.UUID) bool {
	count, err := r.events.CountSince(ctx, userID, "", r.today())
	if err != nil {
		r.log.Warn("first_of_day check failed, skipping bonus", "user_id", userID, "error", err)
		return false
	}
	return count == 0
}

func (r *Recorder) recordFirstOfDay(ctx context.Context, userID uuid.UUID) {
	err := r.Track(ctx, userID, TypeFirstOfDay, 1, FirstOfDayMetadata{Date: DayKey(r.today())})
	if err != nil {
		r.log.Warn("first_of_day bonus not recorded", "user_id", userID, "error", err)
	}
}

// today returns midnight UTC of the current day.
func (r *Recorder) today() time.Time {
	now := r.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
