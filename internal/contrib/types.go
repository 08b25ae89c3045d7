package contrib

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ContributionType identifies one kind of tracked user activity.
type ContributionType string

const (
	TypeAccountCreated      ContributionType = "account_created"
	TypeSetCreated          ContributionType = "set_created"
	TypeStudyCompleted      ContributionType = "study_completed"
	TypePerfectScore        ContributionType = "perfect_score"
	TypeStreakMilestone     ContributionType = "streak_milestone"
	TypeFirstOfDay          ContributionType = "first_of_day"
	TypeSharedSet           ContributionType = "shared_set"
	TypeAppOpened           ContributionType = "app_opened"
	TypeFlashcardEdited     ContributionType = "flashcard_edited"
	TypeProfileUpdated      ContributionType = "profile_updated"
	TypeFeedbackProvided    ContributionType = "feedback_provided"
	TypeInviteSent          ContributionType = "invite_sent"
	TypeAchievementUnlocked ContributionType = "achievement_unlocked"
)

// AllTypes lists every contribution type. The enum is closed: events with a
// type outside this list are rejected at append time.
var AllTypes = []ContributionType{
	TypeAccountCreated,
	TypeSetCreated,
	TypeStudyCompleted,
	TypePerfectScore,
	TypeStreakMilestone,
	TypeFirstOfDay,
	TypeSharedSet,
	TypeAppOpened,
	TypeFlashcardEdited,
	TypeProfileUpdated,
	TypeFeedbackProvided,
	TypeInviteSent,
	TypeAchievementUnlocked,
}

// Valid reports whether t is one of the known contribution types.
func (t ContributionType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Metadata is the tagged per-type payload attached to an event. Each
// contribution type that carries data has its own variant, so a
// study_completed event cannot accidentally carry set_created fields.
type Metadata interface {
	// Kind returns the contribution type this metadata belongs to.
	Kind() ContributionType
}

// StudyCompletedMetadata records the outcome of a finished study session.
type StudyCompletedMetadata struct {
	SetID                 uuid.UUID `json:"set_id"`
	CardsStudied          int       `json:"cards_studied"`
	CorrectCards          int       `json:"correct_cards"`
	AIScorePercentage     int       `json:"ai_score_percentage"`
	ManualScorePercentage int       `json:"manual_score_percentage"`
	FinalScorePercentage  int       `json:"final_score_percentage"`
}

func (StudyCompletedMetadata) Kind() ContributionType { return TypeStudyCompleted }

// SetCreatedMetadata records the set a set_created event refers to.
type SetCreatedMetadata struct {
	SetID     uuid.UUID `json:"set_id"`
	CardCount int       `json:"card_count"`
	Title     string    `json:"title"`
}

func (SetCreatedMetadata) Kind() ContributionType { return TypeSetCreated }

// PerfectScoreMetadata records which set earned the perfect-score bonus.
type PerfectScoreMetadata struct {
	SetID uuid.UUID `json:"set_id"`
}

func (PerfectScoreMetadata) Kind() ContributionType { return TypePerfectScore }

// FirstOfDayMetadata records the calendar day of a first-activity bonus.
type FirstOfDayMetadata struct {
	Date string `json:"date"`
}

func (FirstOfDayMetadata) Kind() ContributionType { return TypeFirstOfDay }

// AppOpenedMetadata records the calendar day an app_opened event was tracked.
type AppOpenedMetadata struct {
	Date string `json:"date"`
}

func (AppOpenedMetadata) Kind() ContributionType { return TypeAppOpened }

// Event is one immutable contribution fact from the append-only log.
// Metadata is the decoded JSON payload as stored; writers go through the
// typed Metadata variants above.
type Event struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      ContributionType
	Value     int
	CreatedAt time.Time
	Metadata  map[string]any
}

// Detail is one event entry inside a day bucket, in arrival order.
type Detail struct {
	Type     ContributionType `json:"type"`
	Value    int              `json:"value"`
	Time     string           `json:"time"`
	Metadata map[string]any   `json:"metadata"`
}

// DayBucket aggregates all contribution events on one calendar day.
type DayBucket struct {
	Count   int      `json:"count"`
	Details []Detail `json:"details"`
}

// UserStats is the derived aggregate shown on the profile page.
type UserStats struct {
	TotalContributions  int                      `json:"totalContributions"`
	CurrentStreak       int                      `json:"currentStreak"`
	LongestStreak       int                      `json:"longestStreak"`
	SetsCount           int                      `json:"setsCount"`
	TotalCardsStudied   int                      `json:"totalCardsStudied"`
	ContributionsByType map[ContributionType]int `json:"contributionsByType"`
}

// AppendEvent is the write side of the event log.
type AppendEvent struct {
	UserID   uuid.UUID
	Type     ContributionType
	Value    int
	Metadata Metadata
}

// EventLog is the persistence collaborator the aggregator reads from and the
// recorder appends to. Implemented by the store package.
type EventLog interface {
	// Append inserts one event. Events are never updated or deleted.
	Append(ctx context.Context, ev AppendEvent) error

	// ListBetween returns the user's events with CreatedAt in [from, to],
	// newest first.
	ListBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Event, error)

	// ListTimestamps returns the CreatedAt of every event for the user,
	// newest first.
	ListTimestamps(ctx context.Context, userID uuid.UUID) ([]time.Time, error)

	// ListByType returns the user's events of one type, newest first.
	ListByType(ctx context.Context, userID uuid.UUID, t ContributionType) ([]Event, error)

	// SumValues returns the sum of Value over all of the user's events.
	SumValues(ctx context.Context, userID uuid.UUID) (int, error)

	// SumByType returns the sum of Value per contribution type.
	SumByType(ctx context.Context, userID uuid.UUID) (map[ContributionType]int, error)

	// CountSince returns how many events the user has with CreatedAt >= since,
	// optionally restricted to one type (empty type means any).
	CountSince(ctx context.Context, userID uuid.UUID, t ContributionType, since time.Time) (int64, error)
}

// SetCounter counts a user's flashcard sets. Implemented by the store package.
type SetCounter interface {
	CountSets(ctx context.Context, userID uuid.UUID) (int64, error)
}

// DayKey normalizes a timestamp to its UTC calendar day (YYYY-MM-DD).
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
