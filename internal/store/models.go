package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContributionEvent is one row of the append-only contribution log.
// Rows are inserted and read, never updated or deleted. Column names match
// the hosted schema the web client was built against.
type ContributionEvent struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_contrib_user_created,priority:1"`
	Type      string            `gorm:"column:contribution_type;not null;index"`
	Value     int               `gorm:"column:contribution_value;not null;default:1"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt time.Time         `gorm:"not null;index:idx_contrib_user_created,priority:2"`
}

func (ContributionEvent) TableName() string { return "user_contributions" }

func (e *ContributionEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// FlashcardSet is a user-owned deck of generated cards.
type FlashcardSet struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Cards []Flashcard `gorm:"foreignKey:SetID;constraint:OnDelete:CASCADE"`
}

func (FlashcardSet) TableName() string { return "flashcard_sets" }

func (s *FlashcardSet) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Flashcard is one question/answer pair inside a set.
type Flashcard struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SetID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Question  string    `gorm:"not null"`
	Answer    string    `gorm:"not null"`
	CreatedAt time.Time
}

func (Flashcard) TableName() string { return "flashcards" }

func (c *Flashcard) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
