package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrSetNotFound is returned when a set id does not exist or belongs to a
// different user.
var ErrSetNotFound = errors.New("flashcard set not found")

// SetRepo persists flashcard sets and their cards.
type SetRepo struct {
	db *gorm.DB
}

// CreateWithCards inserts the set and its cards in one transaction.
func (r *SetRepo) CreateWithCards(ctx context.Context, set *FlashcardSet, cards []Flashcard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(set).Error; err != nil {
			return fmt.Errorf("insert flashcard set: %w", err)
		}
		for i := range cards {
			cards[i].SetID = set.ID
		}
		if len(cards) > 0 {
			if err := tx.Create(&cards).Error; err != nil {
				return fmt.Errorf("insert flashcards: %w", err)
			}
		}
		set.Cards = cards
		return nil
	})
}

// Get returns one set with its cards, scoped to the owning user.
func (r *SetRepo) Get(ctx context.Context, userID, setID uuid.UUID) (*FlashcardSet, error) {
	var set FlashcardSet
	err := r.db.WithContext(ctx).
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND user_id = ?", setID, userID).
		First(&set).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query flashcard set: %w", err)
	}
	return &set, nil
}

// List returns the user's sets, newest first, without cards.
func (r *SetRepo) List(ctx context.Context, userID uuid.UUID) ([]FlashcardSet, error) {
	var sets []FlashcardSet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sets).Error
	if err != nil {
		return nil, fmt.Errorf("list flashcard sets: %w", err)
	}
	return sets, nil
}

// Delete removes a set and its cards, scoped to the owning user.
func (r *SetRepo) Delete(ctx context.Context, userID, setID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", setID, userID).Delete(&FlashcardSet{})
		if res.Error != nil {
			return fmt.Errorf("delete flashcard set: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSetNotFound
		}
		// SQLite in tests has no cascading FK by default.
		if err := tx.Where("set_id = ?", setID).Delete(&Flashcard{}).Error; err != nil {
			return fmt.Errorf("delete flashcards: %w", err)
		}
		return nil
	})
}

// CountSets implements contrib.SetCounter.
func (r *SetRepo) CountSets(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&FlashcardSet{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count flashcard sets: %w", err)
	}
	return count, nil
}
