package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rohan/flashdeck/internal/contrib"
)

// ContributionRepo implements contrib.EventLog over the user_contributions
// table.
type ContributionRepo struct {
	db *gorm.DB
}

var _ contrib.EventLog = (*ContributionRepo)(nil)

func (r *ContributionRepo) Append(ctx context.Context, ev contrib.AppendEvent) error {
	meta, err := marshalMetadata(ev.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	row := ContributionEvent{
		UserID:   ev.UserID,
		Type:     string(ev.Type),
		Value:    ev.Value,
		Metadata: meta,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert contribution event: %w", err)
	}
	return nil
}

func (r *ContributionRepo) ListBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]contrib.Event, error) {
	var rows []ContributionEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at <= ?", userID, from, to).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query contribution window: %w", err)
	}
	return toEvents(rows), nil
}

func (r *ContributionRepo) ListTimestamps(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {
	var timestamps []time.Time
	err := r.db.WithContext(ctx).
		Model(&ContributionEvent{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("created_at", &timestamps).Error
	if err != nil {
		return nil, fmt.Errorf("query contribution timestamps: %w", err)
	}
	return timestamps, nil
}

func (r *ContributionRepo) ListByType(ctx context.Context, userID uuid.UUID, t contrib.ContributionType) ([]contrib.Event, error) {
	var rows []ContributionEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND contribution_type = ?", userID, string(t)).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query contributions by type: %w", err)
	}
	return toEvents(rows), nil
}

func (r *ContributionRepo) SumValues(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&ContributionEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(contribution_value), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum contribution values: %w", err)
	}
	return int(total), nil
}

func (r *ContributionRepo) SumByType(ctx context.Context, userID uuid.UUID) (map[contrib.ContributionType]int, error) {
	var rows []struct {
		Type  string
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&ContributionEvent{}).
		Where("user_id = ?", userID).
		Select("contribution_type AS type, SUM(contribution_value) AS total").
		Group("contribution_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum contributions by type: %w", err)
	}

	out := make(map[contrib.ContributionType]int, len(rows))
	for _, row := range rows {
		out[contrib.ContributionType(row.Type)] = int(row.Total)
	}
	return out, nil
}

func (r *ContributionRepo) CountSince(ctx context.Context, userID uuid.UUID, t contrib.ContributionType, since time.Time) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&ContributionEvent{}).
		Where("user_id = ? AND created_at >= ?", userID, since)
	if t != "" {
		q = q.Where("contribution_type = ?", string(t))
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count contributions since %s: %w", since.Format(time.RFC3339), err)
	}
	return count, nil
}

// marshalMetadata round-trips a typed metadata variant through JSON into the
// generic map shape the column stores.
func marshalMetadata(meta contrib.Metadata) (datatypes.JSONMap, error) {
	if meta == nil {
		return datatypes.JSONMap{}, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return datatypes.JSONMap(m), nil
}

func toEvents(rows []ContributionEvent) []contrib.Event {
	out := make([]contrib.Event, len(rows))
	for i, row := range rows {
		out[i] = contrib.Event{
			ID:        row.ID,
			UserID:    row.UserID,
			Type:      contrib.ContributionType(row.Type),
			Value:     row.Value,
			CreatedAt: row.CreatedAt,
			Metadata:  map[string]any(row.Metadata),
		}
	}
	return out
}
