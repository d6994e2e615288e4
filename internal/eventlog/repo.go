package eventlog

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Insert(ctx context.Context, ev *Event) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// ListRecent returns the newest events, newest first.
func (r *Repo) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var evs []Event
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&evs).Error; err != nil {
		return nil, err
	}
	return evs, nil
}

func (r *Repo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Event{}).
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}

func (r *Repo) CountDistinctUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Event{}).
		Where("created_at >= ?", since).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}

type ChannelCount struct {
	Channel string `json:"channel"`
	Count   int64  `json:"count"`
}

func (r *Repo) ChannelCountsSince(ctx context.Context, since time.Time) ([]ChannelCount, error) {
	var out []ChannelCount
	err := r.db.WithContext(ctx).Model(&Event{}).
		Select("channel, count(*) as count").
		Where("created_at >= ?", since).
		Group("channel").
		Order("count DESC").
		Find(&out).Error
	return out, err
}
