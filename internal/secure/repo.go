package secure

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

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns a session's rows ordered by creation time
// ascending, id as tiebreak. Ordering is explicit rather than relying
// on table order: concurrent writers interleave.
func (r *Repo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) InsertUsage(ctx context.Context, u *Usage) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) CountUsageSince(ctx context.Context, sessionID string, since time.Time) (int, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&Usage{}).
		Where("session_id = ? AND created_at > ?", sessionID, since).
		Count(&cnt).Error
	if err != nil {
		return 0, err
	}
	return int(cnt), nil
}

// DeleteMessagesBefore removes chat rows strictly older than cutoff and
// reports how many went. A plain range delete keeps the lock footprint
// on the messages table small.
func (r *Repo) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Message{})
	return res.RowsAffected, res.Error
}

func (r *Repo) DeleteUsageBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Usage{})
	return res.RowsAffected, res.Error
}

func (r *Repo) InsertLead(ctx context.Context, l *Lead) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *Repo) ListLeads(ctx context.Context, limit int) ([]Lead, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var leads []Lead
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&leads).Error
	if err != nil {
		return nil, err
	}
	return leads, nil
}
