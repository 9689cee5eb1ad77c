package session

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Record is the database row behind a session.
type Record struct {
	SessionID string         `gorm:"primaryKey"`
	Token     string         `gorm:"not null"`
	UserID    int            `gorm:"not null;index"`
	Role      int            `gorm:"not null"`
	Email     string
	Panels    pq.StringArray `gorm:"type:text[]"`
	ExpiresAt time.Time      `gorm:"not null;index"`
	CreatedAt time.Time
}

func (Record) TableName() string { return "portal_sessions" }

// GormStore keeps sessions in a SQL database through gorm (postgres or sqlite).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the sessions table and returns a store over it.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (g *GormStore) Save(ctx context.Context, s Session) error {
	rec := Record{
		SessionID: s.ID,
		Token:     s.Token,
		UserID:    s.UserID,
		Role:      s.Role,
		Email:     s.Email,
		Panels:    pq.StringArray(s.Panels),
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
	return g.db.WithContext(ctx).Save(&rec).Error
}

func (g *GormStore) Find(ctx context.Context, id string) (Session, error) {
	var rec Record
	err := g.db.WithContext(ctx).First(&rec, "session_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:        rec.SessionID,
		Token:     rec.Token,
		UserID:    rec.UserID,
		Role:      rec.Role,
		Email:     rec.Email,
		Panels:    []string(rec.Panels),
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (g *GormStore) Delete(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Where("session_id = ?", id).Delete(&Record{}).Error
}

// DeleteExpired removes every session past its expiry and returns their ids.
func (g *GormStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := g.db.WithContext(ctx).Model(&Record{}).
		Where("expires_at <= ?", now).
		Pluck("session_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	err = g.db.WithContext(ctx).Where("session_id IN ?", ids).Delete(&Record{}).Error
	return ids, err
}
