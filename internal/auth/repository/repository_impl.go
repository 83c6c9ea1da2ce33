package repository

import (
	"context"
	"time"

	"github.com/gatherly/gatherly/internal/auth/domain"
	"gorm.io/gorm"
)

type Repository interface {
	InsertSession(ctx context.Context, db *gorm.DB, session *domain.Session) error
	FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Session, error)
	Revoke(ctx context.Context, db *gorm.DB, tokenHash string, at time.Time) error
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sessions (id, user_id, session_token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.SessionTokenHash,
		session.ExpiresAt,
		session.CreatedAt,
	).Error
}

func (r *repo) FindByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, session_token_hash, expires_at, revoked_at, created_at
		 FROM sessions WHERE session_token_hash = ?`,
		tokenHash,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, tokenHash string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE sessions SET revoked_at = ? WHERE session_token_hash = ? AND revoked_at IS NULL`,
		at,
		tokenHash,
	).Error
}
