package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	eventdomain "github.com/gatherly/gatherly/internal/event/domain"
	"github.com/gatherly/gatherly/internal/participation/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) TouchEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) error {
	// The dummy update takes the row lock on engines that support it and
	// serializes the write on sqlite, so at most one join or settlement for
	// the event runs at a time.
	return db.WithContext(ctx).Exec(
		`UPDATE events SET updated_at = updated_at WHERE id = ?`,
		eventID,
	).Error
}

func (r *repo) FindEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (*eventdomain.Event, error) {
	var event eventdomain.Event
	err := db.WithContext(ctx).Raw(
		`SELECT id, host_id, category_id, title, slug, description, location, date,
		        min_participants, max_participants, fee, currency, image, status,
		        created_at, updated_at
		 FROM events WHERE id = ?`,
		eventID,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) UserExists(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM users WHERE id = ?`,
		userID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindParticipant(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*domain.EventParticipant, error) {
	var participant domain.EventParticipant
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, user_id, status, joined_at, created_at, updated_at
		 FROM event_participants WHERE event_id = ? AND user_id = ?`,
		eventID,
		userID,
	).Scan(&participant).Error
	if err != nil {
		return nil, err
	}
	if participant.ID == 0 {
		return nil, nil
	}
	return &participant, nil
}

func (r *repo) CountJoined(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM event_participants WHERE event_id = ? AND status = ?`,
		eventID,
		domain.ParticipantJoined,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) InsertParticipant(ctx context.Context, db *gorm.DB, p *domain.EventParticipant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO event_participants (id, event_id, user_id, status, joined_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.EventID,
		p.UserID,
		p.Status,
		p.JoinedAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) ReviveParticipant(ctx context.Context, db *gorm.DB, participantID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE event_participants SET status = ?, joined_at = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.ParticipantPending,
		time.Now().UTC(),
		participantID,
		domain.ParticipantExpired,
	).Error
}

func (r *repo) MarkParticipantJoined(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE event_participants SET status = ?, joined_at = ?, updated_at = ?
		 WHERE event_id = ? AND user_id = ? AND status = ?`,
		domain.ParticipantJoined,
		at,
		at,
		eventID,
		userID,
		domain.ParticipantPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ExpireParticipant(ctx context.Context, db *gorm.DB, participantID snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE event_participants SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.ParticipantExpired,
		time.Now().UTC(),
		participantID,
		domain.ParticipantPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, event_id, user_id, amount, currency, status, provider_session_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.EventID,
		p.UserID,
		p.Amount,
		p.Currency,
		p.Status,
		p.ProviderSessionID,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, user_id, amount, currency, status, provider_session_id, created_at, updated_at
		 FROM payments WHERE id = ?`,
		paymentID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) SetPaymentSession(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, sessionID string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments SET provider_session_id = ?, updated_at = ? WHERE id = ?`,
		sessionID,
		time.Now().UTC(),
		paymentID,
	).Error
}

func (r *repo) MarkPaymentStatus(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, from, to domain.PaymentStatus) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC(),
		paymentID,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_id, user_id, amount, currency, status, provider_session_id, created_at, updated_at
		 FROM payments WHERE status = ? AND created_at < ?
		 ORDER BY created_at ASC LIMIT ?`,
		domain.PaymentPending,
		cutoff,
		limit,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) MarkEventFull(ctx context.Context, db *gorm.DB, eventID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE events SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		eventdomain.StatusFull,
		time.Now().UTC(),
		eventID,
		eventdomain.StatusOpen,
	).Error
}
