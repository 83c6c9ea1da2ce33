package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/internal/payment/domain"
)

type Repository interface {
	// InsertRecord stores the delivery. The unique (provider, event id)
	// index rejects redeliveries.
	InsertRecord(ctx context.Context, db *gorm.DB, record *domain.WebhookRecord) error
	FindRecord(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.WebhookRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	FindReceiptDetails(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*domain.ReceiptDetails, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) InsertRecord(ctx context.Context, db *gorm.DB, record *domain.WebhookRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_webhook_events (id, provider, provider_event_id, event_type, payload, processed_at, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Provider,
		record.ProviderEventID,
		record.EventType,
		record.Payload,
		record.ProcessedAt,
		record.ReceivedAt,
	).Error
}

func (r *repo) FindRecord(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.WebhookRecord, error) {
	var record domain.WebhookRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, event_type, payload, processed_at, received_at
		 FROM payment_webhook_events WHERE provider = ? AND provider_event_id = ?`,
		provider,
		providerEventID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_webhook_events SET processed_at = ? WHERE id = ?`,
		at,
		id,
	).Error
}

func (r *repo) FindReceiptDetails(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*domain.ReceiptDetails, error) {
	var details domain.ReceiptDetails
	err := db.WithContext(ctx).Raw(
		`SELECT p.id AS payment_id,
		        p.user_id,
		        p.amount,
		        p.currency,
		        p.status,
		        p.updated_at AS paid_at,
		        e.title AS event_title,
		        e.date AS event_date,
		        e.location AS event_location,
		        COALESCE(host.full_name, '') AS host_name,
		        COALESCE(att.full_name, '') AS attendee_name,
		        u.email AS attendee_email
		 FROM payments p
		 JOIN events e ON e.id = p.event_id
		 JOIN users u ON u.id = p.user_id
		 LEFT JOIN profiles host ON host.user_id = e.host_id
		 LEFT JOIN profiles att ON att.user_id = p.user_id
		 WHERE p.id = ?`,
		paymentID,
	).Scan(&details).Error
	if err != nil {
		return nil, err
	}
	if details.PaymentID == 0 {
		return nil, nil
	}
	return &details, nil
}
