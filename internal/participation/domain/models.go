// Package domain holds the participation ledger: the EventParticipant and
// Payment rows a join attempt creates and the reconciliation flow settles.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ParticipantStatus string

const (
	// ParticipantPending: slot reserved, payment not yet confirmed.
	ParticipantPending ParticipantStatus = "PENDING"
	// ParticipantJoined: set only by the reconciliation flow on confirmed payment.
	ParticipantJoined ParticipantStatus = "JOINED"
	// ParticipantExpired: set only by the sweeper; a later join revives the row.
	ParticipantExpired ParticipantStatus = "EXPIRED"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentUnpaid  PaymentStatus = "UNPAID"
)

// EventParticipant is the join record, unique per (event, user).
type EventParticipant struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventID   snowflake.ID      `gorm:"not null;uniqueIndex:idx_event_user" json:"event_id"`
	UserID    snowflake.ID      `gorm:"not null;uniqueIndex:idx_event_user" json:"user_id"`
	Status    ParticipantStatus `gorm:"type:text;not null" json:"status"`
	JoinedAt  *time.Time        `gorm:"column:joined_at" json:"joined_at,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (EventParticipant) TableName() string { return "event_participants" }

// Payment is created in the same transaction as its EventParticipant and
// never outlives it.
type Payment struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	EventID           snowflake.ID    `gorm:"not null;index" json:"event_id"`
	UserID            snowflake.ID    `gorm:"not null;index" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency          string          `gorm:"type:text;not null" json:"currency"`
	Status            PaymentStatus   `gorm:"type:text;not null" json:"status"`
	ProviderSessionID string          `gorm:"type:text" json:"provider_session_id,omitempty"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
