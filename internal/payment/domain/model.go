// Package domain defines the payment-provider boundary: the checkout
// client the join flow redirects users through, and the webhook records the
// reconciliation flow settles payments from.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var (
	// ErrInvalidSignature is the only well-formed-request failure the
	// webhook endpoint surfaces as a client error.
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
	// ErrEventIgnored marks event types the reconciliation flow does not
	// handle. The endpoint acknowledges them so the provider stops retrying.
	ErrEventIgnored = errors.New("webhook_event_ignored")
	// ErrEventAlreadyProcessed marks a redelivery of a settled event.
	ErrEventAlreadyProcessed = errors.New("webhook_event_already_processed")
	// ErrMissingMetadata means the session carried no usable payment
	// reference. Logged and acknowledged, never retried.
	ErrMissingMetadata = errors.New("webhook_metadata_missing")

	ErrInvalidID = errors.New("invalid_id")
	// ErrPaymentNotFound also covers payments owned by another user.
	ErrPaymentNotFound = errors.New("payment_not_found")
	// ErrReceiptUnavailable means the payment has not settled as paid.
	ErrReceiptUnavailable = errors.New("receipt_unavailable")
)

// WebhookRecord stores every received provider event once, keyed by
// (provider, provider_event_id). The unique index is what makes redelivery
// a no-op.
type WebhookRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	Provider        string         `gorm:"type:text;not null;uniqueIndex:idx_provider_event" json:"provider"`
	ProviderEventID string         `gorm:"type:text;not null;uniqueIndex:idx_provider_event" json:"provider_event_id"`
	EventType       string         `gorm:"type:text;not null" json:"event_type"`
	Payload         datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
	ReceivedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"received_at"`
}

func (WebhookRecord) TableName() string { return "payment_webhook_events" }

// CompletedSession is the parsed result of a checkout.session.completed
// event: the metadata written at session creation plus the provider's
// payment outcome.
type CompletedSession struct {
	EventID   string
	SessionID string
	Paid      bool
	PaymentID snowflake.ID
	UserID    snowflake.ID
	BookingID snowflake.ID
}

// CreateSessionParams carries everything the provider needs to build a
// hosted checkout page. Metadata round-trips through the provider and comes
// back on the completion webhook.
type CreateSessionParams struct {
	PaymentID   snowflake.ID
	UserID      snowflake.ID
	EventID     snowflake.ID
	Title       string
	AmountMinor int64
	Currency    string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutClient creates hosted checkout sessions with the payment
// provider. The join flow calls it after committing the reservation.
type CheckoutClient interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*CheckoutSession, error)
}

// IngestResult reports what a webhook delivery settled.
type IngestResult struct {
	EventID   string
	PaymentID snowflake.ID
	Settled   bool
}

// ReceiptDetails is the joined row a receipt is rendered from.
type ReceiptDetails struct {
	PaymentID     snowflake.ID
	UserID        snowflake.ID
	Amount        decimal.Decimal
	Currency      string
	Status        string
	PaidAt        time.Time
	EventTitle    string
	EventDate     time.Time
	EventLocation string
	HostName      string
	AttendeeName  string
	AttendeeEmail string
}

type Service interface {
	// IngestWebhook verifies, records and settles one provider delivery.
	// The raw body is required because the signature covers the exact bytes.
	IngestWebhook(ctx context.Context, payload []byte, signature string) (*IngestResult, error)

	// Receipt renders the PDF receipt for a paid payment owned by requester.
	Receipt(ctx context.Context, paymentID string, requester snowflake.ID) ([]byte, error)
}
