package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	eventdomain "github.com/gatherly/gatherly/internal/event/domain"
)

// Repository is the persistence surface shared by the join flow, the
// reconciliation flow and the pending-payment sweeper. All writes run
// against the *gorm.DB handed in, so callers control transaction scope.
type Repository interface {
	// TouchEvent bumps the event row inside the current transaction,
	// serializing concurrent joins and settlements for the same event.
	TouchEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) error

	FindEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (*eventdomain.Event, error)
	UserExists(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error)

	FindParticipant(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*EventParticipant, error)
	CountJoined(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error)
	InsertParticipant(ctx context.Context, db *gorm.DB, p *EventParticipant) error
	// ReviveParticipant flips an EXPIRED row back to PENDING.
	ReviveParticipant(ctx context.Context, db *gorm.DB, participantID snowflake.ID) error
	// MarkParticipantJoined promotes a PENDING row to JOINED. Returns false
	// when the row was not PENDING, so redeliveries and late settlements
	// cannot regress a decided row.
	MarkParticipantJoined(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID, at time.Time) (bool, error)
	ExpireParticipant(ctx context.Context, db *gorm.DB, participantID snowflake.ID) (bool, error)

	InsertPayment(ctx context.Context, db *gorm.DB, p *Payment) error
	FindPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) (*Payment, error)
	SetPaymentSession(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, sessionID string) error
	// MarkPaymentStatus moves a payment from one status to another. Returns
	// false when the row was not in the expected status.
	MarkPaymentStatus(ctx context.Context, db *gorm.DB, paymentID snowflake.ID, from, to PaymentStatus) (bool, error)

	// ListStalePending returns PENDING payments created before the cutoff.
	ListStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]Payment, error)

	// MarkEventFull flips an OPEN event to FULL.
	MarkEventFull(ctx context.Context, db *gorm.DB, eventID snowflake.ID) error
}
