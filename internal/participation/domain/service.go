package domain

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound  = errors.New("user_not_found")
	ErrEventNotFound = errors.New("event_not_found")
	ErrEventNotOpen  = errors.New("event_not_open")
	ErrAlreadyJoined = errors.New("already_joined")
	ErrEventFull     = errors.New("event_full")
	ErrInvalidID     = errors.New("invalid_id")
	// ErrCheckoutUnavailable means the slot was reserved but the payment
	// provider could not issue a checkout session.
	ErrCheckoutUnavailable = errors.New("checkout_unavailable")
)

type JoinRequest struct {
	EventID string `json:"-"`
	UserID  string `json:"-"`
}

type JoinResult struct {
	PaymentURL string `json:"paymentUrl"`
}

type Service interface {
	// Join reserves a slot on the event and returns the checkout URL the
	// caller must complete payment on. The reservation stays PENDING until
	// the provider confirms payment or the sweeper expires it.
	Join(ctx context.Context, req JoinRequest) (*JoinResult, error)

	// ExpireStale settles PENDING reservations older than the configured
	// TTL: payment to UNPAID, participant to EXPIRED. Returns the number
	// of reservations expired.
	ExpireStale(ctx context.Context) (int, error)
}
