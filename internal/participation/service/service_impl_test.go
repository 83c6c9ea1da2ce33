package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/internal/config"
	participationdomain "github.com/gatherly/gatherly/internal/participation/domain"
	participationrepo "github.com/gatherly/gatherly/internal/participation/repository"
	participationservice "github.com/gatherly/gatherly/internal/participation/service"
	paymentdomain "github.com/gatherly/gatherly/internal/payment/domain"
)

type fakeCheckoutClient struct {
	lastParams paymentdomain.CreateSessionParams
	fail       bool
}

func (f *fakeCheckoutClient) CreateSession(ctx context.Context, params paymentdomain.CreateSessionParams) (*paymentdomain.CheckoutSession, error) {
	f.lastParams = params
	if f.fail {
		return nil, errors.New("provider down")
	}
	return &paymentdomain.CheckoutSession{
		ID:  "cs_test_" + params.PaymentID.String(),
		URL: "https://checkout.stripe.com/pay/cs_test_" + params.PaymentID.String(),
	}, nil
}

// blindRepo hides existing participant rows from the pre-insert check,
// reproducing the window where a concurrent join commits between the check
// and the insert so only the unique index stands in the way.
type blindRepo struct {
	participationdomain.Repository
}

func (r *blindRepo) FindParticipant(ctx context.Context, db *gorm.DB, eventID, userID snowflake.ID) (*participationdomain.EventParticipant, error) {
	return nil, nil
}

func newService(t *testing.T, db *gorm.DB, checkout paymentdomain.CheckoutClient) participationdomain.Service {
	t.Helper()
	return newServiceWithRepo(t, db, checkout, participationrepo.Provide())
}

func newServiceWithRepo(t *testing.T, db *gorm.DB, checkout paymentdomain.CheckoutClient, repo participationdomain.Repository) participationdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(11)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	policy, err := config.NewBookingPolicyHolder(zap.NewNop())
	if err != nil {
		t.Fatalf("policy holder: %v", err)
	}

	return participationservice.New(participationservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repo,
		Checkout: checkout,
		Policy:   policy,
	})
}

func TestJoinCreatesPendingReservation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	checkout := &fakeCheckoutClient{}
	svc := newService(t, db, checkout)

	userID := seedUser(t, db, "alice@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 3, Fee: "25.00"})

	result, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(),
		UserID:  userID.String(),
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.PaymentURL == "" {
		t.Fatal("expected payment url")
	}

	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM event_participants WHERE event_id = %d AND user_id = %d AND status = 'PENDING'`,
		eventID, userID), 1)
	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM payments WHERE event_id = %d AND user_id = %d AND status = 'PENDING' AND provider_session_id <> ''`,
		eventID, userID), 1)

	if checkout.lastParams.AmountMinor != 2500 {
		t.Fatalf("expected amount 2500, got %d", checkout.lastParams.AmountMinor)
	}
	if checkout.lastParams.EventID != eventID || checkout.lastParams.UserID != userID {
		t.Fatal("checkout metadata does not match reservation")
	}
}

func TestJoinRejectsNonOpenEvent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeCheckoutClient{})

	userID := seedUser(t, db, "bob@example.com")
	fullEvent := seedEvent(t, db, seedEventOpts{Status: "FULL", Max: 3})
	cancelled := seedEvent(t, db, seedEventOpts{Status: "CANCELLED", Max: 3})

	for _, eventID := range []snowflake.ID{fullEvent, cancelled} {
		_, err := svc.Join(ctx, participationdomain.JoinRequest{
			EventID: eventID.String(),
			UserID:  userID.String(),
		})
		if !errors.Is(err, participationdomain.ErrEventNotOpen) {
			t.Fatalf("expected ErrEventNotOpen, got %v", err)
		}
	}
}

func TestJoinRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeCheckoutClient{})

	userID := seedUser(t, db, "carol@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 3})

	if _, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(), UserID: userID.String(),
	}); err != nil {
		t.Fatalf("first join: %v", err)
	}

	_, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(), UserID: userID.String(),
	})
	if !errors.Is(err, participationdomain.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestJoinLostRaceFallsBackToUniqueIndex(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newServiceWithRepo(t, db, &fakeCheckoutClient{}, &blindRepo{Repository: participationrepo.Provide()})

	userID := seedUser(t, db, "raced@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 3})
	seedParticipant(t, db, eventID, userID, "PENDING")

	_, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(), UserID: userID.String(),
	})
	if !errors.Is(err, participationdomain.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined from the unique index, got %v", err)
	}

	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM event_participants WHERE event_id = %d AND user_id = %d`,
		eventID, userID), 1)
	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM payments WHERE event_id = %d AND user_id = %d`,
		eventID, userID), 0)
}

func TestJoinRejectsWhenFull(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeCheckoutClient{})

	holder := seedUser(t, db, "holder@example.com")
	late := seedUser(t, db, "late@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 1})
	seedParticipant(t, db, eventID, holder, "JOINED")

	_, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(), UserID: late.String(),
	})
	if !errors.Is(err, participationdomain.ErrEventFull) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}
}

func TestJoinIgnoresPendingRowsForCapacity(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeCheckoutClient{})

	pendingUser := seedUser(t, db, "pending@example.com")
	joiner := seedUser(t, db, "joiner@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 1})
	seedParticipant(t, db, eventID, pendingUser, "PENDING")

	// Only confirmed participants consume capacity.
	if _, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(), UserID: joiner.String(),
	}); err != nil {
		t.Fatalf("join: %v", err)
	}
}

func TestJoinRevivesExpiredReservation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeCheckoutClient{})

	userID := seedUser(t, db, "retry@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 3})
	seedParticipant(t, db, eventID, userID, "EXPIRED")

	if _, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(), UserID: userID.String(),
	}); err != nil {
		t.Fatalf("join after expiry: %v", err)
	}

	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM event_participants WHERE event_id = %d AND user_id = %d`, eventID, userID), 1)
	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM event_participants WHERE event_id = %d AND user_id = %d AND status = 'PENDING'`,
		eventID, userID), 1)
}

func TestJoinUnknownUserAndEvent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeCheckoutClient{})

	userID := seedUser(t, db, "dave@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 3})

	_, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(), UserID: "999999999999",
	})
	if !errors.Is(err, participationdomain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	_, err = svc.Join(ctx, participationdomain.JoinRequest{
		EventID: "999999999999", UserID: userID.String(),
	})
	if !errors.Is(err, participationdomain.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestJoinCheckoutFailureLeavesPendingRows(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeCheckoutClient{fail: true})

	userID := seedUser(t, db, "erin@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 3})

	_, err := svc.Join(ctx, participationdomain.JoinRequest{
		EventID: eventID.String(), UserID: userID.String(),
	})
	if !errors.Is(err, participationdomain.ErrCheckoutUnavailable) {
		t.Fatalf("expected ErrCheckoutUnavailable, got %v", err)
	}

	// The reservation stays for the sweeper instead of being rolled back.
	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM event_participants WHERE event_id = %d AND status = 'PENDING'`, eventID), 1)
	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM payments WHERE event_id = %d AND status = 'PENDING'`, eventID), 1)
}

func TestExpireStaleSettlesOldReservations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, &fakeCheckoutClient{})

	staleUser := seedUser(t, db, "stale@example.com")
	freshUser := seedUser(t, db, "fresh@example.com")
	eventID := seedEvent(t, db, seedEventOpts{Status: "OPEN", Max: 5})

	seedParticipant(t, db, eventID, staleUser, "PENDING")
	seedPayment(t, db, eventID, staleUser, "PENDING", time.Now().UTC().Add(-2*time.Hour))

	seedParticipant(t, db, eventID, freshUser, "PENDING")
	seedPayment(t, db, eventID, freshUser, "PENDING", time.Now().UTC())

	expired, err := svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expire stale: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired, got %d", expired)
	}

	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM event_participants WHERE user_id = %d AND status = 'EXPIRED'`, staleUser), 1)
	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM payments WHERE user_id = %d AND status = 'UNPAID'`, staleUser), 1)
	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM event_participants WHERE user_id = %d AND status = 'PENDING'`, freshUser), 1)
	assertCount(t, db, fmt.Sprintf(
		`SELECT COUNT(1) FROM payments WHERE user_id = %d AND status = 'PENDING'`, freshUser), 1)
}
