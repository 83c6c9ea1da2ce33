package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gatherly/gatherly/internal/config"
	eventdomain "github.com/gatherly/gatherly/internal/event/domain"
	"github.com/gatherly/gatherly/internal/participation/domain"
	paymentdomain "github.com/gatherly/gatherly/internal/payment/domain"
	pkgdb "github.com/gatherly/gatherly/pkg/db"
)

const sweepBatchSize = 200

// minorUnits converts the stored decimal fee to the provider's smallest
// currency unit.
var minorUnits = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Checkout paymentdomain.CheckoutClient
	Policy   *config.BookingPolicyHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	checkout paymentdomain.CheckoutClient
	policy   *config.BookingPolicyHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("participation.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		checkout: p.Checkout,
		policy:   p.Policy,
	}
}

func (s *Service) Join(ctx context.Context, req domain.JoinRequest) (*domain.JoinResult, error) {
	eventID, err := snowflake.ParseString(strings.TrimSpace(req.EventID))
	if err != nil || eventID == 0 {
		return nil, domain.ErrInvalidID
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidID
	}

	var (
		event   *eventdomain.Event
		payment domain.Payment
	)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// All capacity reads below happen behind the event row lock, so
		// two concurrent joins for the same event cannot both pass.
		if err := s.repo.TouchEvent(ctx, tx, eventID); err != nil {
			return err
		}

		exists, err := s.repo.UserExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrUserNotFound
		}

		event, err = s.repo.FindEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.ErrEventNotFound
		}
		if event.Status != eventdomain.StatusOpen {
			return domain.ErrEventNotOpen
		}

		existing, err := s.repo.FindParticipant(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != domain.ParticipantExpired {
			return domain.ErrAlreadyJoined
		}

		joined, err := s.repo.CountJoined(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if joined >= int64(event.MaxParticipants) {
			return domain.ErrEventFull
		}

		now := time.Now().UTC()
		if existing != nil {
			// An expired reservation is revived in place so the unique
			// (event, user) index keeps holding.
			if err := s.repo.ReviveParticipant(ctx, tx, existing.ID); err != nil {
				return err
			}
		} else {
			participant := domain.EventParticipant{
				ID:        s.genID.Generate(),
				EventID:   eventID,
				UserID:    userID,
				Status:    domain.ParticipantPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.InsertParticipant(ctx, tx, &participant); err != nil {
				return err
			}
		}

		payment = domain.Payment{
			ID:        s.genID.Generate(),
			EventID:   eventID,
			UserID:    userID,
			Amount:    event.Fee,
			Currency:  event.Currency,
			Status:    domain.PaymentPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.repo.InsertPayment(ctx, tx, &payment)
	})
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyJoined
		}
		return nil, err
	}

	// The checkout call happens outside the transaction so a slow provider
	// never holds the event lock.
	session, err := s.checkout.CreateSession(ctx, paymentdomain.CreateSessionParams{
		PaymentID:   payment.ID,
		UserID:      userID,
		EventID:     eventID,
		Title:       event.Title,
		AmountMinor: event.Fee.Mul(minorUnits).IntPart(),
		Currency:    event.Currency,
	})
	if err != nil {
		s.log.Error("checkout session creation failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("event_id", eventID.String()),
			zap.Error(err),
		)
		// The reservation stays PENDING and the sweeper reclaims it.
		return nil, domain.ErrCheckoutUnavailable
	}

	if err := s.repo.SetPaymentSession(ctx, s.db, payment.ID, session.ID); err != nil {
		return nil, err
	}

	s.log.Info("join reserved",
		zap.String("event_id", eventID.String()),
		zap.String("user_id", userID.String()),
		zap.String("payment_id", payment.ID.String()),
	)

	return &domain.JoinResult{PaymentURL: session.URL}, nil
}

func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	policy := s.policy.Current()
	cutoff := time.Now().UTC().Add(-policy.PendingPaymentTTL)

	stale, err := s.repo.ListStalePending(ctx, s.db, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, payment := range stale {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := s.repo.TouchEvent(ctx, tx, payment.EventID); err != nil {
				return err
			}
			// The payment transition is the guard: a settlement that landed
			// between the list and this transaction already moved it off
			// PENDING and the pair is left alone.
			moved, err := s.repo.MarkPaymentStatus(ctx, tx, payment.ID, domain.PaymentPending, domain.PaymentUnpaid)
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			participant, err := s.repo.FindParticipant(ctx, tx, payment.EventID, payment.UserID)
			if err != nil {
				return err
			}
			if participant == nil {
				return nil
			}
			if _, err := s.repo.ExpireParticipant(ctx, tx, participant.ID); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			s.log.Error("expire pending reservation failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			continue
		}
	}

	if expired > 0 {
		s.log.Info("expired stale reservations", zap.Int("count", expired))
	}
	return expired, nil
}
