package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	participationdomain "github.com/gatherly/gatherly/internal/participation/domain"
	"github.com/gatherly/gatherly/internal/payment/adapters/stripe"
	"github.com/gatherly/gatherly/internal/payment/domain"
	"github.com/gatherly/gatherly/internal/payment/receipt"
	"github.com/gatherly/gatherly/internal/payment/repository"
	pkgdb "github.com/gatherly/gatherly/pkg/db"
)

var webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatherly_payment_webhook_events_total",
	Help: "Payment webhook deliveries by outcome.",
}, []string{"outcome"})

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         repository.Repository
	Participants participationdomain.Repository
	Adapter      *stripe.Adapter
	Receipts     *receipt.Generator
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         repository.Repository
	participants participationdomain.Repository
	adapter      *stripe.Adapter
	receipts     *receipt.Generator
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		participants: p.Participants,
		adapter:      p.Adapter,
		receipts:     p.Receipts,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, payload []byte, signature string) (*domain.IngestResult, error) {
	if err := s.adapter.Verify(payload, signature); err != nil {
		webhookEvents.WithLabelValues("invalid_signature").Inc()
		return nil, err
	}

	session, err := s.adapter.Parse(payload)
	if err != nil {
		switch err {
		case domain.ErrEventIgnored:
			webhookEvents.WithLabelValues("ignored").Inc()
		case domain.ErrMissingMetadata:
			// A session without our metadata cannot be reconciled.
			// Acknowledged so the provider stops retrying.
			webhookEvents.WithLabelValues("missing_metadata").Inc()
			s.log.Warn("webhook session missing metadata")
		default:
			webhookEvents.WithLabelValues("invalid_payload").Inc()
		}
		return nil, err
	}

	record := domain.WebhookRecord{
		ID:              s.genID.Generate(),
		Provider:        stripe.Provider,
		ProviderEventID: session.EventID,
		EventType:       "checkout.session.completed",
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      time.Now().UTC(),
	}
	if err := s.repo.InsertRecord(ctx, s.db, &record); err != nil {
		if !pkgdb.IsDuplicateKeyErr(err) {
			return nil, err
		}
		existing, findErr := s.repo.FindRecord(ctx, s.db, stripe.Provider, session.EventID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil || existing.ProcessedAt != nil {
			webhookEvents.WithLabelValues("duplicate").Inc()
			return nil, domain.ErrEventAlreadyProcessed
		}
		// Previous attempt stored the delivery but crashed before
		// settling. Resume with the stored record.
		record = *existing
	}

	settled, err := s.settle(ctx, record.ID, session)
	if err != nil {
		webhookEvents.WithLabelValues("error").Inc()
		return nil, err
	}

	webhookEvents.WithLabelValues("processed").Inc()
	return &domain.IngestResult{
		EventID:   session.EventID,
		PaymentID: session.PaymentID,
		Settled:   settled,
	}, nil
}

// settle applies the payment outcome inside one transaction, behind the
// event row lock so it cannot race a concurrent join or sweep.
func (s *Service) settle(ctx context.Context, recordID snowflake.ID, session *domain.CompletedSession) (bool, error) {
	settled := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.participants.TouchEvent(ctx, tx, session.BookingID); err != nil {
			return err
		}

		payment, err := s.participants.FindPayment(ctx, tx, session.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			s.log.Warn("webhook references unknown payment",
				zap.String("payment_id", session.PaymentID.String()),
				zap.String("provider_event_id", session.EventID),
			)
			return s.repo.MarkProcessed(ctx, tx, recordID, time.Now().UTC())
		}

		if session.Paid {
			settled, err = s.settlePaid(ctx, tx, payment, session)
		} else {
			err = s.settleUnpaid(ctx, tx, payment)
		}
		if err != nil {
			return err
		}
		return s.repo.MarkProcessed(ctx, tx, recordID, time.Now().UTC())
	})
	return settled, err
}

func (s *Service) settlePaid(ctx context.Context, tx *gorm.DB, payment *participationdomain.Payment, session *domain.CompletedSession) (bool, error) {
	moved, err := s.participants.MarkPaymentStatus(ctx, tx, payment.ID,
		participationdomain.PaymentPending, participationdomain.PaymentPaid)
	if err != nil {
		return false, err
	}
	if !moved {
		// The sweeper beat the webhook. Record that the money actually
		// arrived; the participant stays expired and the payment is
		// flagged for a manual refund.
		late, err := s.participants.MarkPaymentStatus(ctx, tx, payment.ID,
			participationdomain.PaymentUnpaid, participationdomain.PaymentPaid)
		if err != nil {
			return false, err
		}
		if late {
			s.log.Warn("payment settled after reservation expired, refund required",
				zap.String("payment_id", payment.ID.String()),
				zap.String("user_id", payment.UserID.String()),
				zap.String("event_id", payment.EventID.String()),
			)
		}
		return false, nil
	}

	event, err := s.participants.FindEvent(ctx, tx, payment.EventID)
	if err != nil {
		return false, err
	}
	if event == nil {
		return false, nil
	}

	joined, err := s.participants.CountJoined(ctx, tx, payment.EventID)
	if err != nil {
		return false, err
	}
	if joined >= int64(event.MaxParticipants) {
		// Confirmed joins already reached capacity between reservation and
		// payment. The payment stays paid, the seat is not granted, and
		// the case is surfaced for a manual refund.
		s.log.Warn("payment confirmed but event is at capacity, refund required",
			zap.String("payment_id", payment.ID.String()),
			zap.String("user_id", payment.UserID.String()),
			zap.String("event_id", payment.EventID.String()),
		)
		return false, nil
	}

	now := time.Now().UTC()
	promoted, err := s.participants.MarkParticipantJoined(ctx, tx, payment.EventID, payment.UserID, now)
	if err != nil {
		return false, err
	}
	if !promoted {
		return false, nil
	}

	if joined+1 >= int64(event.MaxParticipants) {
		if err := s.participants.MarkEventFull(ctx, tx, payment.EventID); err != nil {
			return false, err
		}
	}

	s.log.Info("participant confirmed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("user_id", payment.UserID.String()),
		zap.String("event_id", payment.EventID.String()),
	)
	return true, nil
}

func (s *Service) Receipt(ctx context.Context, paymentID string, requester snowflake.ID) ([]byte, error) {
	id, err := snowflake.ParseString(paymentID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	details, err := s.repo.FindReceiptDetails(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	// Payments owned by other users look like missing payments so the
	// endpoint does not confirm their existence.
	if details == nil || details.UserID != requester {
		return nil, domain.ErrPaymentNotFound
	}
	if details.Status != string(participationdomain.PaymentPaid) {
		return nil, domain.ErrReceiptUnavailable
	}

	return s.receipts.Render(ctx, receipt.Data{
		ReceiptNumber: details.PaymentID.String(),
		DatePaid:      details.PaidAt.UTC().Format("Jan 2, 2006"),
		EventTitle:    details.EventTitle,
		EventDate:     details.EventDate.UTC().Format("Jan 2, 2006 15:04 MST"),
		EventLocation: details.EventLocation,
		HostName:      details.HostName,
		AttendeeName:  details.AttendeeName,
		AttendeeEmail: details.AttendeeEmail,
		Amount:        details.Amount.StringFixed(2) + " " + details.Currency,
	})
}

func (s *Service) settleUnpaid(ctx context.Context, tx *gorm.DB, payment *participationdomain.Payment) error {
	// The participant stays pending; the user may still complete a new
	// checkout before the sweeper reclaims the slot.
	_, err := s.participants.MarkPaymentStatus(ctx, tx, payment.ID,
		participationdomain.PaymentPending, participationdomain.PaymentUnpaid)
	return err
}
