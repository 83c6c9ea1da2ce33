package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	paymentdomain "github.com/gatherly/gatherly/internal/payment/domain"
)

type stubPaymentService struct {
	err error
}

func (s *stubPaymentService) IngestWebhook(context.Context, []byte, string) (*paymentdomain.IngestResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &paymentdomain.IngestResult{Settled: true}, nil
}

func (s *stubPaymentService) Receipt(context.Context, string, snowflake.ID) ([]byte, error) {
	return nil, paymentdomain.ErrPaymentNotFound
}

func webhookRequest(t *testing.T, svc paymentdomain.Service, body *bytes.Reader) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook", body)

	s := &Server{log: zap.NewNop(), paymentSvc: svc}
	s.handlePaymentWebhook(c)
	return w
}

func TestWebhookAcknowledgesSettlementFailure(t *testing.T) {
	w := webhookRequest(t,
		&stubPaymentService{err: errors.New("connection reset by peer")},
		bytes.NewReader([]byte(`{}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for an internal failure, got %d", w.Code)
	}
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	w := webhookRequest(t,
		&stubPaymentService{err: paymentdomain.ErrInvalidSignature},
		bytes.NewReader([]byte(`{}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad signature, got %d", w.Code)
	}
}

func TestWebhookAcknowledgesUnusableDeliveries(t *testing.T) {
	for _, err := range []error{
		paymentdomain.ErrEventAlreadyProcessed,
		paymentdomain.ErrEventIgnored,
		paymentdomain.ErrMissingMetadata,
		paymentdomain.ErrInvalidPayload,
	} {
		w := webhookRequest(t, &stubPaymentService{err: err}, bytes.NewReader([]byte(`{}`)))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for %v, got %d", err, w.Code)
		}
	}
}
