package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	paymentdomain "github.com/gatherly/gatherly/internal/payment/domain"
)

// Signature verification failure is the only outcome answered with a non-2xx.
// Everything else, internal failures included, is acknowledged; a failed
// settlement leaves its delivery row unprocessed and an error log as the
// recovery trail.
func (s *Server) handlePaymentWebhook(c *gin.Context) {
	// The signature covers the raw bytes, so the body is read before any
	// JSON decoding.
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.log.Warn("webhook body read failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	_, err = s.paymentSvc.IngestWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
				"type":    "invalid_signature",
				"message": "webhook signature verification failed",
			}})
			return
		case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed),
			errors.Is(err, paymentdomain.ErrEventIgnored),
			errors.Is(err, paymentdomain.ErrMissingMetadata),
			errors.Is(err, paymentdomain.ErrInvalidPayload):
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		default:
			s.log.Error("webhook settlement failed", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDownloadReceipt(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	pdf, err := s.paymentSvc.Receipt(c.Request.Context(), c.Param("id"), identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+c.Param("id")+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
