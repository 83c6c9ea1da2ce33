// Package stripe implements the payment-provider boundary against the
// Stripe REST API: hosted Checkout session creation and webhook
// verification and parsing.
package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"

	paymentdomain "github.com/gatherly/gatherly/internal/payment/domain"
)

const Provider = "stripe"

type Adapter struct {
	webhookSecret string
}

func NewAdapter(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

// Verify checks the Stripe-Signature header against the raw request body.
// The signature covers the exact bytes Stripe sent, so the body must not
// have been re-serialized before this call.
func (a *Adapter) Verify(payload []byte, sigHeader string) error {
	sigHeader = strings.TrimSpace(sigHeader)
	if a.webhookSecret == "" || sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, ok := parseSignatureHeader(sigHeader)
	if !ok {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

// Parse extracts the completed checkout session from a webhook payload.
// Event types other than checkout.session.completed return ErrEventIgnored.
func (a *Adapter) Parse(payload []byte) (*paymentdomain.CompletedSession, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	if strings.TrimSpace(event.Type) != "checkout.session.completed" {
		return nil, paymentdomain.ErrEventIgnored
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	paymentID, err := parseMetadataID(session.Metadata, "payment_id")
	if err != nil {
		return nil, err
	}
	userID, err := parseMetadataID(session.Metadata, "user_id")
	if err != nil {
		return nil, err
	}
	bookingID, err := parseMetadataID(session.Metadata, "event_id")
	if err != nil {
		return nil, err
	}

	return &paymentdomain.CompletedSession{
		EventID:   event.ID,
		SessionID: session.ID,
		Paid:      strings.TrimSpace(session.PaymentStatus) == "paid",
		PaymentID: paymentID,
		UserID:    userID,
		BookingID: bookingID,
	}, nil
}

type stripeEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID            string         `json:"id"`
	PaymentStatus string         `json:"payment_status"`
	Metadata      map[string]any `json:"metadata"`
}

func parseSignatureHeader(header string) (string, []string, bool) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, false
	}
	return timestamp, signatures, true
}

func parseMetadataID(metadata map[string]any, key string) (snowflake.ID, error) {
	raw := readMetadataValue(metadata, key)
	if raw == "" {
		return 0, paymentdomain.ErrMissingMetadata
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, paymentdomain.ErrMissingMetadata
	}
	return id, nil
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}
