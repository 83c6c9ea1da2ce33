package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gatherly/gatherly/internal/config"
	paymentdomain "github.com/gatherly/gatherly/internal/payment/domain"
)

type checkoutSessionResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CheckoutClient creates Stripe hosted Checkout sessions over the
// form-encoded REST API.
type CheckoutClient struct {
	apiKey     string
	successURL string
	cancelURL  string
	client     *http.Client
}

func NewCheckoutClient(cfg config.Config) paymentdomain.CheckoutClient {
	return &CheckoutClient{
		apiKey:     strings.TrimSpace(cfg.StripeSecretKey),
		successURL: strings.TrimSpace(cfg.CheckoutSuccessURL),
		cancelURL:  strings.TrimSpace(cfg.CheckoutCancelURL),
		client:     &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *CheckoutClient) CreateSession(ctx context.Context, params paymentdomain.CreateSessionParams) (*paymentdomain.CheckoutSession, error) {
	if c.apiKey == "" {
		return nil, errors.New("stripe_api_key_missing")
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", c.successURL)
	values.Set("cancel_url", c.cancelURL)
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountMinor, 10))
	values.Set("line_items[0][price_data][product_data][name]", params.Title)
	values.Set("metadata[payment_id]", params.PaymentID.String())
	values.Set("metadata[user_id]", params.UserID.String())
	values.Set("metadata[event_id]", params.EventID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.stripe.com/v1/checkout/sessions",
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// Retrying a join that failed after insert reuses the payment id, so
	// Stripe collapses duplicate session creation.
	req.Header.Set("Idempotency-Key", "payment:"+params.PaymentID.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return nil, errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return nil, errors.New(message)
	}

	var session checkoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.ID == "" || session.URL == "" {
		return nil, errors.New("stripe_response_invalid")
	}

	return &paymentdomain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}
