package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"estate/config"
	"estate/shared/constant"
	"estate/shared/failure"

	"github.com/rs/zerolog/log"
)

// cardGate talks to the card gateway's payment-intent API. Checkouts are
// created server side and the customer finishes on the gateway's hosted
// page; settlement lands back on the webhook.
type cardGate struct {
	cfg    *config.Config
	client *http.Client
}

func NewCardGate(cfg *config.Config) Strategy {
	timeout := time.Duration(cfg.Payment.CardGate.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &cardGate{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *cardGate) Name() string {
	return NameCardGate
}

type cardGateIntent struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url"`
	LastError   struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (c *cardGate) InitiatePayment(ctx context.Context, order PaymentOrder) (res InitiationResult, err error) {
	// The gateway wants amounts in minor units.
	cents := order.Amount.Mul(hundred).IntPart()

	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", cents))
	form.Set("currency", strings.ToLower(c.currency(order)))
	form.Set("description", order.Description)
	form.Set("metadata[booking_id]", order.BookingID)
	form.Set("success_url", c.cfg.Payment.CardGate.SuccessURL)
	form.Set("cancel_url", c.cfg.Payment.CardGate.CancelURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Payment.CardGate.BaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return res, fmt.Errorf("failed to build payment intent request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeFormURLEncoded)
	req.Header.Set(constant.RequestHeaderAuthorization, "Bearer "+c.cfg.Payment.CardGate.SecretKey)

	body, err := c.do(req)
	if err != nil {
		return res, err
	}

	var intent cardGateIntent
	if err = json.Unmarshal(body, &intent); err != nil {
		log.Error().Err(err).Str("provider", NameCardGate).Msg("failed to decode payment intent response")

		return res, failure.ProviderUnavailable("card gateway returned an unreadable response") // nolint:wrapcheck
	}

	if intent.ID == "" {
		return res, failure.ProviderUnavailable("card gateway did not return a payment intent") // nolint:wrapcheck
	}

	return InitiationResult{
		TransactionID: intent.ID,
		RedirectURL:   intent.RedirectURL,
		Raw:           string(body),
	}, nil
}

func (c *cardGate) VerifyPayment(ctx context.Context, transactionID string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Payment.CardGate.BaseURL+"/v1/payment_intents/"+transactionID, nil)
	if err != nil {
		return false
	}

	req.Header.Set(constant.RequestHeaderAuthorization, "Bearer "+c.cfg.Payment.CardGate.SecretKey)

	body, err := c.do(req)
	if err != nil {
		log.Warn().Err(err).Str("transactionID", transactionID).Msg("card gateway verification failed")

		return false
	}

	var intent cardGateIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return false
	}

	return intent.Status == "succeeded"
}

// VerifyWebhook checks the gateway's signature header, shaped as
// "t=<unix>,v1=<hex>", where v1 is HMAC-SHA256 over "<t>.<payload>" keyed
// with the webhook secret.
func (c *cardGate) VerifyWebhook(header http.Header, payload []byte) error {
	signature := header.Get(constant.RequestHeaderSignature)
	if signature == "" {
		return failure.SignatureInvalid("missing webhook signature") // nolint:wrapcheck
	}

	var timestamp, expected string

	for _, part := range strings.Split(signature, ",") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}

		switch key {
		case "t":
			timestamp = value
		case "v1":
			expected = value
		}
	}

	if timestamp == "" || expected == "" {
		return failure.SignatureInvalid("malformed webhook signature") // nolint:wrapcheck
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.Payment.CardGate.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)

	computed := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(computed), []byte(expected)) {
		return failure.SignatureInvalid("webhook signature mismatch") // nolint:wrapcheck
	}

	return nil
}

type cardGateWebhook struct {
	Type string `json:"type"`
	Data struct {
		Object cardGateIntent `json:"object"`
	} `json:"data"`
}

func (c *cardGate) ParseWebhook(payload []byte) (WebhookEvent, error) {
	var hook cardGateWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return WebhookEvent{}, failure.BadRequestFromString("unreadable webhook payload") // nolint:wrapcheck
	}

	event := WebhookEvent{TransactionID: hook.Data.Object.ID}

	switch hook.Type {
	case "payment_intent.succeeded":
		event.Kind = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		event.Kind = EventPaymentFailed
		event.ErrorMessage = hook.Data.Object.LastError.Message
	default:
		event.Kind = EventIgnored
	}

	return event, nil
}

func (c *cardGate) currency(order PaymentOrder) string {
	if order.Currency != "" {
		return order.Currency
	}

	return c.cfg.Payment.CardGate.Currency
}

func (c *cardGate) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("provider", NameCardGate).Msg("card gateway request failed")

		return nil, failure.ProviderUnavailable("card gateway is unreachable") // nolint:wrapcheck
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.ProviderUnavailable("failed to read card gateway response") // nolint:wrapcheck
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, failure.ProviderUnavailable("card gateway returned an error") // nolint:wrapcheck
	}

	if resp.StatusCode >= http.StatusBadRequest {
		log.Error().Int("status", resp.StatusCode).Str("provider", NameCardGate).Msg("card gateway rejected the request")

		return nil, failure.ProviderUnavailable("card gateway rejected the request") // nolint:wrapcheck
	}

	return body, nil
}
