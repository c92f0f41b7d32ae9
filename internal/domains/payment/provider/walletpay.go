package provider

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"estate/config"
	"estate/shared/constant"
	"estate/shared/failure"

	"github.com/rs/zerolog/log"
)

// walletPay integrates the mobile wallet's tokenized checkout. Every
// initiation performs a fresh token grant; the wallet invalidates tokens
// aggressively, so caching them across calls trades correctness for very
// little.
type walletPay struct {
	cfg    *config.Config
	client *http.Client
}

func NewWalletPay(cfg *config.Config) Strategy {
	timeout := time.Duration(cfg.Payment.WalletPay.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &walletPay{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *walletPay) Name() string {
	return NameWalletPay
}

type walletPayTokenResponse struct {
	IDToken    string `json:"id_token"`
	StatusCode string `json:"statusCode"`
	StatusMsg  string `json:"statusMessage"`
}

type walletPayCheckoutResponse struct {
	PaymentID         string `json:"paymentID"`
	WalletURL         string `json:"walletURL"`
	StatusCode        string `json:"statusCode"`
	StatusMsg         string `json:"statusMessage"`
	TransactionStatus string `json:"transactionStatus"`
	ErrorMessage      string `json:"errorMessage"`
}

func (w *walletPay) grantToken(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"app_key":    w.cfg.Payment.WalletPay.AppKey,
		"app_secret": w.cfg.Payment.WalletPay.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token grant payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Payment.WalletPay.BaseURL+"/tokenized/checkout/token/grant", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build token grant request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	req.Header.Set("username", w.cfg.Payment.WalletPay.Username)
	req.Header.Set("password", w.cfg.Payment.WalletPay.Password)

	body, err := w.do(req)
	if err != nil {
		return "", err
	}

	var token walletPayTokenResponse
	if err = json.Unmarshal(body, &token); err != nil || token.IDToken == "" {
		log.Error().Err(err).Str("provider", NameWalletPay).Msg("wallet token grant returned no token")

		return "", failure.ProviderUnavailable("wallet token grant failed") // nolint:wrapcheck
	}

	return token.IDToken, nil
}

func (w *walletPay) InitiatePayment(ctx context.Context, order PaymentOrder) (res InitiationResult, err error) {
	token, err := w.grantToken(ctx)
	if err != nil {
		return res, err
	}

	payload, err := json.Marshal(map[string]string{
		"mode":                  "0011",
		"amount":                order.Amount.StringFixed(2),
		"currency":              w.currency(order),
		"intent":                "sale",
		"merchantInvoiceNumber": order.BookingID,
		"callbackURL":           w.cfg.Payment.WalletPay.CallbackURL,
	})
	if err != nil {
		return res, fmt.Errorf("failed to marshal checkout payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Payment.WalletPay.BaseURL+"/tokenized/checkout/create", bytes.NewReader(payload))
	if err != nil {
		return res, fmt.Errorf("failed to build checkout request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	req.Header.Set(constant.RequestHeaderAuthorization, token)
	req.Header.Set("x-app-key", w.cfg.Payment.WalletPay.AppKey)

	body, err := w.do(req)
	if err != nil {
		return res, err
	}

	var checkout walletPayCheckoutResponse
	if err = json.Unmarshal(body, &checkout); err != nil {
		log.Error().Err(err).Str("provider", NameWalletPay).Msg("failed to decode checkout response")

		return res, failure.ProviderUnavailable("wallet returned an unreadable response") // nolint:wrapcheck
	}

	if checkout.StatusCode != "0000" || checkout.PaymentID == "" {
		log.Error().Str("statusCode", checkout.StatusCode).Str("statusMessage", checkout.StatusMsg).Msg("wallet checkout was rejected")

		return res, failure.ProviderUnavailable("wallet rejected the checkout") // nolint:wrapcheck
	}

	return InitiationResult{
		TransactionID: checkout.PaymentID,
		RedirectURL:   checkout.WalletURL,
		Raw:           string(body),
	}, nil
}

func (w *walletPay) VerifyPayment(ctx context.Context, transactionID string) bool {
	token, err := w.grantToken(ctx)
	if err != nil {
		log.Warn().Err(err).Str("transactionID", transactionID).Msg("wallet verification failed")

		return false
	}

	payload, err := json.Marshal(map[string]string{"paymentID": transactionID})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Payment.WalletPay.BaseURL+"/tokenized/checkout/payment/status", bytes.NewReader(payload))
	if err != nil {
		return false
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	req.Header.Set(constant.RequestHeaderAuthorization, token)
	req.Header.Set("x-app-key", w.cfg.Payment.WalletPay.AppKey)

	body, err := w.do(req)
	if err != nil {
		return false
	}

	var status walletPayCheckoutResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return false
	}

	return status.TransactionStatus == "Completed"
}

// VerifyWebhook compares the shared token header in constant time. The
// wallet does not sign payloads; possession of the token is the check.
func (w *walletPay) VerifyWebhook(header http.Header, payload []byte) error {
	token := header.Get(constant.RequestHeaderWebhookToken)
	if token == "" {
		return failure.SignatureInvalid("missing webhook token") // nolint:wrapcheck
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(w.cfg.Payment.WalletPay.WebhookToken)) != 1 {
		return failure.SignatureInvalid("webhook token mismatch") // nolint:wrapcheck
	}

	return nil
}

func (w *walletPay) ParseWebhook(payload []byte) (WebhookEvent, error) {
	var hook walletPayCheckoutResponse
	if err := json.Unmarshal(payload, &hook); err != nil {
		return WebhookEvent{}, failure.BadRequestFromString("unreadable webhook payload") // nolint:wrapcheck
	}

	event := WebhookEvent{TransactionID: hook.PaymentID}

	switch hook.TransactionStatus {
	case "Completed":
		event.Kind = EventPaymentSucceeded
	case "Failed", "Cancelled":
		event.Kind = EventPaymentFailed
		event.ErrorMessage = hook.ErrorMessage
	default:
		event.Kind = EventIgnored
	}

	return event, nil
}

func (w *walletPay) currency(order PaymentOrder) string {
	if order.Currency != "" {
		return order.Currency
	}

	return w.cfg.Payment.WalletPay.Currency
}

func (w *walletPay) do(req *http.Request) ([]byte, error) {
	resp, err := w.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("provider", NameWalletPay).Msg("wallet request failed")

		return nil, failure.ProviderUnavailable("wallet is unreachable") // nolint:wrapcheck
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.ProviderUnavailable("failed to read wallet response") // nolint:wrapcheck
	}

	if resp.StatusCode >= http.StatusBadRequest {
		log.Error().Int("status", resp.StatusCode).Str("provider", NameWalletPay).Msg("wallet rejected the request")

		return nil, failure.ProviderUnavailable("wallet rejected the request") // nolint:wrapcheck
	}

	return body, nil
}
