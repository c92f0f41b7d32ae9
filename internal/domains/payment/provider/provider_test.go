package provider_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate/config"
	"estate/internal/domains/payment/provider"
	"estate/shared/constant"
	"estate/shared/failure"
)

func cardGateConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Payment.CardGate.BaseURL = baseURL
	cfg.Payment.CardGate.SecretKey = "sk_test_secret"
	cfg.Payment.CardGate.WebhookSecret = "whsec_test"
	cfg.Payment.CardGate.Currency = "USD"
	cfg.Payment.CardGate.TimeoutSeconds = 5

	return cfg
}

func walletPayConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Payment.WalletPay.BaseURL = baseURL
	cfg.Payment.WalletPay.AppKey = "test-app-key"
	cfg.Payment.WalletPay.AppSecret = "test-app-secret"
	cfg.Payment.WalletPay.Username = "test-user"
	cfg.Payment.WalletPay.Password = "test-pass"
	cfg.Payment.WalletPay.WebhookToken = "shared-token"
	cfg.Payment.WalletPay.Currency = "BDT"
	cfg.Payment.WalletPay.TimeoutSeconds = 5

	return cfg
}

func signCardGate(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)

	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestRegistry_Get(t *testing.T) {
	cfg := cardGateConfig("http://localhost")

	registry := provider.NewRegistry(provider.NewCardGate(cfg), provider.NewWalletPay(cfg))

	strategy, err := registry.Get(provider.NameCardGate)
	assert.NoError(t, err)
	assert.Equal(t, provider.NameCardGate, strategy.Name())

	strategy, err = registry.Get(provider.NameWalletPay)
	assert.NoError(t, err)
	assert.Equal(t, provider.NameWalletPay, strategy.Name())

	_, err = registry.Get("carrier-pigeon")
	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
}

func TestCardGate_InitiatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get(constant.RequestHeaderAuthorization))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "9000000", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "booking-id", r.PostForm.Get("metadata[booking_id]"))

		fmt.Fprint(w, `{"id":"pi_123","status":"requires_action","redirect_url":"https://gate.example/pay/pi_123"}`)
	}))
	defer server.Close()

	gate := provider.NewCardGate(cardGateConfig(server.URL))

	res, err := gate.InitiatePayment(context.Background(), provider.PaymentOrder{
		BookingID: "booking-id",
		Amount:    decimal.NewFromInt(90000),
	})

	assert.NoError(t, err)
	assert.Equal(t, "pi_123", res.TransactionID)
	assert.Equal(t, "https://gate.example/pay/pi_123", res.RedirectURL)
	assert.NotEmpty(t, res.Raw)
}

func TestCardGate_InitiatePayment_GatewayDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gate := provider.NewCardGate(cardGateConfig(server.URL))

	_, err := gate.InitiatePayment(context.Background(), provider.PaymentOrder{
		BookingID: "booking-id",
		Amount:    decimal.NewFromInt(90000),
	})

	assert.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, failure.GetCode(err))
}

func TestCardGate_VerifyWebhook(t *testing.T) {
	gate := provider.NewCardGate(cardGateConfig("http://localhost"))
	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)

	tests := []struct {
		name      string
		signature string
		wantErr   bool
	}{
		{
			name:      "valid signature",
			signature: signCardGate("whsec_test", "1700000000", payload),
		},
		{
			name:      "wrong secret",
			signature: signCardGate("whsec_other", "1700000000", payload),
			wantErr:   true,
		},
		{
			name:      "missing signature",
			signature: "",
			wantErr:   true,
		},
		{
			name:      "malformed signature",
			signature: "v1only",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.signature != "" {
				header.Set(constant.RequestHeaderSignature, tt.signature)
			}

			err := gate.VerifyWebhook(header, payload)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCardGate_ParseWebhook(t *testing.T) {
	gate := provider.NewCardGate(cardGateConfig("http://localhost"))

	tests := []struct {
		name     string
		payload  string
		wantKind provider.EventKind
		wantTx   string
		wantMsg  string
	}{
		{
			name:     "succeeded",
			payload:  `{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`,
			wantKind: provider.EventPaymentSucceeded,
			wantTx:   "pi_123",
		},
		{
			name:     "failed carries the error message",
			payload:  `{"type":"payment_intent.payment_failed","data":{"object":{"id":"pi_123","last_payment_error":{"message":"card declined"}}}}`,
			wantKind: provider.EventPaymentFailed,
			wantTx:   "pi_123",
			wantMsg:  "card declined",
		},
		{
			name:     "unlisted event is ignored",
			payload:  `{"type":"charge.refund.updated","data":{"object":{"id":"pi_123"}}}`,
			wantKind: provider.EventIgnored,
			wantTx:   "pi_123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := gate.ParseWebhook([]byte(tt.payload))

			assert.NoError(t, err)
			assert.Equal(t, tt.wantKind, event.Kind)
			assert.Equal(t, tt.wantTx, event.TransactionID)
			assert.Equal(t, tt.wantMsg, event.ErrorMessage)
		})
	}
}

func TestWalletPay_InitiatePayment(t *testing.T) {
	var tokenGrants int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokenized/checkout/token/grant":
			tokenGrants++

			assert.Equal(t, "test-user", r.Header.Get("username"))
			assert.Equal(t, "test-pass", r.Header.Get("password"))

			fmt.Fprint(w, `{"id_token":"token-abc","statusCode":"0000"}`)
		case "/tokenized/checkout/create":
			assert.Equal(t, "token-abc", r.Header.Get(constant.RequestHeaderAuthorization))
			assert.Equal(t, "test-app-key", r.Header.Get("x-app-key"))

			fmt.Fprint(w, `{"paymentID":"TR001","walletURL":"https://wallet.example/TR001","statusCode":"0000"}`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	wallet := provider.NewWalletPay(walletPayConfig(server.URL))

	res, err := wallet.InitiatePayment(context.Background(), provider.PaymentOrder{
		BookingID: "booking-id",
		Amount:    decimal.NewFromInt(90000),
	})

	assert.NoError(t, err)
	assert.Equal(t, "TR001", res.TransactionID)
	assert.Equal(t, "https://wallet.example/TR001", res.RedirectURL)

	// A fresh grant per initiation, never reused across calls.
	assert.Equal(t, 1, tokenGrants)

	_, err = wallet.InitiatePayment(context.Background(), provider.PaymentOrder{
		BookingID: "booking-id-2",
		Amount:    decimal.NewFromInt(1000),
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, tokenGrants)
}

func TestWalletPay_InitiatePayment_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokenized/checkout/token/grant":
			fmt.Fprint(w, `{"id_token":"token-abc","statusCode":"0000"}`)
		default:
			fmt.Fprint(w, `{"statusCode":"2054","statusMessage":"Invalid amount"}`)
		}
	}))
	defer server.Close()

	wallet := provider.NewWalletPay(walletPayConfig(server.URL))

	_, err := wallet.InitiatePayment(context.Background(), provider.PaymentOrder{
		BookingID: "booking-id",
		Amount:    decimal.NewFromInt(-5),
	})

	assert.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, failure.GetCode(err))
}

func TestWalletPay_VerifyWebhook(t *testing.T) {
	wallet := provider.NewWalletPay(walletPayConfig("http://localhost"))

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid token", token: "shared-token"},
		{name: "wrong token", token: "stolen-token", wantErr: true},
		{name: "missing token", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.token != "" {
				header.Set(constant.RequestHeaderWebhookToken, tt.token)
			}

			err := wallet.VerifyWebhook(header, []byte(`{}`))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWalletPay_ParseWebhook(t *testing.T) {
	wallet := provider.NewWalletPay(walletPayConfig("http://localhost"))

	tests := []struct {
		name     string
		payload  string
		wantKind provider.EventKind
		wantMsg  string
	}{
		{
			name:     "completed",
			payload:  `{"paymentID":"TR001","transactionStatus":"Completed"}`,
			wantKind: provider.EventPaymentSucceeded,
		},
		{
			name:     "failed",
			payload:  `{"paymentID":"TR001","transactionStatus":"Failed","errorMessage":"insufficient balance"}`,
			wantKind: provider.EventPaymentFailed,
			wantMsg:  "insufficient balance",
		},
		{
			name:     "initiated is ignored",
			payload:  `{"paymentID":"TR001","transactionStatus":"Initiated"}`,
			wantKind: provider.EventIgnored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := wallet.ParseWebhook([]byte(tt.payload))

			assert.NoError(t, err)
			assert.Equal(t, tt.wantKind, event.Kind)
			assert.Equal(t, "TR001", event.TransactionID)
			assert.Equal(t, tt.wantMsg, event.ErrorMessage)
		})
	}
}
