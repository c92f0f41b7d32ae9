package provider

//go:generate go run go.uber.org/mock/mockgen -source=./provider.go -destination=./mocks/provider_mock.go -package=mocks

import (
	"context"
	"net/http"

	"estate/config"
	"estate/shared/failure"

	"github.com/shopspring/decimal"
)

const (
	NameCardGate  = "cardgate"
	NameWalletPay = "walletpay"
)

var hundred = decimal.NewFromInt(100)

// EventKind classifies a webhook notification. Anything a provider sends
// outside the allow-list maps to EventIgnored and is acknowledged untouched.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
)

// PaymentOrder carries what a provider needs to start a checkout. Amounts
// are in major units; each provider converts to its own wire format.
type PaymentOrder struct {
	BookingID   string
	UserID      string
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// InitiationResult is the provider's answer to a checkout request.
type InitiationResult struct {
	TransactionID string
	RedirectURL   string
	Raw           string
}

// WebhookEvent is a provider notification normalized to provider-neutral
// shape.
type WebhookEvent struct {
	Kind          EventKind
	TransactionID string
	ErrorMessage  string
}

// Strategy is one payment provider integration.
type Strategy interface {
	Name() string
	InitiatePayment(ctx context.Context, order PaymentOrder) (InitiationResult, error)
	VerifyPayment(ctx context.Context, transactionID string) bool
	VerifyWebhook(header http.Header, payload []byte) error
	ParseWebhook(payload []byte) (WebhookEvent, error)
}

// Registry holds the closed set of providers configured at startup. Lookup
// is by name tag only; there is no dynamic registration.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	reg := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, strategy := range strategies {
		reg.strategies[strategy.Name()] = strategy
	}

	return reg
}

// NewDefaultRegistry wires up every provider the service ships with.
func NewDefaultRegistry(cfg *config.Config) *Registry {
	return NewRegistry(NewCardGate(cfg), NewWalletPay(cfg))
}

func (r *Registry) Get(name string) (Strategy, error) {
	strategy, ok := r.strategies[name]
	if !ok {
		return nil, failure.BadRequestFromString("unknown payment provider: " + name) // nolint:wrapcheck
	}

	return strategy, nil
}
