package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"estate/config"
	"estate/infras/otel/mocks"
	bookingMocks "estate/internal/domains/booking/mocks"
	bookingModel "estate/internal/domains/booking/model"
	paymentMocks "estate/internal/domains/payment/mocks"
	"estate/internal/domains/payment/model"
	"estate/internal/domains/payment/model/dto"
	"estate/internal/domains/payment/provider"
	providerMocks "estate/internal/domains/payment/provider/mocks"
	"estate/internal/domains/payment/service"
	"estate/internal/events"
	eventMocks "estate/internal/events/mocks"
	cacheMocks "estate/shared/cache/mocks"
	"estate/shared/constant"
	"estate/shared/failure"
)

const (
	testBookingID = "22222222-2222-2222-2222-222222222222"
	testPaymentID = "33333333-3333-3333-3333-333333333333"
	testUserID    = "test-user-id"
)

type testMocks struct {
	repo      *paymentMocks.MockPayment
	bookings  *bookingMocks.MockBookingService
	strategy  *providerMocks.MockStrategy
	publisher *eventMocks.MockPublisher
}

func newService(t *testing.T) (service.Payment, testMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockRepo := paymentMocks.NewMockPayment(ctrl)
	mockBookings := bookingMocks.NewMockBookingService(ctrl)
	mockStrategy := providerMocks.NewMockStrategy(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockPublisher := eventMocks.NewMockPublisher(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Payment.CardGate.Currency = "USD"
	cfg.Payment.WalletPay.Currency = "BDT"

	mockStrategy.EXPECT().Name().Return(provider.NameCardGate).AnyTimes()

	mockCache.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()
	mockCache.EXPECT().
		Delete(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()
	mockCache.EXPECT().
		Clear(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()
	mockCache.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("cache miss")).
		AnyTimes()

	registry := provider.NewRegistry(mockStrategy)

	svc := service.New(mockRepo, mockBookings, registry, cfg, mockCache, mockOtel, mockPublisher)

	return svc, testMocks{
		repo:      mockRepo,
		bookings:  mockBookings,
		strategy:  mockStrategy,
		publisher: mockPublisher,
	}
}

func userContext(userID string) context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, userID)
}

func TestPaymentService_Initiate(t *testing.T) {
	pendingBooking := bookingModel.Booking{
		ID:          testBookingID,
		UserID:      testUserID,
		Status:      bookingModel.StatusPending,
		TotalAmount: decimal.NewFromInt(90000),
	}

	req := dto.InitiatePaymentRequest{
		BookingID: testBookingID,
		Provider:  provider.NameCardGate,
	}

	tests := []struct {
		name      string
		req       dto.InitiatePaymentRequest
		userID    string
		setupMock func(m testMocks)
		wantErr   bool
		wantCode  int
	}{
		{
			name:   "successful initiation",
			req:    req,
			userID: testUserID,
			setupMock: func(m testMocks) {
				m.bookings.EXPECT().
					Find(gomock.Any(), testBookingID).
					Return(pendingBooking, nil)

				m.strategy.EXPECT().
					InitiatePayment(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, order provider.PaymentOrder) (provider.InitiationResult, error) {
						assert.Equal(t, testBookingID, order.BookingID)
						assert.Equal(t, "USD", order.Currency)
						assert.True(t, order.Amount.Equal(decimal.NewFromInt(90000)))

						return provider.InitiationResult{
							TransactionID: "pi_123",
							RedirectURL:   "https://gate.example/pay/pi_123",
							Raw:           `{"id":"pi_123"}`,
						}, nil
					})

				m.repo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, payment model.Payment) error {
						assert.Equal(t, "pi_123", payment.TransactionID)
						assert.Equal(t, model.StatusPending, payment.Status)
						assert.Equal(t, provider.NameCardGate, payment.Provider)

						return nil
					})
			},
		},
		{
			name:   "already paid booking is rejected",
			req:    req,
			userID: testUserID,
			setupMock: func(m testMocks) {
				paid := pendingBooking
				paid.Status = bookingModel.StatusPaid

				m.bookings.EXPECT().
					Find(gomock.Any(), testBookingID).
					Return(paid, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name:   "canceled booking is rejected",
			req:    req,
			userID: testUserID,
			setupMock: func(m testMocks) {
				canceled := pendingBooking
				canceled.Status = bookingModel.StatusCanceled

				m.bookings.EXPECT().
					Find(gomock.Any(), testBookingID).
					Return(canceled, nil)
			},
			wantErr:  true,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:   "someone else's booking is forbidden",
			req:    req,
			userID: "another-user-id",
			setupMock: func(m testMocks) {
				m.bookings.EXPECT().
					Find(gomock.Any(), testBookingID).
					Return(pendingBooking, nil)
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name: "unknown provider",
			req: dto.InitiatePaymentRequest{
				BookingID: testBookingID,
				Provider:  "carrier-pigeon",
			},
			userID: testUserID,
			setupMock: func(m testMocks) {
				m.bookings.EXPECT().
					Find(gomock.Any(), testBookingID).
					Return(pendingBooking, nil)
			},
			wantErr:  true,
			wantCode: http.StatusBadRequest,
		},
		{
			name:   "no payment row persisted when provider fails",
			req:    req,
			userID: testUserID,
			setupMock: func(m testMocks) {
				m.bookings.EXPECT().
					Find(gomock.Any(), testBookingID).
					Return(pendingBooking, nil)

				m.strategy.EXPECT().
					InitiatePayment(gomock.Any(), gomock.Any()).
					Return(provider.InitiationResult{}, failure.ProviderUnavailable("payment gateway unreachable"))
			},
			wantErr:  true,
			wantCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			tt.setupMock(m)

			res, err := svc.Initiate(userContext(tt.userID), tt.req)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "pi_123", res.TransactionID)
			assert.Equal(t, "https://gate.example/pay/pi_123", res.RedirectURL)
			assert.Equal(t, provider.NameCardGate, res.Provider)
		})
	}
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	payload := []byte(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)
	header := http.Header{}

	pendingPayment := model.Payment{
		ID:            testPaymentID,
		BookingID:     testBookingID,
		Provider:      provider.NameCardGate,
		TransactionID: "pi_123",
		Status:        model.StatusPending,
	}

	tests := []struct {
		name      string
		setupMock func(m testMocks)
		wantErr   bool
		wantCode  int
	}{
		{
			name: "successful payment updates payment and booking together",
			setupMock: func(m testMocks) {
				m.strategy.EXPECT().VerifyWebhook(header, payload).Return(nil)
				m.strategy.EXPECT().
					ParseWebhook(payload).
					Return(provider.WebhookEvent{Kind: provider.EventPaymentSucceeded, TransactionID: "pi_123"}, nil)

				m.repo.EXPECT().
					GetByTransactionID(gomock.Any(), "pi_123").
					Return(pendingPayment, nil)

				m.repo.EXPECT().
					WithTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fn func(tx *sqlx.Tx) error) error {
						return fn(nil)
					})

				m.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ any) error {
						assert.Equal(t, model.StatusCompleted, fields[model.FieldStatus])
						assert.Equal(t, string(payload), fields[model.FieldRawResponse])

						return nil
					})

				m.bookings.EXPECT().
					MarkPaidTx(gomock.Any(), gomock.Any(), testBookingID).
					Return(nil)

				m.publisher.EXPECT().
					PublishPayment(gomock.Any(), events.TopicPaymentCompleted, gomock.Any())
			},
		},
		{
			name: "booking update failure rolls the payment back",
			setupMock: func(m testMocks) {
				m.strategy.EXPECT().VerifyWebhook(header, payload).Return(nil)
				m.strategy.EXPECT().
					ParseWebhook(payload).
					Return(provider.WebhookEvent{Kind: provider.EventPaymentSucceeded, TransactionID: "pi_123"}, nil)

				m.repo.EXPECT().
					GetByTransactionID(gomock.Any(), "pi_123").
					Return(pendingPayment, nil)

				m.repo.EXPECT().
					WithTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fn func(tx *sqlx.Tx) error) error {
						return fn(nil)
					})

				m.repo.EXPECT().
					UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				m.bookings.EXPECT().
					MarkPaidTx(gomock.Any(), gomock.Any(), testBookingID).
					Return(errors.New("connection reset"))
			},
			wantErr:  true,
			wantCode: http.StatusInternalServerError,
		},
		{
			name: "invalid signature leaves everything untouched",
			setupMock: func(m testMocks) {
				m.strategy.EXPECT().
					VerifyWebhook(header, payload).
					Return(failure.SignatureInvalid("invalid webhook signature"))
			},
			wantErr:  true,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown transaction is acknowledged",
			setupMock: func(m testMocks) {
				m.strategy.EXPECT().VerifyWebhook(header, payload).Return(nil)
				m.strategy.EXPECT().
					ParseWebhook(payload).
					Return(provider.WebhookEvent{Kind: provider.EventPaymentSucceeded, TransactionID: "pi_unknown"}, nil)

				m.repo.EXPECT().
					GetByTransactionID(gomock.Any(), "pi_unknown").
					Return(model.Payment{}, nil)
			},
		},
		{
			name: "replay of a completed payment is a no-op",
			setupMock: func(m testMocks) {
				m.strategy.EXPECT().VerifyWebhook(header, payload).Return(nil)
				m.strategy.EXPECT().
					ParseWebhook(payload).
					Return(provider.WebhookEvent{Kind: provider.EventPaymentSucceeded, TransactionID: "pi_123"}, nil)

				completed := pendingPayment
				completed.Status = model.StatusCompleted

				m.repo.EXPECT().
					GetByTransactionID(gomock.Any(), "pi_123").
					Return(completed, nil)
			},
		},
		{
			name: "ignored event is acknowledged without lookup",
			setupMock: func(m testMocks) {
				m.strategy.EXPECT().VerifyWebhook(header, payload).Return(nil)
				m.strategy.EXPECT().
					ParseWebhook(payload).
					Return(provider.WebhookEvent{Kind: provider.EventIgnored, TransactionID: "pi_123"}, nil)
			},
		},
		{
			name: "failed payment keeps the booking untouched",
			setupMock: func(m testMocks) {
				m.strategy.EXPECT().VerifyWebhook(header, payload).Return(nil)
				m.strategy.EXPECT().
					ParseWebhook(payload).
					Return(provider.WebhookEvent{
						Kind:          provider.EventPaymentFailed,
						TransactionID: "pi_123",
						ErrorMessage:  "card declined",
					}, nil)

				m.repo.EXPECT().
					GetByTransactionID(gomock.Any(), "pi_123").
					Return(pendingPayment, nil)

				m.repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fields map[string]any, _ any) error {
						assert.Equal(t, model.StatusFailed, fields[model.FieldStatus])
						assert.Equal(t, "card declined", fields[model.FieldErrorMessage])

						return nil
					})

				m.publisher.EXPECT().
					PublishPayment(gomock.Any(), events.TopicPaymentFailed, gomock.Any())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			tt.setupMock(m)

			err := svc.HandleWebhook(context.Background(), provider.NameCardGate, header, payload)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestPaymentService_Verify(t *testing.T) {
	pendingPayment := model.Payment{
		ID:            testPaymentID,
		BookingID:     testBookingID,
		Provider:      provider.NameCardGate,
		TransactionID: "pi_123",
		Status:        model.StatusPending,
	}

	tests := []struct {
		name      string
		setupMock func(m testMocks)
		want      bool
	}{
		{
			name: "provider confirms the transaction",
			setupMock: func(m testMocks) {
				m.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(pendingPayment, nil)

				m.strategy.EXPECT().
					VerifyPayment(gomock.Any(), "pi_123").
					Return(true)
			},
			want: true,
		},
		{
			name: "completed payment short-circuits the provider call",
			setupMock: func(m testMocks) {
				completed := pendingPayment
				completed.Status = model.StatusCompleted

				m.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(completed, nil)
			},
			want: true,
		},
		{
			name: "provider outage degrades to false",
			setupMock: func(m testMocks) {
				m.repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(pendingPayment, nil)

				m.strategy.EXPECT().
					VerifyPayment(gomock.Any(), "pi_123").
					Return(false)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			tt.setupMock(m)

			ok, err := svc.Verify(userContext(testUserID), testPaymentID)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPaymentService_GetByBooking(t *testing.T) {
	booking := bookingModel.Booking{
		ID:     testBookingID,
		UserID: testUserID,
		Status: bookingModel.StatusPending,
	}

	t.Run("owner lists their booking payments", func(t *testing.T) {
		svc, m := newService(t)

		m.bookings.EXPECT().
			Find(gomock.Any(), testBookingID).
			Return(booking, nil)

		m.repo.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]model.Payment{
				{ID: testPaymentID, BookingID: testBookingID, Status: model.StatusFailed},
			}, nil)

		res, err := svc.GetByBooking(userContext(testUserID), testBookingID)

		assert.NoError(t, err)
		assert.Len(t, res.Payments, 1)
		assert.Equal(t, testPaymentID, res.Payments[0].ID)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		svc, m := newService(t)

		m.bookings.EXPECT().
			Find(gomock.Any(), testBookingID).
			Return(booking, nil)

		_, err := svc.GetByBooking(userContext("another-user-id"), testBookingID)

		assert.Error(t, err)
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})
}
