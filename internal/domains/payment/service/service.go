package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Payment=MockPaymentService

import (
	"context"
	"fmt"
	"net/http"

	"estate/config"
	"estate/infras/otel"
	bookingModel "estate/internal/domains/booking/model"
	bookingService "estate/internal/domains/booking/service"
	"estate/internal/domains/payment/model"
	"estate/internal/domains/payment/model/dto"
	"estate/internal/domains/payment/provider"
	"estate/internal/domains/payment/repository"
	"estate/internal/events"
	"estate/shared"
	"estate/shared/cache"
	"estate/shared/constant"
	gDto "estate/shared/dto"
	"estate/shared/failure"
	"estate/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetPayment         = "payment:get"
	cacheGetBookingPayments = "payment:booking"
)

type Payment interface {
	Initiate(ctx context.Context, req dto.InitiatePaymentRequest) (dto.InitiatePaymentResponse, error)
	Get(ctx context.Context, id string) (dto.PaymentResponse, error)
	GetByBooking(ctx context.Context, bookingID string) (dto.GetPaymentsResponse, error)
	Verify(ctx context.Context, id string) (bool, error)
	HandleWebhook(ctx context.Context, providerName string, header http.Header, payload []byte) error
}

type serviceImpl struct {
	repo      repository.Payment
	bookings  bookingService.Booking
	registry  *provider.Registry
	cfg       *config.Config
	cache     cache.RedisCache
	otel      otel.Otel
	publisher events.Publisher
}

func New(repo repository.Payment, bookings bookingService.Booking, registry *provider.Registry, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, publisher events.Publisher) Payment {
	return &serviceImpl{
		repo:      repo,
		bookings:  bookings,
		registry:  registry,
		cfg:       cfg,
		cache:     cache,
		otel:      otel,
		publisher: publisher,
	}
}

// Initiate starts a checkout with the chosen provider. The provider call runs
// outside any database transaction, and the payment row is persisted only
// once the provider has handed back a transaction identifier.
func (s *serviceImpl) Initiate(ctx context.Context, req dto.InitiatePaymentRequest) (res dto.InitiatePaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Initiate")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	booking, err := s.bookings.Find(ctx, req.BookingID)
	if err != nil {
		return res, err
	}

	if !isAdmin(role) && booking.UserID != user {
		return res, failure.ResourceRestrictedError // nolint:wrapcheck
	}

	switch booking.Status {
	case bookingModel.StatusPaid:
		return res, failure.AlreadyPaid("booking is already paid") // nolint:wrapcheck
	case bookingModel.StatusCanceled:
		return res, failure.InvalidState("canceled booking cannot be paid") // nolint:wrapcheck
	}

	strategy, err := s.registry.Get(req.Provider)
	if err != nil {
		return res, err
	}

	currency := s.currencyFor(req.Provider)

	initiation, err := strategy.InitiatePayment(ctx, provider.PaymentOrder{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Amount:      booking.TotalAmount,
		Currency:    currency,
		Description: "Booking " + booking.ID,
	})
	if err != nil {
		return res, err
	}

	payment := req.ToModel(user, initiation.TransactionID, currency, initiation.Raw, booking.TotalAmount)

	err = s.repo.Insert(ctx, payment)
	if err != nil {
		log.Error().Err(err).Msg("failed to insert payment")

		return res, fmt.Errorf("failed to insert payment: %w", err)
	}

	s.invalidatePaymentCaches(ctx, payment)

	res = dto.InitiatePaymentResponse{
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
		RedirectURL:   initiation.RedirectURL,
		Provider:      payment.Provider,
	}

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	payment, err := s.find(ctx, id)
	if err != nil {
		return res, err
	}

	if !isAdmin(role) && payment.CreatedBy != user {
		return res, failure.ResourceRestrictedError // nolint:wrapcheck
	}

	res.FromModel(payment)

	return res, nil
}

func (s *serviceImpl) GetByBooking(ctx context.Context, bookingID string) (res dto.GetPaymentsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetByBooking")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	booking, err := s.bookings.Find(ctx, bookingID)
	if err != nil {
		return res, err
	}

	if !isAdmin(role) && booking.UserID != user {
		return res, failure.ResourceRestrictedError // nolint:wrapcheck
	}

	cacheKey := shared.BuildCacheKey(cacheGetBookingPayments, bookingID)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking payments")

		return res, nil
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldBookingID,
				Value:    bookingID,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
		},
	}

	models, err := s.repo.GetAll(ctx, gDto.QueryParams{}, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get payments")

		return res, fmt.Errorf("failed to get payments: %w", err)
	}

	res.FromModels(models)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking payments to cache")
		}
	}()

	return res, nil
}

// Verify asks the provider whether the transaction went through. Provider
// outages degrade to false rather than an error, the answer is advisory and
// webhook reconciliation remains the source of truth.
func (s *serviceImpl) Verify(ctx context.Context, id string) (ok bool, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Verify")
	defer scope.End()
	defer scope.TraceIfError(err)

	payment, err := s.find(ctx, id)
	if err != nil {
		return false, err
	}

	if payment.Status == model.StatusCompleted {
		return true, nil
	}

	strategy, err := s.registry.Get(payment.Provider)
	if err != nil {
		return false, err
	}

	return strategy.VerifyPayment(ctx, payment.TransactionID), nil
}

// HandleWebhook reconciles a provider notification. Verification fails
// closed, unknown transactions and replays are acknowledged without touching
// any row, and a successful payment updates the payment and its booking on
// one transaction.
func (s *serviceImpl) HandleWebhook(ctx context.Context, providerName string, header http.Header, payload []byte) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HandleWebhook")
	defer scope.End()
	defer scope.TraceIfError(err)

	strategy, err := s.registry.Get(providerName)
	if err != nil {
		return err
	}

	if err = strategy.VerifyWebhook(header, payload); err != nil {
		log.Warn().Err(err).Str("provider", providerName).Msg("webhook signature verification failed")

		return err
	}

	event, err := strategy.ParseWebhook(payload)
	if err != nil {
		return err
	}

	if event.Kind == provider.EventIgnored {
		return nil
	}

	payment, err := s.repo.GetByTransactionID(ctx, event.TransactionID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get payment by transaction id")

		return fmt.Errorf("failed to get payment by transaction id: %w", err)
	}

	if payment.ID == constant.Empty {
		log.Warn().Str("transactionID", event.TransactionID).Str("provider", providerName).Msg("webhook for unknown transaction acknowledged")

		return nil
	}

	if payment.Status == model.StatusCompleted {
		return nil
	}

	switch event.Kind {
	case provider.EventPaymentSucceeded:
		return s.completePayment(ctx, payment, payload)
	case provider.EventPaymentFailed:
		return s.failPayment(ctx, payment, event.ErrorMessage)
	}

	return nil
}

// completePayment commits the payment and its booking together. If either
// write fails both roll back and the provider will retry the webhook.
func (s *serviceImpl) completePayment(ctx context.Context, payment model.Payment, payload []byte) error {
	err := s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		fields := map[string]any{
			model.FieldStatus:        model.StatusCompleted,
			model.FieldRawResponse:   string(payload),
			constant.FieldModifiedAt: timezone.Now(),
			constant.FieldModifiedBy: "system",
		}

		if err := s.repo.UpdateTx(ctx, tx, fields, shared.FilterByID(payment.ID, model.FieldID, model.TableName)); err != nil {
			return err
		}

		return s.bookings.MarkPaidTx(ctx, tx, payment.BookingID)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to complete payment")

		return fmt.Errorf("failed to complete payment: %w", err)
	}

	payment.Status = model.StatusCompleted
	s.publisher.PublishPayment(ctx, events.TopicPaymentCompleted, paymentEvent(payment))

	s.invalidatePaymentCaches(ctx, payment)

	return nil
}

// failPayment records the failure on the payment row only. The booking keeps
// its slot and the user may retry with the same or another provider.
func (s *serviceImpl) failPayment(ctx context.Context, payment model.Payment, errorMessage string) error {
	fields := map[string]any{
		model.FieldStatus:        model.StatusFailed,
		model.FieldErrorMessage:  errorMessage,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: "system",
	}

	err := s.repo.Update(ctx, fields, shared.FilterByID(payment.ID, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to mark payment as failed")

		return fmt.Errorf("failed to mark payment as failed: %w", err)
	}

	payment.Status = model.StatusFailed
	payment.ErrorMessage = errorMessage
	s.publisher.PublishPayment(ctx, events.TopicPaymentFailed, paymentEvent(payment))

	s.invalidatePaymentCaches(ctx, payment)

	return nil
}

func (s *serviceImpl) find(ctx context.Context, id string) (res model.Payment, err error) {
	payment, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get payment")

		return res, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.ID == constant.Empty {
		return res, failure.NotFound("payment not found") // nolint:wrapcheck
	}

	return payment, nil
}

func (s *serviceImpl) currencyFor(providerName string) string {
	if providerName == provider.NameWalletPay {
		return s.cfg.Payment.WalletPay.Currency
	}

	return s.cfg.Payment.CardGate.Currency
}

func (s *serviceImpl) invalidatePaymentCaches(ctx context.Context, payment model.Payment) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetPayment, payment.ID)); err != nil {
			log.Error().Err(err).Msg("failed to delete payment cache")
		}

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBookingPayments, payment.BookingID)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking payments cache")
		}
	}()
}

func isAdmin(role string) bool {
	return role == constant.RoleAdmin || role == constant.RoleSuperAdmin
}

func paymentEvent(payment model.Payment) events.PaymentEvent {
	return events.PaymentEvent{
		PaymentID:     payment.ID,
		BookingID:     payment.BookingID,
		Provider:      payment.Provider,
		TransactionID: payment.TransactionID,
		Status:        payment.Status,
		Amount:        payment.Amount.StringFixed(2),
		OccurredAt:    timezone.Now(),
	}
}
