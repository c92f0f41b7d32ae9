package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockBookingService

import (
	"context"
	"fmt"
	"slices"

	"estate/config"
	"estate/infras/otel"
	"estate/internal/domains/booking/model"
	"estate/internal/domains/booking/model/dto"
	"estate/internal/domains/booking/repository"
	propertyRepository "estate/internal/domains/property/repository"
	"estate/internal/events"
	"estate/shared"
	"estate/shared/cache"
	"estate/shared/constant"
	gDto "estate/shared/dto"
	"estate/shared/failure"
	"estate/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"
)

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Cancel(ctx context.Context, id string) error
	AdminSetStatus(ctx context.Context, id, status string) error
	Find(ctx context.Context, id string) (model.Booking, error)
	MarkPaidTx(ctx context.Context, sqltx *sqlx.Tx, id string) error
}

type serviceImpl struct {
	repo       repository.Booking
	properties propertyRepository.Property
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
	publisher  events.Publisher
}

func New(repo repository.Booking, properties propertyRepository.Property, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, publisher events.Publisher) Booking {
	return &serviceImpl{
		repo:       repo,
		properties: properties,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
		publisher:  publisher,
	}
}

// Create books a property for a visit date. The property row lock, the
// active-booking check and the insert all run on one transaction, so two
// concurrent requests for the same property and date serialize on the lock
// and exactly one of them wins.
func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	visitDate, err := req.ParseVisitDate()
	if err != nil {
		return res, err
	}

	var booking model.Booking

	err = s.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		property, err := s.properties.LockTx(ctx, tx, req.PropertyID)
		if err != nil {
			return err
		}

		if property.ID == constant.Empty {
			return failure.NotFound("property not found") // nolint:wrapcheck
		}

		if !property.Bookable() {
			return failure.NotFound("property is not available for booking") // nolint:wrapcheck
		}

		taken, err := s.repo.ExistActiveTx(ctx, tx, req.PropertyID, visitDate)
		if err != nil {
			return err
		}

		if taken {
			return failure.Conflict("property already booked for this date") // nolint:wrapcheck
		}

		totals := model.CalculateTotals(property.Price, decimal.NewFromFloat(req.Discount))
		booking = req.ToModel(user, visitDate, totals)

		return s.repo.InsertTx(ctx, tx, booking)
	})
	if err != nil {
		return res, err
	}

	s.publisher.PublishBooking(ctx, events.TopicBookingCreated, bookingEvent(booking))

	s.invalidateListCaches(ctx)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	booking, err := s.Find(ctx, id)
	if err != nil {
		return res, err
	}

	if !isAdmin(role) && booking.UserID != user {
		return res, failure.ResourceRestrictedError // nolint:wrapcheck
	}

	res.FromModel(booking)

	return res, nil
}

// Find loads a booking without any ownership filtering. Callers outside the
// HTTP surface, webhook reconciliation in particular, resolve access on
// their own terms.
func (s *serviceImpl) Find(ctx context.Context, id string) (res model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Find")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	if !isAdmin(role) {
		filter.Operator = gDto.FilterGroupOperatorAnd
		filter.Filters = append(filter.Filters, gDto.Filter{
			Field:    model.FieldUserID,
			Value:    user,
			Operator: gDto.FilterOperatorEq,
			Table:    model.TableName,
		})
	}

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

// Cancel releases a booking's slot. Paid bookings must go through a refund
// first and already canceled bookings stay canceled.
func (s *serviceImpl) Cancel(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	booking, err := s.Find(ctx, id)
	if err != nil {
		return err
	}

	if !isAdmin(role) && booking.UserID != user {
		return failure.ResourceRestrictedError // nolint:wrapcheck
	}

	switch booking.Status {
	case model.StatusPaid:
		return failure.InvalidState("paid booking cannot be canceled, request a refund instead") // nolint:wrapcheck
	case model.StatusCanceled:
		return failure.InvalidState("booking is already canceled") // nolint:wrapcheck
	}

	err = s.repo.Update(ctx, statusFields(model.StatusCanceled, user), shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel booking")

		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	booking.Status = model.StatusCanceled
	s.publisher.PublishBooking(ctx, events.TopicBookingCanceled, bookingEvent(booking))

	s.invalidateBookingCaches(ctx, id)

	return nil
}

// AdminSetStatus force-sets a booking's status. It deliberately skips the
// availability check so back office staff can resolve disputes by hand.
func (s *serviceImpl) AdminSetStatus(ctx context.Context, id, status string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".AdminSetStatus")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if !slices.Contains(model.AdminStatuses, status) {
		return failure.BadRequestFromString("status must be one of confirmed, canceled, paid") // nolint:wrapcheck
	}

	booking, err := s.Find(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.Update(ctx, statusFields(status, user), shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to update booking status")

		return fmt.Errorf("failed to update booking status: %w", err)
	}

	booking.Status = status
	s.publisher.PublishBooking(ctx, events.TopicBookingStatusChanged, bookingEvent(booking))

	s.invalidateBookingCaches(ctx, id)

	return nil
}

// MarkPaidTx flips the booking to paid on the caller's transaction. Webhook
// reconciliation uses it so the payment and booking updates commit together.
func (s *serviceImpl) MarkPaidTx(ctx context.Context, sqltx *sqlx.Tx, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".MarkPaidTx")
	defer scope.End()
	defer scope.TraceIfError(err)

	err = s.repo.UpdateTx(ctx, sqltx, statusFields(model.StatusPaid, "system"), shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to mark booking as paid")

		return fmt.Errorf("failed to mark booking as paid: %w", err)
	}

	s.invalidateBookingCaches(ctx, id)

	return nil
}

func (s *serviceImpl) invalidateListCaches(ctx context.Context) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()
}

func (s *serviceImpl) invalidateBookingCaches(ctx context.Context, id string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()
}

func isAdmin(role string) bool {
	return role == constant.RoleAdmin || role == constant.RoleSuperAdmin
}

func statusFields(status, user string) map[string]any {
	return map[string]any{
		model.FieldStatus:        status,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: user,
	}
}

func bookingEvent(booking model.Booking) events.BookingEvent {
	return events.BookingEvent{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		UserID:     booking.UserID,
		VisitDate:  booking.VisitDate.Format(constant.VisitDateFormat),
		Status:     booking.Status,
		Total:      booking.TotalAmount.StringFixed(2),
		OccurredAt: timezone.Now(),
	}
}
