package service_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"estate/config"
	"estate/infras/otel/mocks"
	bookingMocks "estate/internal/domains/booking/mocks"
	"estate/internal/domains/booking/model"
	"estate/internal/domains/booking/model/dto"
	"estate/internal/domains/booking/repository"
	"estate/internal/domains/booking/service"
	propertyMocks "estate/internal/domains/property/mocks"
	propertyModel "estate/internal/domains/property/model"
	propertyRepository "estate/internal/domains/property/repository"
	"estate/internal/events"
	eventMocks "estate/internal/events/mocks"
	cacheMocks "estate/shared/cache/mocks"
	"estate/shared/constant"
	"estate/shared/failure"
)

func futureVisitDate() string {
	return time.Now().AddDate(0, 0, 7).Format(constant.VisitDateFormat)
}

func newService(t *testing.T) (service.Booking, *bookingMocks.MockBooking, *propertyMocks.MockProperty, *eventMocks.MockPublisher) {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockProperties := propertyMocks.NewMockProperty(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockPublisher := eventMocks.NewMockPublisher(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

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

	svc := service.New(mockRepo, mockProperties, cfg, mockCache, mockOtel, mockPublisher)

	return svc, mockRepo, mockProperties, mockPublisher
}

func TestBookingService_Create(t *testing.T) {
	propertyID := "11111111-1111-1111-1111-111111111111"

	activeProperty := propertyModel.Property{
		ID:     propertyID,
		Status: propertyModel.StatusActive,
		Price:  decimal.NewFromInt(100000),
	}

	tests := []struct {
		name      string
		req       dto.CreateBookingRequest
		setupMock func(repo *bookingMocks.MockBooking, properties *propertyMocks.MockProperty, publisher *eventMocks.MockPublisher)
		wantErr   bool
		wantCode  int
		check     func(t *testing.T, res dto.BookingResponse)
	}{
		{
			name: "successful booking",
			req: dto.CreateBookingRequest{
				PropertyID: propertyID,
				VisitDate:  futureVisitDate(),
				Discount:   10,
			},
			setupMock: func(repo *bookingMocks.MockBooking, properties *propertyMocks.MockProperty, publisher *eventMocks.MockPublisher) {
				repo.EXPECT().
					WithTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fn func(tx *sqlx.Tx) error) error {
						return fn(nil)
					})

				properties.EXPECT().
					LockTx(gomock.Any(), gomock.Any(), propertyID).
					Return(activeProperty, nil)

				repo.EXPECT().
					ExistActiveTx(gomock.Any(), gomock.Any(), propertyID, gomock.Any()).
					Return(false, nil)

				repo.EXPECT().
					InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				publisher.EXPECT().
					PublishBooking(gomock.Any(), events.TopicBookingCreated, gomock.Any())
			},
			check: func(t *testing.T, res dto.BookingResponse) {
				assert.Equal(t, model.StatusPending, res.Status)
				assert.Equal(t, "100000.00", res.Subtotal.StringFixed(2))
				assert.Equal(t, "10000.00", res.DiscountAmount.StringFixed(2))
				assert.Equal(t, "90000.00", res.TotalAmount.StringFixed(2))
			},
		},
		{
			name: "property not found",
			req: dto.CreateBookingRequest{
				PropertyID: propertyID,
				VisitDate:  futureVisitDate(),
			},
			setupMock: func(repo *bookingMocks.MockBooking, properties *propertyMocks.MockProperty, publisher *eventMocks.MockPublisher) {
				repo.EXPECT().
					WithTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fn func(tx *sqlx.Tx) error) error {
						return fn(nil)
					})

				properties.EXPECT().
					LockTx(gomock.Any(), gomock.Any(), propertyID).
					Return(propertyModel.Property{}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
		{
			name: "inactive property is not bookable",
			req: dto.CreateBookingRequest{
				PropertyID: propertyID,
				VisitDate:  futureVisitDate(),
			},
			setupMock: func(repo *bookingMocks.MockBooking, properties *propertyMocks.MockProperty, publisher *eventMocks.MockPublisher) {
				repo.EXPECT().
					WithTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fn func(tx *sqlx.Tx) error) error {
						return fn(nil)
					})

				properties.EXPECT().
					LockTx(gomock.Any(), gomock.Any(), propertyID).
					Return(propertyModel.Property{ID: propertyID, Status: propertyModel.StatusSold}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
		{
			name: "slot already taken",
			req: dto.CreateBookingRequest{
				PropertyID: propertyID,
				VisitDate:  futureVisitDate(),
			},
			setupMock: func(repo *bookingMocks.MockBooking, properties *propertyMocks.MockProperty, publisher *eventMocks.MockPublisher) {
				repo.EXPECT().
					WithTx(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fn func(tx *sqlx.Tx) error) error {
						return fn(nil)
					})

				properties.EXPECT().
					LockTx(gomock.Any(), gomock.Any(), propertyID).
					Return(activeProperty, nil)

				repo.EXPECT().
					ExistActiveTx(gomock.Any(), gomock.Any(), propertyID, gomock.Any()).
					Return(true, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name: "malformed visit date",
			req: dto.CreateBookingRequest{
				PropertyID: propertyID,
				VisitDate:  "31-12-2026",
			},
			setupMock: func(repo *bookingMocks.MockBooking, properties *propertyMocks.MockProperty, publisher *eventMocks.MockPublisher) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "visit date in the past",
			req: dto.CreateBookingRequest{
				PropertyID: propertyID,
				VisitDate:  "2020-01-01",
			},
			setupMock: func(repo *bookingMocks.MockBooking, properties *propertyMocks.MockProperty, publisher *eventMocks.MockPublisher) {},
			wantErr:   true,
			wantCode:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockProperties, mockPublisher := newService(t)
			tt.setupMock(mockRepo, mockProperties, mockPublisher)

			ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "test-user-id")
			res, err := svc.Create(ctx, tt.req)

			if tt.wantErr {
				assert.Error(t, err)

				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}

				return
			}

			assert.NoError(t, err)

			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}
}

func TestBookingService_Cancel(t *testing.T) {
	tests := []struct {
		name      string
		booking   model.Booking
		userID    string
		role      string
		setupMock func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher)
		wantErr   bool
		wantCode  int
	}{
		{
			name:    "owner cancels pending booking",
			booking: model.Booking{ID: "booking-id", UserID: "owner-id", Status: model.StatusPending},
			userID:  "owner-id",
			role:    constant.RoleUser,
			setupMock: func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher) {
				repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				publisher.EXPECT().
					PublishBooking(gomock.Any(), events.TopicBookingCanceled, gomock.Any())
			},
		},
		{
			name:    "admin cancels someone else's booking",
			booking: model.Booking{ID: "booking-id", UserID: "owner-id", Status: model.StatusConfirmed},
			userID:  "admin-id",
			role:    constant.RoleAdmin,
			setupMock: func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher) {
				repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				publisher.EXPECT().
					PublishBooking(gomock.Any(), events.TopicBookingCanceled, gomock.Any())
			},
		},
		{
			name:      "stranger is rejected",
			booking:   model.Booking{ID: "booking-id", UserID: "owner-id", Status: model.StatusPending},
			userID:    "other-id",
			role:      constant.RoleUser,
			setupMock: func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher) {},
			wantErr:   true,
			wantCode:  http.StatusForbidden,
		},
		{
			name:      "paid booking cannot be canceled",
			booking:   model.Booking{ID: "booking-id", UserID: "owner-id", Status: model.StatusPaid},
			userID:    "owner-id",
			role:      constant.RoleUser,
			setupMock: func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher) {},
			wantErr:   true,
			wantCode:  http.StatusUnprocessableEntity,
		},
		{
			name:      "canceling twice is rejected",
			booking:   model.Booking{ID: "booking-id", UserID: "owner-id", Status: model.StatusCanceled},
			userID:    "owner-id",
			role:      constant.RoleUser,
			setupMock: func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher) {},
			wantErr:   true,
			wantCode:  http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, _, mockPublisher := newService(t)

			mockRepo.EXPECT().
				Get(gomock.Any(), gomock.Any()).
				Return(tt.booking, nil)

			tt.setupMock(mockRepo, mockPublisher)

			ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, tt.userID)
			ctx = context.WithValue(ctx, constant.ContextKeyUserRole, tt.role)

			err := svc.Cancel(ctx, tt.booking.ID)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBookingService_AdminSetStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		setupMock func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher)
		wantErr   bool
	}{
		{
			name:   "confirm",
			status: model.StatusConfirmed,
			setupMock: func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Booking{ID: "booking-id", Status: model.StatusPending}, nil)

				repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)

				publisher.EXPECT().
					PublishBooking(gomock.Any(), events.TopicBookingStatusChanged, gomock.Any())
			},
		},
		{
			name:      "pending is not a settable status",
			status:    model.StatusPending,
			setupMock: func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher) {},
			wantErr:   true,
		},
		{
			name:      "unknown status",
			status:    "archived",
			setupMock: func(repo *bookingMocks.MockBooking, publisher *eventMocks.MockPublisher) {},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, _, mockPublisher := newService(t)
			tt.setupMock(mockRepo, mockPublisher)

			ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-id")
			ctx = context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleAdmin)

			err := svc.AdminSetStatus(ctx, "booking-id", tt.status)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// fakeStore emulates the database's lock-then-check serialization so the
// winner-takes-all behavior can be exercised with real goroutines.
type fakeStore struct {
	mu       sync.Mutex
	property propertyModel.Property
	bookings map[string]bool
}

type fakeBookingRepo struct {
	repository.Booking

	store *fakeStore
}

func (f *fakeBookingRepo) WithTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakeBookingRepo) ExistActiveTx(_ context.Context, _ *sqlx.Tx, propertyID string, visitDate time.Time) (bool, error) {
	key := propertyID + visitDate.Format(constant.VisitDateFormat)

	return f.store.bookings[key], nil
}

func (f *fakeBookingRepo) InsertTx(_ context.Context, _ *sqlx.Tx, booking model.Booking) error {
	key := booking.PropertyID + booking.VisitDate.Format(constant.VisitDateFormat)
	f.store.bookings[key] = true

	return nil
}

type fakePropertyRepo struct {
	propertyRepository.Property

	store *fakeStore
}

func (f *fakePropertyRepo) LockTx(_ context.Context, _ *sqlx.Tx, id string) (propertyModel.Property, error) {
	if f.store.property.ID != id {
		return propertyModel.Property{}, nil
	}

	return f.store.property, nil
}

func (f *fakePropertyRepo) WithTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type noopPublisher struct{}

func (noopPublisher) PublishBooking(context.Context, string, events.BookingEvent) {}
func (noopPublisher) PublishPayment(context.Context, string, events.PaymentEvent) {}

type noopCache struct{}

func (noopCache) Save(context.Context, string, any, int) error { return nil }
func (noopCache) Get(context.Context, string, any) error       { return errors.New("cache miss") }
func (noopCache) Delete(context.Context, string) error         { return nil }
func (noopCache) Clear(context.Context, string) error          { return nil }

// lockedBookingRepo wraps fakeBookingRepo so the whole transaction body runs
// under the store mutex, the same way the row lock serializes competing
// transactions in Postgres.
type lockedBookingRepo struct {
	*fakeBookingRepo
}

func (l *lockedBookingRepo) WithTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	return fn(nil)
}

func TestBookingService_Create_Concurrent(t *testing.T) {
	propertyID := "11111111-1111-1111-1111-111111111111"

	store := &fakeStore{
		property: propertyModel.Property{
			ID:     propertyID,
			Status: propertyModel.StatusActive,
			Price:  decimal.NewFromInt(100000),
		},
		bookings: map[string]bool{},
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(
		&lockedBookingRepo{&fakeBookingRepo{store: store}},
		&fakePropertyRepo{store: store},
		cfg,
		noopCache{},
		mocks.NewOtel(),
		noopPublisher{},
	)

	const workers = 10

	visitDate := futureVisitDate()

	var wg sync.WaitGroup

	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "user-id")

			_, err := svc.Create(ctx, dto.CreateBookingRequest{
				PropertyID: propertyID,
				VisitDate:  visitDate,
			})
			results <- err
		}(i)
	}

	wg.Wait()
	close(results)

	var won, conflicted int

	for err := range results {
		switch {
		case err == nil:
			won++
		case failure.GetCode(err) == http.StatusConflict:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, workers-1, conflicted)
}
