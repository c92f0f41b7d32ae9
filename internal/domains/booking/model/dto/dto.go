package dto

import (
	"time"

	"estate/internal/domains/booking/model"
	"estate/shared"
	"estate/shared/constant"
	gDto "estate/shared/dto"
	"estate/shared/failure"
	gModel "estate/shared/model"
	"estate/shared/timezone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	PropertyID string  `json:"property_id" validate:"required,uuid"`
	VisitDate  string  `json:"visit_date"  validate:"required,datetime=2006-01-02"`
	Discount   float64 `json:"discount"    validate:"omitempty,gte=0,lte=100"`
	Notes      string  `json:"notes"       validate:"omitempty,max=1000"`
}

// ParseVisitDate validates the visit date lexically and rejects days already
// in the past.
func (c *CreateBookingRequest) ParseVisitDate() (time.Time, error) {
	visitDate, err := time.Parse(constant.VisitDateFormat, c.VisitDate)
	if err != nil {
		return time.Time{}, failure.BadRequestFromString("invalid visit date") // nolint:wrapcheck
	}

	today := timezone.Now().Truncate(24 * time.Hour)
	if visitDate.Before(today) {
		return time.Time{}, failure.BadRequestFromString("visit date must not be in the past") // nolint:wrapcheck
	}

	return visitDate, nil
}

func (c *CreateBookingRequest) ToModel(user string, visitDate time.Time, totals model.Totals) model.Booking {
	return model.Booking{
		ID:             uuid.NewString(),
		UserID:         user,
		PropertyID:     c.PropertyID,
		BookingDate:    timezone.Now(),
		VisitDate:      visitDate,
		Discount:       decimal.NewFromFloat(c.Discount),
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.Total,
		Status:         model.StatusPending,
		Notes:          c.Notes,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed canceled paid"`
}

type BookingResponse struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	PropertyID     string          `json:"property_id"`
	BookingDate    string          `json:"booking_date"`
	VisitDate      string          `json:"visit_date"`
	Discount       decimal.Decimal `json:"discount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.UserID = model.UserID
	r.PropertyID = model.PropertyID
	r.BookingDate = timezone.Format(model.BookingDate, constant.DateFormat)
	r.VisitDate = timezone.Format(model.VisitDate, constant.VisitDateFormat)
	r.Discount = model.Discount
	r.Subtotal = model.Subtotal
	r.DiscountAmount = model.DiscountAmount
	r.TotalAmount = model.TotalAmount
	r.Status = model.Status
	r.Notes = model.Notes
	r.Metadata.FromModel(model.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
