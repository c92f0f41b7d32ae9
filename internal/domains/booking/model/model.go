package model

import (
	"time"

	"estate/shared/model"

	"github.com/shopspring/decimal"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID             = "id"
	FieldUserID         = "user_id"
	FieldPropertyID     = "property_id"
	FieldBookingDate    = "booking_date"
	FieldVisitDate      = "visit_date"
	FieldDiscount       = "discount"
	FieldSubtotal       = "subtotal"
	FieldDiscountAmount = "discount_amount"
	FieldTotalAmount    = "total_amount"
	FieldStatus         = "status"
	FieldNotes          = "notes"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPaid      = "paid"
	StatusCanceled  = "canceled"
)

// ActiveStatuses are the states that hold a visit date against a property.
// A canceled booking frees its slot.
var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusPaid}

// AdminStatuses are the states an administrator may set directly.
var AdminStatuses = []string{StatusConfirmed, StatusCanceled, StatusPaid}

type Booking struct {
	ID             string          `db:"id"`
	UserID         string          `db:"user_id"`
	PropertyID     string          `db:"property_id"`
	BookingDate    time.Time       `db:"booking_date"`
	VisitDate      time.Time       `db:"visit_date"`
	Discount       decimal.Decimal `db:"discount"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	Status         string          `db:"status"`
	Notes          string          `db:"notes"`
	model.Metadata
}

type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// CalculateTotals derives the booking amounts from the property price and a
// percentage discount. All three amounts are rounded to two decimal places,
// and the identity subtotal = discountAmount + total holds after rounding.
func CalculateTotals(price, discount decimal.Decimal) Totals {
	subtotal := price.Round(2)
	discountAmount := subtotal.Mul(discount).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Sub(discountAmount)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Total:          total,
	}
}
