package model

import (
	"estate/shared/model"

	"github.com/shopspring/decimal"
)

const (
	TableName  = "payments"
	EntityName = "payment"

	FieldID            = "id"
	FieldBookingID     = "booking_id"
	FieldProvider      = "provider"
	FieldTransactionID = "transaction_id"
	FieldAmount        = "amount"
	FieldCurrency      = "currency"
	FieldStatus        = "status"
	FieldRawResponse   = "raw_response"
	FieldErrorMessage  = "error_message"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

type Payment struct {
	ID            string          `db:"id"`
	BookingID     string          `db:"booking_id"`
	Provider      string          `db:"provider"`
	TransactionID string          `db:"transaction_id"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	Status        string          `db:"status"`
	RawResponse   string          `db:"raw_response"`
	ErrorMessage  string          `db:"error_message"`
	model.Metadata
}
