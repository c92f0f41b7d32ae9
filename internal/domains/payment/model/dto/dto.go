package dto

import (
	"estate/internal/domains/payment/model"
	gDto "estate/shared/dto"
	gModel "estate/shared/model"
	"estate/shared/timezone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Provider  string `json:"provider"   validate:"required,oneof=cardgate walletpay"`
}

func (i *InitiatePaymentRequest) ToModel(user, transactionID, currency, raw string, amount decimal.Decimal) model.Payment {
	return model.Payment{
		ID:            uuid.NewString(),
		BookingID:     i.BookingID,
		Provider:      i.Provider,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currency,
		Status:        model.StatusPending,
		RawResponse:   raw,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type InitiatePaymentResponse struct {
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
	Provider      string `json:"provider"`
}

type PaymentResponse struct {
	ID            string          `json:"id"`
	BookingID     string          `json:"booking_id"`
	Provider      string          `json:"provider"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	gDto.Metadata
}

func (r *PaymentResponse) FromModel(model model.Payment) {
	r.ID = model.ID
	r.BookingID = model.BookingID
	r.Provider = model.Provider
	r.TransactionID = model.TransactionID
	r.Amount = model.Amount
	r.Currency = model.Currency
	r.Status = model.Status
	r.ErrorMessage = model.ErrorMessage
	r.Metadata.FromModel(model.Metadata)
}

type GetPaymentsResponse struct {
	Payments []PaymentResponse `json:"payments"`
}

func (r *GetPaymentsResponse) FromModels(models []model.Payment) {
	r.Payments = make([]PaymentResponse, len(models))
	for i, mod := range models {
		r.Payments[i].FromModel(mod)
	}
}
