package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"estate/internal/domains/booking/model"
)

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name         string
		price        string
		discount     string
		wantSubtotal string
		wantDiscount string
		wantTotal    string
	}{
		{
			name:         "no discount",
			price:        "100000",
			discount:     "0",
			wantSubtotal: "100000.00",
			wantDiscount: "0.00",
			wantTotal:    "100000.00",
		},
		{
			name:         "ten percent",
			price:        "100000",
			discount:     "10",
			wantSubtotal: "100000.00",
			wantDiscount: "10000.00",
			wantTotal:    "90000.00",
		},
		{
			name:         "full discount",
			price:        "250000",
			discount:     "100",
			wantSubtotal: "250000.00",
			wantDiscount: "250000.00",
			wantTotal:    "0.00",
		},
		{
			name:         "fractional price and discount round to cents",
			price:        "99999.99",
			discount:     "33.33",
			wantSubtotal: "99999.99",
			wantDiscount: "33330.00",
			wantTotal:    "66669.99",
		},
		{
			name:         "repeating fraction",
			price:        "100",
			discount:     "33.333",
			wantSubtotal: "100.00",
			wantDiscount: "33.33",
			wantTotal:    "66.67",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)
			discount := decimal.RequireFromString(tt.discount)

			totals := model.CalculateTotals(price, discount)

			assert.Equal(t, tt.wantSubtotal, totals.Subtotal.StringFixed(2))
			assert.Equal(t, tt.wantDiscount, totals.DiscountAmount.StringFixed(2))
			assert.Equal(t, tt.wantTotal, totals.Total.StringFixed(2))

			// The three amounts must reconcile exactly after rounding.
			assert.True(t, totals.Subtotal.Equal(totals.DiscountAmount.Add(totals.Total)))
		})
	}
}
