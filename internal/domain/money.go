package domain

import (
	"math"
	"strings"
)

const DefaultCurrency = "USD"

// Money is an immutable non-negative amount in a currency.
type Money struct {
	Amount   float64
	Currency string
}

// NewMoney validates and normalizes an amount; an empty currency defaults to USD.
func NewMoney(amount float64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) || len(currency) != 3 {
		return Money{}, ErrInvalidMoney
	}
	for _, ch := range currency {
		if ch < 'A' || ch > 'Z' {
			return Money{}, ErrInvalidMoney
		}
	}
	return Money{Amount: amount, Currency: currency}, nil
}
