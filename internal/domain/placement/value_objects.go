package placement

import (
	"strings"

	"github.com/shopspring/decimal"
)

const minorUnitExponent = 2

type Money struct {
	amount   decimal.Decimal
	currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrNegativePrice
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{amount: amount.Round(minorUnitExponent), currency: currency}, nil
}

func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d, currency)
}

func MoneyFromMinor(minor int64, currency string) (Money, error) {
	return NewMoney(decimal.New(minor, -minorUnitExponent), currency)
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }

func (m Money) MinorUnits() int64 {
	return m.amount.Shift(minorUnitExponent).IntPart()
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.amount.StringFixed(minorUnitExponent) + " " + m.currency
}

type Metrics struct {
	Views  int64
	Clicks int64
}
