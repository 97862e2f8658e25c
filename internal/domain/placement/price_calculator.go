package placement

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNoRateForKind = errors.New("no daily rate configured for kind")

type PriceCalculator interface {
	Quote(kind Kind, durationDays int) (Money, error)
}

// DailyRatePriceCalculator prices a package as daily rate times days.
type DailyRatePriceCalculator struct {
	DailyRates map[Kind]decimal.Decimal
	Currency   string
}

func NewDailyRatePriceCalculator(rates map[Kind]decimal.Decimal, currency string) *DailyRatePriceCalculator {
	return &DailyRatePriceCalculator{
		DailyRates: rates,
		Currency:   currency,
	}
}

func (pc *DailyRatePriceCalculator) Quote(kind Kind, durationDays int) (Money, error) {
	rate, ok := pc.DailyRates[kind]
	if !ok {
		return Money{}, ErrNoRateForKind
	}
	total := rate.Mul(decimal.NewFromInt(int64(durationDays)))
	return NewMoney(total, pc.Currency)
}
