package kernel

import (
	"encoding/json"
	"fmt"
	"strings"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

// minorUnitExponent is the number of decimal places in a minor unit (cents, kobo).
const minorUnitExponent = 2

var ErrMoneyIsNotConstructed = errs.NewValueIsRequiredError("money must be created via NewMoney")

// Money is a non-negative amount in minor units of a three-letter currency.
type Money struct {
	amount   int64
	currency string
	guard    guard.ConstructorGuard
}

func NewMoney(amount int64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if amount < 0 {
		return Money{}, errs.NewValueIsOutOfRangeError("amount", amount, 0, "unbounded")
	}
	if len(currency) != 3 {
		return Money{}, errs.NewValueIsInvalidErrorWithCause("currency", fmt.Errorf("%q is not an ISO 4217 code", currency))
	}
	return Money{amount: amount, currency: currency, guard: guard.NewConstructorGuard()}, nil
}

// ZeroMoney is a constructed zero amount in the given currency.
func ZeroMoney(currency string) (Money, error) {
	return NewMoney(0, currency)
}

func (m Money) Amount() int64 {
	return m.amount
}

func (m Money) Currency() string {
	return m.currency
}

func (m Money) Validate() error {
	return m.guard.Validate(ErrMoneyIsNotConstructed)
}

func (m Money) IsEqual(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, errs.NewValueIsInvalidErrorWithCause("currency",
			fmt.Errorf("cannot add %s to %s", other.currency, m.currency))
	}
	return NewMoney(m.amount+other.amount, m.currency)
}

// Multiply scales the amount by a positive quantity.
func (m Money) Multiply(qty int) (Money, error) {
	if qty <= 0 {
		return Money{}, errs.NewValueIsOutOfRangeError("quantity", qty, 1, "unbounded")
	}
	return NewMoney(m.amount*int64(qty), m.currency)
}

// Decimal renders the amount in major units, e.g. 1250 NGN minor units -> 12.50.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -minorUnitExponent)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(minorUnitExponent) + " " + m.currency
}

type moneyJSON struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

// MarshalJSON writes minor units plus a decimal display string for clients.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   m.amount,
		Currency: m.currency,
		Display:  m.Decimal().StringFixed(minorUnitExponent),
	})
}
