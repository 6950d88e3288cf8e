package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount signals a monetary amount violated the non-negativity invariant.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrInvalidQuantity signals a quantity violated the non-negativity invariant.
	ErrInvalidQuantity = errors.New("quantity: invalid quantity")
)

// moneyScale is the number of fractional digits every Money value carries.
const moneyScale = 2

// Money is an immutable non-negative decimal amount scaled to two
// fractional digits with half-up rounding. The zero value is 0.00.
type Money struct {
	amount decimal.Decimal
}

// NewMoney constructs a Money from a decimal, rounding half-up to two
// fractional digits. Negative inputs fail with ErrInvalidAmount.
func NewMoney(amount decimal.Decimal) (Money, error) {
	rounded := amount.Round(moneyScale)
	if rounded.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, rounded.String())
	}
	return Money{amount: rounded}, nil
}

// ParseMoney constructs a Money from its decimal string representation.
func ParseMoney(value string) (Money, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a decimal", ErrInvalidAmount, value)
	}
	return NewMoney(amount)
}

// MustMoney parses a decimal literal and panics on failure. Reserved for
// constants and tests where the input is known valid.
func MustMoney(value string) Money {
	money, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return money
}

// ZeroMoney returns the 0.00 amount.
func ZeroMoney() Money {
	return Money{amount: decimal.Zero.Round(moneyScale)}
}

// Add returns the sum of both amounts. The result of adding two
// non-negative amounts is always valid.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount).Round(moneyScale)}
}

// Subtract returns the difference, failing with ErrInvalidAmount when the
// rounded result would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	result := m.amount.Sub(other.amount).Round(moneyScale)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s is negative", ErrInvalidAmount, m.amount.String(), other.amount.String())
	}
	return Money{amount: result}, nil
}

// Mul scales the amount by an arbitrary decimal factor, re-validating the
// rounded result against the non-negativity invariant.
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	return NewMoney(m.amount.Mul(factor))
}

// MulQuantity scales the amount by a non-negative item count. The result
// of scaling by a Quantity cannot violate the invariant.
func (m Money) MulQuantity(quantity Quantity) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(quantity.value))).Round(moneyScale)}
}

// Div divides the amount by an arbitrary decimal divisor. Division by zero
// or by a negative divisor fails with ErrInvalidAmount.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, fmt.Errorf("%w: division by zero", ErrInvalidAmount)
	}
	return NewMoney(m.amount.Div(divisor))
}

// Equal reports structural equality of the two amounts.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Cmp compares two amounts, returning -1, 0, or 1.
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// IsZero reports whether the amount equals 0.00.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Decimal exposes the underlying rounded decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount.Round(moneyScale)
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.amount.StringFixed(moneyScale)
}

// Quantity is an immutable non-negative item count.
type Quantity struct {
	value int
}

// NewQuantity constructs a Quantity, failing with ErrInvalidQuantity on
// negative input.
func NewQuantity(value int) (Quantity, error) {
	if value < 0 {
		return Quantity{}, fmt.Errorf("%w: %d is negative", ErrInvalidQuantity, value)
	}
	return Quantity{value: value}, nil
}

// MustQuantity constructs a Quantity and panics on failure. Reserved for
// constants and tests where the input is known valid.
func MustQuantity(value int) Quantity {
	quantity, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return quantity
}

// Add returns the sum of both counts.
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value + other.value}
}

// Subtract returns the difference, failing with ErrInvalidQuantity when
// the result would be negative.
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	result := q.value - other.value
	if result < 0 {
		return Quantity{}, fmt.Errorf("%w: %d - %d is negative", ErrInvalidQuantity, q.value, other.value)
	}
	return Quantity{value: result}, nil
}

// Int exposes the count as a plain int.
func (q Quantity) Int() int {
	return q.value
}

// IsZero reports whether the count is zero.
func (q Quantity) IsZero() bool {
	return q.value == 0
}
