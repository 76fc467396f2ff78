package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	IDR Currency = "IDR" // Indonesian Rupiah (default)
	USD Currency = "USD"
	EUR Currency = "EUR"
	SGD Currency = "SGD"
)

// DefaultCurrency is the ledger currency. The ledger is single-currency.
const DefaultCurrency = IDR

// IsValid returns true if c is one of the supported currency codes
func (c Currency) IsValid() bool {
	switch c {
	case IDR, USD, EUR, SGD:
		return true
	}
	return false
}

// ParseCurrency normalizes a configured currency code. Empty means DefaultCurrency.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	c := Currency(code)
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", code)
	}
	return c, nil
}

// Scale is the fixed number of fractional digits every amount carries.
const Scale int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundAmount rounds d half-up (away from zero on ties) to the ledger scale.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// TruncateAmount rounds d toward zero to the ledger scale.
func TruncateAmount(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(Scale)
}

// PercentOf returns amount × rate / 100 rounded half-up to the ledger scale.
func PercentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundAmount(amount.Mul(rate).Div(hundred))
}

// Money is a value object representing a fixed-scale monetary amount.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates Money rounded half-up to the ledger scale
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{
		amount:   RoundAmount(amount),
		currency: currency,
	}, nil
}

// NewMoneyFromInt creates Money from a whole-unit integer
func NewMoneyFromInt(amount int64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromInt(amount), currency)
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// NewMoneyIDR creates Money in the default ledger currency
func NewMoneyIDR(amount decimal.Decimal) Money {
	return Money{amount: RoundAmount(amount), currency: IDR}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts.
// Returns error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference.
// Returns error if currencies don't match.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Percent returns m × rate / 100, rounded half-up
func (m Money) Percent(rate decimal.Decimal) Money {
	return Money{amount: PercentOf(m.amount, rate), currency: m.currency}
}

// FloorAtZero returns m, or zero when m is negative
func (m Money) FloorAtZero() Money {
	if m.amount.IsNegative() {
		return Zero(m.currency)
	}
	return m
}

// Split divides money into n parts. Every part but the last is rounded down
// to the ledger scale; the last part absorbs the remainder so the parts sum
// to m exactly.
func (m Money) Split(n int) ([]Money, error) {
	if n <= 0 {
		return nil, errors.New("parts must be positive")
	}
	base := TruncateAmount(m.amount.Div(decimal.NewFromInt(int64(n))))
	parts := make([]Money, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = Money{amount: base, currency: m.currency}
		allocated = allocated.Add(base)
	}
	parts[n-1] = Money{amount: m.amount.Sub(allocated), currency: m.currency}
	return parts, nil
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	return m.amount.GreaterThan(other.amount), nil
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(Scale), m.currency)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(Scale),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Amounts are rounded to the
// ledger scale and an empty currency falls back to DefaultCurrency.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if v.Currency == "" {
		v.Currency = DefaultCurrency
	}
	m.amount = RoundAmount(amount)
	m.currency = v.Currency
	return nil
}

// Value implements driver.Valuer. Only the amount is stored.
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(Scale), nil
}

// Scan implements sql.Scanner; currency defaults to DefaultCurrency if unset.
func (m *Money) Scan(value any) error {
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	if value == nil {
		m.amount = decimal.Zero
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	case float64:
		strVal = decimal.NewFromFloat(v).String()
	case int64:
		strVal = decimal.NewFromInt(v).String()
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = RoundAmount(amount)
	return nil
}
