package valueobject

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.RequireFromString("100.50"), IDR)
		require.NoError(t, err)
		assert.Equal(t, IDR, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("100.50")))
	})

	t.Run("rounds half-up to the ledger scale", func(t *testing.T) {
		m, err := NewMoney(decimal.RequireFromString("10.005"), IDR)
		require.NoError(t, err)
		assert.Equal(t, "10.01", m.Amount().StringFixed(Scale))

		m, err = NewMoney(decimal.RequireFromString("10.004"), IDR)
		require.NoError(t, err)
		assert.Equal(t, "10.00", m.Amount().StringFixed(Scale))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45", IDR)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("123.45")))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", IDR)
		assert.Error(t, err)
	})
}

func TestMoneyAddSubtract(t *testing.T) {
	t.Run("adds same currency", func(t *testing.T) {
		m1 := NewMoneyIDR(decimal.RequireFromString("100.50"))
		m2 := NewMoneyIDR(decimal.RequireFromString("50.25"))
		result, err := m1.Add(m2)
		require.NoError(t, err)
		assert.True(t, result.Amount().Equal(decimal.RequireFromString("150.75")))
	})

	t.Run("fails for different currencies", func(t *testing.T) {
		m1, _ := NewMoneyFromInt(100, IDR)
		m2, _ := NewMoneyFromInt(50, USD)
		_, err := m1.Add(m2)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "different currencies")

		_, err = m1.Subtract(m2)
		assert.Error(t, err)
	})

	t.Run("must variants panic on mismatch", func(t *testing.T) {
		m1, _ := NewMoneyFromInt(100, IDR)
		m2, _ := NewMoneyFromInt(50, USD)
		assert.Panics(t, func() { m1.MustAdd(m2) })
		assert.Panics(t, func() { m1.MustSubtract(m2) })
	})
}

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		rate   string
		want   string
	}{
		{"late fee five percent", "1000000", "5.0", "50000.00"},
		{"expected return twelve and a half", "5000000", "12.5", "625000.00"},
		{"rounds half up", "0.10", "5", "0.01"},
		{"rounds down below half", "0.08", "5", "0.00"},
		{"zero rate", "1000", "0", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentOf(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.want, got.StringFixed(Scale))
		})
	}
}

func TestMoneySplit(t *testing.T) {
	t.Run("even split", func(t *testing.T) {
		m := NewMoneyIDR(decimal.NewFromInt(12000000))
		parts, err := m.Split(12)
		require.NoError(t, err)
		require.Len(t, parts, 12)
		for _, p := range parts {
			assert.True(t, p.Amount().Equal(decimal.NewFromInt(1000000)))
		}
	})

	t.Run("last part absorbs remainder", func(t *testing.T) {
		m := NewMoneyIDR(decimal.NewFromInt(100))
		parts, err := m.Split(3)
		require.NoError(t, err)
		assert.Equal(t, "33.33", parts[0].Amount().StringFixed(Scale))
		assert.Equal(t, "33.33", parts[1].Amount().StringFixed(Scale))
		assert.Equal(t, "33.34", parts[2].Amount().StringFixed(Scale))
	})

	t.Run("rejects non-positive parts", func(t *testing.T) {
		_, err := NewMoneyIDR(decimal.NewFromInt(100)).Split(0)
		assert.Error(t, err)
	})

	t.Run("parts always sum to the total", func(t *testing.T) {
		r := rand.New(rand.NewSource(42))
		for i := 0; i < 500; i++ {
			total := NewMoneyIDR(decimal.New(r.Int63n(10_000_000_000), -2))
			n := r.Intn(60) + 1
			parts, err := total.Split(n)
			require.NoError(t, err)

			sum := Zero(IDR)
			for _, p := range parts {
				sum = sum.MustAdd(p)
			}
			assert.True(t, sum.Equals(total), "total=%s n=%d sum=%s", total, n, sum)
		}
	})
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    Currency
		wantErr bool
	}{
		{"", DefaultCurrency, false},
		{"idr", IDR, false},
		{" USD ", USD, false},
		{"SGD", SGD, false},
		{"JPY", "", true},
		{"rupiah", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCurrency(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestMoneyFloorAtZero(t *testing.T) {
	assert.True(t, NewMoneyIDR(decimal.NewFromInt(-5)).FloorAtZero().IsZero())
	assert.True(t, NewMoneyIDR(decimal.NewFromInt(5)).FloorAtZero().Equals(NewMoneyIDR(decimal.NewFromInt(5))))
}

func TestMoneyComparisons(t *testing.T) {
	small := NewMoneyIDR(decimal.NewFromInt(10))
	big := NewMoneyIDR(decimal.NewFromInt(20))

	lt, err := small.LessThan(big)
	require.NoError(t, err)
	assert.True(t, lt)

	gt, err := small.GreaterThan(big)
	require.NoError(t, err)
	assert.False(t, gt)

	other, _ := NewMoneyFromInt(10, USD)
	_, err = small.LessThan(other)
	assert.Error(t, err)
}

func TestMoneyJSON(t *testing.T) {
	t.Run("marshals with fixed scale", func(t *testing.T) {
		m := NewMoneyIDR(decimal.NewFromInt(1500000))
		data, err := json.Marshal(m)
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"1500000.00","currency":"IDR"}`, string(data))
	})

	t.Run("unmarshal defaults currency", func(t *testing.T) {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.345"}`), &m))
		assert.Equal(t, DefaultCurrency, m.Currency())
		assert.Equal(t, "12.35", m.Amount().StringFixed(Scale))
	})

	t.Run("unmarshal invalid amount", func(t *testing.T) {
		var m Money
		assert.Error(t, json.Unmarshal([]byte(`{"amount":"abc","currency":"IDR"}`), &m))
	})
}

func TestMoneyScanValue(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan([]byte("250.50")))
	assert.Equal(t, DefaultCurrency, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.RequireFromString("250.50")))

	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "250.50", v)

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(struct{}{}))
}
