package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/invest/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ============================================
// GenerateSchedule Tests
// ============================================

func TestGenerateSchedule(t *testing.T) {
	t.Run("twelve monthly installments of an even total", func(t *testing.T) {
		schedule, err := GenerateSchedule(decimal.NewFromInt(12_000_000), 12, FrequencyMonthly, date(2024, time.January, 15))
		require.NoError(t, err)
		require.Len(t, schedule, 12)

		for i, s := range schedule {
			assert.Equal(t, i+1, s.Number)
			assert.True(t, s.DueAmount.Equal(decimal.NewFromInt(1_000_000)), "installment %d", s.Number)
		}
		assert.Equal(t, date(2024, time.February, 15), schedule[0].DueDate)
		assert.Equal(t, date(2025, time.January, 15), schedule[11].DueDate)
	})

	t.Run("last installment absorbs the remainder", func(t *testing.T) {
		schedule, err := GenerateSchedule(decimal.NewFromInt(100), 3, FrequencyMonthly, date(2024, time.March, 1))
		require.NoError(t, err)

		assert.Equal(t, "33.33", schedule[0].DueAmount.StringFixed(2))
		assert.Equal(t, "33.33", schedule[1].DueAmount.StringFixed(2))
		assert.Equal(t, "33.34", schedule[2].DueAmount.StringFixed(2))
	})

	t.Run("month end clamps instead of spilling over", func(t *testing.T) {
		schedule, err := GenerateSchedule(decimal.NewFromInt(3_000_000), 3, FrequencyMonthly, date(2024, time.January, 31))
		require.NoError(t, err)

		assert.Equal(t, date(2024, time.February, 29), schedule[0].DueDate)
		assert.Equal(t, date(2024, time.March, 31), schedule[1].DueDate)
		assert.Equal(t, date(2024, time.April, 30), schedule[2].DueDate)
	})

	t.Run("quarterly and annual periods", func(t *testing.T) {
		quarterly, err := GenerateSchedule(decimal.NewFromInt(4_000_000), 4, FrequencyQuarterly, date(2024, time.January, 10))
		require.NoError(t, err)
		assert.Equal(t, date(2024, time.April, 10), quarterly[0].DueDate)
		assert.Equal(t, date(2025, time.January, 10), quarterly[3].DueDate)

		annual, err := GenerateSchedule(decimal.NewFromInt(2_000_000), 2, FrequencyAnnually, date(2024, time.February, 29))
		require.NoError(t, err)
		assert.Equal(t, date(2025, time.February, 28), annual[0].DueDate)
		assert.Equal(t, date(2026, time.February, 28), annual[1].DueDate)
	})

	t.Run("start time of day is ignored", func(t *testing.T) {
		a, err := GenerateSchedule(decimal.NewFromInt(1_000_000), 2, FrequencyMonthly, time.Date(2024, 5, 5, 18, 30, 0, 0, time.UTC))
		require.NoError(t, err)
		b, err := GenerateSchedule(decimal.NewFromInt(1_000_000), 2, FrequencyMonthly, date(2024, time.May, 5))
		require.NoError(t, err)
		assert.Equal(t, b, a)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := GenerateSchedule(decimal.NewFromInt(1000), 0, FrequencyMonthly, date(2024, 1, 1))
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = GenerateSchedule(decimal.NewFromInt(1000), 3, PaymentFrequency("WEEKLY"), date(2024, 1, 1))
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = GenerateSchedule(decimal.Zero, 3, FrequencyMonthly, date(2024, 1, 1))
		assert.ErrorIs(t, err, shared.ErrValidation)

		_, err = GenerateSchedule(decimal.NewFromInt(1000), 3, FrequencyMonthly, time.Time{})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestGenerateSchedule_SumsToTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		cents := rng.Int63n(10_000_000_000) + 1
		total := decimal.New(cents, -2)
		count := rng.Intn(60) + 1

		schedule, err := GenerateSchedule(total, count, FrequencyMonthly, date(2024, time.January, 31))
		require.NoError(t, err)

		sum := decimal.Zero
		for _, s := range schedule {
			assert.False(t, s.DueAmount.IsNegative())
			sum = sum.Add(s.DueAmount)
		}
		require.True(t, sum.Equal(total), "total %s count %d sum %s", total, count, sum)
	}
}

// ============================================
// Date helper Tests
// ============================================

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"plain", date(2024, 3, 10), 1, date(2024, 4, 10)},
		{"leap february", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"non leap february", date(2023, 1, 31), 1, date(2023, 2, 28)},
		{"year rollover", date(2024, 11, 30), 3, date(2025, 2, 28)},
		{"computed from start not chained", date(2024, 1, 31), 2, date(2024, 3, 31)},
		{"zero months", date(2024, 6, 15), 0, date(2024, 6, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonthsClamped(tt.start, tt.months))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 10, DaysBetween(date(2024, 1, 1), date(2024, 1, 11)))
	assert.Equal(t, 0, DaysBetween(date(2024, 1, 1), time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, -3, DaysBetween(date(2024, 1, 4), date(2024, 1, 1)))
	assert.Equal(t, 29, DaysBetween(date(2024, 2, 1), date(2024, 3, 1)))
}
