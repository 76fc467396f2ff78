package ledger

import (
	"fmt"
	"time"

	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ScheduledInstallment is one row of a generated schedule
type ScheduledInstallment struct {
	Number    int
	DueDate   time.Time
	DueAmount decimal.Decimal
}

// GenerateSchedule derives the installment schedule for a total amount.
// Every installment is total/count rounded down to the ledger scale; the last
// one absorbs the remainder so the schedule sums to total exactly. Due dates
// are start + k periods for k = 1..count. The result is a pure function of its
// inputs.
func GenerateSchedule(total decimal.Decimal, count int, frequency PaymentFrequency, start time.Time) ([]ScheduledInstallment, error) {
	if count < 1 {
		return nil, shared.NewValidationError("Installment count must be at least 1")
	}
	if !frequency.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown payment frequency %q", frequency))
	}
	if !total.IsPositive() {
		return nil, shared.NewValidationError("Plan total must be positive")
	}
	if start.IsZero() {
		return nil, shared.NewValidationError("Plan start date is required")
	}

	parts, err := valueobject.NewMoneyIDR(total).Split(count)
	if err != nil {
		return nil, shared.NewValidationError(err.Error())
	}

	start = DateOf(start)
	schedule := make([]ScheduledInstallment, count)
	for k := 1; k <= count; k++ {
		schedule[k-1] = ScheduledInstallment{
			Number:    k,
			DueDate:   AddMonthsClamped(start, k*frequency.Months()),
			DueAmount: parts[k-1].Amount(),
		}
	}
	return schedule, nil
}

// AddMonthsClamped adds calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28/29). Unlike time.AddDate it never
// spills into the following month.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

// DateOf truncates t to midnight UTC of its calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
