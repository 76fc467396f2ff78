package persistence

import (
	"testing"

	"github.com/invest/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestSortDirection(t *testing.T) {
	tests := []struct {
		input     string
		ascending bool
		expected  string
	}{
		{"", false, "DESC"},
		{"", true, "ASC"},
		{"asc", false, "ASC"},
		{"  DESC ", true, "DESC"},
		{"ASC; DROP TABLE investments;--", false, "DESC"},
		{"sideways", true, "ASC"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sortDirection(tt.input, tt.ascending), "%q", tt.input)
	}
}

func TestSortColumns_OrderBy(t *testing.T) {
	tests := []struct {
		name     string
		sort     sortColumns
		filter   shared.Filter
		expected string
	}{
		{
			name:     "investments default to newest first",
			sort:     investmentSort,
			expected: "created_at DESC, id DESC",
		},
		{
			name:     "investment field maps to its column",
			sort:     investmentSort,
			filter:   shared.Filter{OrderBy: "maturity", OrderDir: "asc"},
			expected: "maturity_date ASC, id ASC",
		},
		{
			name:     "raw column names are not accepted",
			sort:     investmentSort,
			filter:   shared.Filter{OrderBy: "maturity_date"},
			expected: "created_at DESC, id DESC",
		},
		{
			name:     "injection attempt falls back",
			sort:     investmentSort,
			filter:   shared.Filter{OrderBy: "amount; DROP TABLE investments", OrderDir: "desc"},
			expected: "created_at DESC, id DESC",
		},
		{
			name:     "installments default to earliest due first",
			sort:     installmentSort,
			expected: "i.due_date ASC, i.installment_number ASC",
		},
		{
			name:     "installments by days overdue",
			sort:     installmentSort,
			filter:   shared.Filter{OrderBy: "days_overdue", OrderDir: "desc"},
			expected: "i.days_overdue DESC, i.installment_number DESC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.sort.orderBy(tt.filter))
		})
	}
}
