package persistence

import (
	"strings"

	"github.com/invest/ledger/internal/domain/shared"
)

// sortColumns whitelists the columns a listing may be ordered by. Keys are
// the names accepted from callers, values the SQL column they map to.
type sortColumns struct {
	columns   map[string]string
	fallback  string // Key used when the requested one is unknown
	tiebreak  string // Appended so pages are stable across equal sort keys
	ascending bool   // Direction when none is requested
}

var investmentSort = sortColumns{
	columns: map[string]string{
		"created_at":   "created_at",
		"updated_at":   "updated_at",
		"amount":       "amount",
		"status":       "status",
		"confirmed_at": "confirmed_at",
		"maturity":     "maturity_date",
	},
	fallback: "created_at",
	tiebreak: "id",
}

var installmentSort = sortColumns{
	columns: map[string]string{
		"due_date":     "i.due_date",
		"due_amount":   "i.due_amount",
		"days_overdue": "i.days_overdue",
		"status":       "i.status",
	},
	fallback:  "due_date",
	tiebreak:  "i.installment_number",
	ascending: true,
}

// sortDirection normalizes dir to ASC or DESC. Anything else yields the
// default direction.
func sortDirection(dir string, ascending bool) string {
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "asc":
		return "ASC"
	case "desc":
		return "DESC"
	}
	if ascending {
		return "ASC"
	}
	return "DESC"
}

// orderBy renders the ORDER BY expression for f. Unknown fields fall back
// instead of failing so a stale client keeps getting results.
func (s sortColumns) orderBy(f shared.Filter) string {
	column, ok := s.columns[strings.TrimSpace(f.OrderBy)]
	if !ok {
		column = s.columns[s.fallback]
	}
	dir := sortDirection(f.OrderDir, s.ascending)
	return column + " " + dir + ", " + s.tiebreak + " " + dir
}
