package persistence

import (
	"errors"
	"strings"

	"github.com/invest/ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes that mean "run the unit of work again"
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// isUniqueViolation reports a unique-constraint failure from any supported dialect
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// translateConflict maps serialization failures and deadlocks to
// ConcurrencyConflictError so the application layer retries them.
func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return shared.NewConcurrencyConflictError("Transaction conflicted with a concurrent update: " + pgErr.Message)
		}
	}
	if strings.Contains(err.Error(), "database is locked") {
		return shared.NewConcurrencyConflictError("Database is locked by a concurrent transaction")
	}
	return err
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}
