package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"creddit/internal/apperror"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes treated as retryable.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled (statement timeout)
}

// IsTransient reports whether err is a storage failure the caller may retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// uniqueViolation returns the column a unique constraint failed on.
func uniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		return columnFrom(pgErr.ConstraintName + " " + pgErr.Detail), true
	}
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		return columnFrom(msg[i:]), true
	}
	return "", false
}

func columnFrom(s string) string {
	switch {
	case strings.Contains(s, "username"):
		return "username"
	case strings.Contains(s, "email"):
		return "email"
	default:
		return ""
	}
}

// wrap classifies err for callers: transient failures become StorageConflict,
// application errors pass through, the rest get op as context.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if IsTransient(err) {
		return apperror.StorageConflict(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("repository: %s: %w", op, err)
}
