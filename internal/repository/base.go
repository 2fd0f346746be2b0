// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// uniqueConstraintColumn guesses which column a unique violation refers to.
func uniqueConstraintColumn(err error, columns ...string) string {
	var pgErr *pgconn.PgError
	detail := strings.ToLower(err.Error())
	if errors.As(err, &pgErr) {
		detail = strings.ToLower(pgErr.ConstraintName + " " + pgErr.Detail)
	}
	for _, c := range columns {
		if strings.Contains(detail, c) {
			return c
		}
	}
	return ""
}
