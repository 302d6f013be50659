package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"docvault/internal/repository"
)

const uniqueViolation = "23505"

// uniqueFields maps constraint names generated by the schema to the column they guard.
var uniqueFields = map[string]string{
	"users_username_key":         "username",
	"users_email_key":            "email",
	"file_versions_file_key_key": "file_key",
}

// mapError converts driver errors into repository errors. Other errors pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		field, ok := uniqueFields[pgErr.ConstraintName]
		if !ok {
			field = strings.TrimSuffix(pgErr.ConstraintName, "_key")
		}
		return &repository.DuplicateError{Field: field}
	}
	return err
}
