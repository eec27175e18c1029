package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/service-desk/internal/domain"
)

const (
	pgUniqueViolation   = "23505"
	pgInvalidTextFormat = "22P02"
)

// mapError translates driver errors into domain errors.
func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return fmt.Errorf("%s %s already exists: %w", entity, id, domain.ErrValidation)
		case pgErr.Code == pgInvalidTextFormat && id != "":
			// Malformed UUID lookups cannot match a row.
			return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
		}
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}
