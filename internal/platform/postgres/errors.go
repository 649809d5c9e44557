package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/recipe-api/internal/domain"
	"github.com/phrazzld/recipe-api/internal/store"
)

// PostgreSQL error codes handled by MapError.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// constraintFields names the column each iam_users check constraint guards.
var constraintFields = map[string]string{
	"iam_users_user_id_not_blank":        "user_id",
	"iam_users_caller_context_not_blank": "caller_context",
	"iam_users_roles_is_array":           "roles",
}

// MapError translates a driver error into the store error taxonomy.
//
// Check and not-null violations become a *domain.ValidationError naming the
// rejected column, so the exception handler renders them as field errors.
// Errors without a mapping are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	case foreignKeyViolationCode:
		return fmt.Errorf("%w: foreign key %s", store.ErrInvalidEntity, pgErr.ConstraintName)
	case checkViolationCode:
		return constraintViolation(checkField(pgErr), "check", pgErr.ConstraintName)
	case notNullViolationCode:
		return constraintViolation(pgErr.ColumnName, "required", pgErr.ColumnName)
	}
	return err
}

func checkField(pgErr *pgconn.PgError) string {
	if field, ok := constraintFields[pgErr.ConstraintName]; ok {
		return field
	}
	return pgErr.ConstraintName
}

func constraintViolation(field, code, constraint string) error {
	return domain.NewValidationError("identity rejected by storage", domain.FieldError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf("violates %s", constraint),
	})
}

// CheckRowsAffected returns store.ErrNotFound when result touched no rows.
// entity, when set, is named in the error.
func CheckRowsAffected(result sql.Result, entity string) error {
	if result == nil {
		return errors.New("nil result")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if entity == "" {
		return store.ErrNotFound
	}
	return fmt.Errorf("%w: %s not found", store.ErrNotFound, entity)
}
