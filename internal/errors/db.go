package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// reKeyField extracts the column from "Key (id)=(abc) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// reSQLiteColumn extracts the column from "UNIQUE constraint failed: print_jobs.id".
var reSQLiteColumn = regexp.MustCompile(`constraint failed: [a-z_]+\.([a-z_]+)`)

// MapDBError maps driver errors from pgx and go-sqlite3 to AppError:
// no rows become NotFound, unique and primary key violations Conflict,
// foreign key violations ForeignKey, NOT NULL and CHECK violations Validation,
// and context errors Timeout or Canceled. Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "storage request timed out")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "storage request canceled")
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "record not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return mapSQLiteError(liteErr)
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	field := pgErr.ColumnName
	if field == "" && pgErr.Detail != "" {
		if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			field = m[1]
		}
	}

	appErr := &AppError{Field: field, Cause: pgErr}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		appErr.Code, appErr.Message = ErrCodeConflict, "record already exists"
	case pgerrcode.ForeignKeyViolation:
		appErr.Code, appErr.Message = ErrCodeForeignKey, foreignKeyMessage(pgErr.TableName, pgErr.ConstraintName)
	case pgerrcode.NotNullViolation, pgerrcode.CheckViolation:
		appErr.Code, appErr.Message = ErrCodeValidation, "invalid value"
	case pgerrcode.ConnectionException, pgerrcode.ConnectionFailure,
		pgerrcode.SQLClientUnableToEstablishSQLConnection, pgerrcode.DiskFull,
		pgerrcode.InsufficientResources, pgerrcode.AdminShutdown:
		appErr.Code, appErr.Message = ErrCodeUnavailable, "storage unavailable"
	default:
		appErr.Code, appErr.Message = ErrCodeInternal, "storage error"
	}
	return appErr
}

func mapSQLiteError(liteErr sqlite3.Error) error {
	var field string
	if m := reSQLiteColumn.FindStringSubmatch(liteErr.Error()); len(m) == 2 {
		field = m[1]
	}

	appErr := &AppError{Field: field, Cause: liteErr}
	switch liteErr.ExtendedCode {
	case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
		appErr.Code, appErr.Message = ErrCodeConflict, "record already exists"
		return appErr
	case sqlite3.ErrConstraintForeignKey:
		appErr.Code, appErr.Message = ErrCodeForeignKey, foreignKeyMessage("", "")
		return appErr
	case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck:
		appErr.Code, appErr.Message = ErrCodeValidation, "invalid value"
		return appErr
	}

	switch liteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrFull, sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrReadonly:
		appErr.Code, appErr.Message = ErrCodeUnavailable, "storage unavailable"
	default:
		appErr.Code, appErr.Message = ErrCodeInternal, "storage error"
	}
	return appErr
}

func foreignKeyMessage(table, constraint string) string {
	name := strings.ToLower(table + " " + constraint)
	switch {
	case strings.Contains(name, "queue"):
		return "referenced queue does not exist"
	case strings.Contains(name, "destination"):
		return "referenced destination does not exist"
	default:
		return "referenced record does not exist"
	}
}
