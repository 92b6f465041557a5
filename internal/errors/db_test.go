package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_Codes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  ErrorCode
		wantField string
	}{
		{name: "deadline", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: fmt.Errorf("query: %w", context.Canceled), wantCode: ErrCodeCanceled},
		{name: "pgx no rows", err: pgx.ErrNoRows, wantCode: ErrCodeNotFound},
		{name: "sql no rows", err: sql.ErrNoRows, wantCode: ErrCodeNotFound},
		{
			name:      "pg unique from detail",
			err:       &pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: "Key (id)=(abc) already exists."},
			wantCode:  ErrCodeConflict,
			wantField: "id",
		},
		{
			name:     "pg foreign key",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "destinations_queue_id_fkey"},
			wantCode: ErrCodeForeignKey,
		},
		{
			name:      "pg not null",
			err:       &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "short_user"},
			wantCode:  ErrCodeValidation,
			wantField: "short_user",
		},
		{name: "pg connection", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, wantCode: ErrCodeUnavailable},
		{name: "pg other", err: &pgconn.PgError{Code: pgerrcode.DivisionByZero}, wantCode: ErrCodeInternal},
		{
			name:     "sqlite primary key",
			err:      sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey},
			wantCode: ErrCodeConflict,
		},
		{
			name:     "sqlite foreign key",
			err:      sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey},
			wantCode: ErrCodeForeignKey,
		},
		{name: "sqlite busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, wantCode: ErrCodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err)
			assert.Equal(t, tt.wantCode, GetCode(got))
			assert.Equal(t, tt.wantField, GetField(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapDBError_PassesThroughUnknown(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, MapDBError(plain))
}

func TestForeignKeyMessage(t *testing.T) {
	assert.Equal(t, "referenced queue does not exist", foreignKeyMessage("destinations", "destinations_queue_id_fkey"))
	assert.Equal(t, "referenced record does not exist", foreignKeyMessage("", ""))
}
