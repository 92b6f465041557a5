// Package database builds parameterized SQL shared by the Postgres and SQLite stores.
//
// Placeholders are numbered $1..$N in order of first appearance so the same text binds
// positionally under both pgx and go-sqlite3.
package database

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	In                 ConditionType = "IN"
	IsNull             ConditionType = "IS NULL"
	IsNotNull          ConditionType = "IS NOT NULL"

	noLimit = -1
)

// ErrNoAssignments is returned by BuildUpdate when there is nothing to set.
var ErrNoAssignments = errors.New("update has no assignments")

type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereNotNull matches rows where field is not NULL.
func WhereNotNull(field string) Condition {
	return Condition{Field: field, Type: IsNotNull}
}

// Assignment is one SET entry of an UPDATE.
type Assignment struct {
	Column string
	Value  any
	// Once keeps an existing non-NULL value: column = COALESCE(column, $n).
	Once bool
}

func Set(column string, value any) Assignment {
	return Assignment{Column: column, Value: value}
}

func SetOnce(column string, value any) Assignment {
	return Assignment{Column: column, Value: value, Once: true}
}

type ListQueryOptions struct {
	Table string
	// Columns are sanitized identifiers.
	Columns []string
	// Aggregate, when set, replaces Columns with a trusted expression such as SumOf("quota_cost").
	Aggregate  string
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{Table: table, Limit: noLimit}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithSum selects COALESCE(SUM(column), 0) instead of Columns.
func WithSum(column string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Aggregate = fmt.Sprintf("COALESCE(SUM(%s), 0)", sanitizeIdentifier(column))
	}
}

func sanitizeIdentifier(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

// BuildListQuery renders SELECT ... FROM ... WHERE ... ORDER BY ... LIMIT.
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var query strings.Builder
	query.WriteString("SELECT ")
	switch {
	case options.Aggregate != "":
		query.WriteString(options.Aggregate)
	case len(options.Columns) == 0:
		query.WriteString("*")
	default:
		cols := make([]string, len(options.Columns))
		for i, c := range options.Columns {
			cols[i] = sanitizeIdentifier(c)
		}
		query.WriteString(strings.Join(cols, ", "))
	}
	query.WriteString(" FROM ")
	query.WriteString(sanitizeIdentifier(options.Table))

	where, args, next := buildWhereClause(options.Conditions, 1)
	if where != "" {
		query.WriteString(" ")
		query.WriteString(where)
	}

	if options.OrderBy != "" {
		query.WriteString(" ORDER BY ")
		query.WriteString(sanitizeIdentifier(options.OrderBy))
		if dir := strings.ToUpper(options.OrderDir); dir == "ASC" || dir == "DESC" {
			query.WriteString(" " + dir)
		}
	}
	if options.Limit != noLimit {
		fmt.Fprintf(&query, " LIMIT $%d", next)
		args = append(args, options.Limit)
	}
	return query.String(), args
}

// UpdateOptions describes a single-table UPDATE.
type UpdateOptions struct {
	Table      string
	Set        []Assignment
	Conditions []Condition
}

// BuildUpdate renders UPDATE ... SET ... WHERE ...; SET parameters precede WHERE parameters.
func BuildUpdate(options UpdateOptions) (string, []any, error) {
	if len(options.Set) == 0 {
		return "", nil, ErrNoAssignments
	}

	var query strings.Builder
	query.WriteString("UPDATE ")
	query.WriteString(sanitizeIdentifier(options.Table))
	query.WriteString(" SET ")

	args := make([]any, 0, len(options.Set)+len(options.Conditions))
	for i, a := range options.Set {
		if i > 0 {
			query.WriteString(", ")
		}
		col := sanitizeIdentifier(a.Column)
		if a.Once {
			fmt.Fprintf(&query, "%s = COALESCE(%s, $%d)", col, col, len(args)+1)
		} else {
			fmt.Fprintf(&query, "%s = $%d", col, len(args)+1)
		}
		args = append(args, a.Value)
	}

	where, whereArgs, _ := buildWhereClause(options.Conditions, len(args)+1)
	if where != "" {
		query.WriteString(" ")
		query.WriteString(where)
	}
	return query.String(), append(args, whereArgs...), nil
}

func buildWhereClause(conds []Condition, start int) (string, []any, int) {
	var parts []string
	var args []any
	param := start
	for _, cond := range conds {
		field := sanitizeIdentifier(cond.Field)
		switch cond.Type {
		case IsNull, IsNotNull:
			parts = append(parts, fmt.Sprintf("%s %s", field, cond.Type))
		case In:
			rv := reflect.ValueOf(cond.Value)
			if rv.Kind() != reflect.Slice || rv.Len() == 0 {
				// An empty IN list matches nothing.
				parts = append(parts, "1 = 0")
				continue
			}
			placeholders := make([]string, rv.Len())
			for i := range rv.Len() {
				placeholders[i] = fmt.Sprintf("$%d", param)
				args = append(args, rv.Index(i).Interface())
				param++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", ")))
		default:
			parts = append(parts, fmt.Sprintf("%s %s $%d", field, cond.Type, param))
			args = append(args, cond.Value)
			param++
		}
	}
	if len(parts) == 0 {
		return "", nil, param
	}
	return "WHERE " + strings.Join(parts, " AND "), args, param
}
