// Package errors derives short, stable category names from errors for metric tags and
// failure labels. Category names never include the error text.
package errors

import (
	"context"
	goerrors "errors"
	"io/fs"
	"reflect"
	"strings"
)

// Classify returns a normalized error type name suitable for tagging metrics/logs.
// It unwraps errors until the innermost concrete type is found and converts it to snake_case-ish.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}

// Category maps well-known conditions to fixed labels and falls back to Classify.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, fs.ErrNotExist):
		return "file_not_found"
	case goerrors.Is(err, fs.ErrPermission):
		return "permission_denied"
	}
	var pathErr *fs.PathError
	if goerrors.As(err, &pathErr) {
		return "io_error"
	}
	return Classify(err)
}
