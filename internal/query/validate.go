package query

import (
	"errors"
	"strings"
)

var (
	ErrSQLRequired       = errors.New("sql is required")
	ErrSQLMultiStatement = errors.New("multi-statement sql is not allowed")
	ErrSQLNotAllowed     = errors.New("only SELECT or WITH queries are allowed")
)

// ValidateUserSQL applies a syntactic allow-list to ad-hoc SQL and returns the
// cleaned statement: one trailing semicolon is stripped, any other semicolon
// rejects the input, and the text must open with a read-only query keyword.
// The check is purely textual; the engine still sees the cleaned statement
// as-is.
func ValidateUserSQL(sqlText string) (string, error) {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return "", ErrSQLRequired
	}
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	if trimmed == "" {
		return "", ErrSQLRequired
	}
	if strings.Contains(trimmed, ";") {
		return "", ErrSQLMultiStatement
	}
	lowered := strings.ToLower(trimmed)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return "", ErrSQLNotAllowed
	}
	return trimmed, nil
}
