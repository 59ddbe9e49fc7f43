package util

import (
	"database/sql"
	"strings"
)

// StringToNullString converts a string to sql.NullString.
// An empty string is treated as NULL, which is also how Oracle stores it.
func StringToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// SQLite or Oracle.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "ORA-00001")
}
