package transform

import (
	"strconv"
	"strings"

	"ContributionsETL/internal/domain"
)

// Literal renders a field as a SQL literal: NULL when absent, bare digits for
// all-digit values, otherwise a single-quoted string with quotes backslash-escaped.
func Literal(f domain.Field) string {
	if !f.Valid || f.Value == "" {
		return "NULL"
	}
	if isDigits(f.Value) {
		return f.Value
	}
	return "'" + strings.ReplaceAll(f.Value, "'", `\'`) + "'"
}

// Arg converts a field into a statement argument following the same rules as Literal.
func Arg(f domain.Field) any {
	if !f.Valid || f.Value == "" {
		return nil
	}
	if isDigits(f.Value) {
		if n, err := strconv.ParseInt(f.Value, 10, 64); err == nil {
			return n
		}
	}
	return f.Value
}

// Args converts a staging row into statement arguments aligned with domain.StagingColumns.
func Args(row domain.StagingRow) []any {
	fields := row.Fields()
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		args = append(args, Arg(f))
	}
	return append(args, row.IngestedAt)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
