package queryir

import (
	"regexp"
	"strings"
)

// Spanner identifier limits.
const (
	MaxTableNameLength  = 128
	MaxTableAliasLength = 64
)

// identifierRegex matches unquoted identifiers: a letter or underscore
// followed by letters, digits, or underscores.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedKeywords are the GoogleSQL reserved words. Table names matching one
// of them (case-insensitively) would need quoting and are rejected instead.
var reservedKeywords = toSet(
	"ALL", "AND", "ANY", "ARRAY", "AS", "ASC", "ASSERT_ROWS_MODIFIED", "AT",
	"BETWEEN", "BY", "CASE", "CAST", "COLLATE", "CONTAINS", "CREATE", "CROSS",
	"CUBE", "CURRENT", "DEFAULT", "DEFINE", "DESC", "DISTINCT", "ELSE", "END",
	"ENUM", "ESCAPE", "EXCEPT", "EXCLUDE", "EXISTS", "EXTRACT", "FALSE", "FETCH",
	"FOLLOWING", "FOR", "FROM", "FULL", "GROUP", "GROUPING", "GROUPS", "HASH",
	"HAVING", "IF", "IGNORE", "IN", "INNER", "INTERSECT", "INTERVAL", "INTO",
	"IS", "JOIN", "LATERAL", "LEFT", "LIKE", "LIMIT", "LOOKUP", "MERGE",
	"NATURAL", "NEW", "NO", "NOT", "NULL", "NULLS", "OF", "ON", "OR", "ORDER",
	"OUTER", "OVER", "PARTITION", "PRECEDING", "PROTO", "RANGE", "RECURSIVE",
	"RESPECT", "RIGHT", "ROLLUP", "ROWS", "SELECT", "SET", "SOME", "STRUCT",
	"TABLESAMPLE", "THEN", "TO", "TREAT", "TRUE", "UNBOUNDED", "UNION", "UNNEST",
	"USING", "WHEN", "WHERE", "WINDOW", "WITH", "WITHIN",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsReservedKeyword reports whether s is a reserved word, ignoring case.
func IsReservedKeyword(s string) bool {
	_, ok := reservedKeywords[strings.ToUpper(s)]
	return ok
}

// ValidateTableName checks a table (or schema) name and returns it trimmed.
//
// Rejects non-string input, empty or whitespace-only strings, names longer
// than MaxTableNameLength, names outside ^[A-Za-z_][A-Za-z0-9_]*$, and
// reserved keywords. Failures are *ValidationError with code
// INVALID_TABLE_NAME.
func ValidateTableName(v any) (string, error) {
	name, err := validateIdentifier(v, ErrCodeInvalidTableName, "table name", MaxTableNameLength)
	if err != nil {
		return "", err
	}
	if IsReservedKeyword(name) {
		return "", newValidationError(ErrCodeInvalidTableName, ConstraintReservedKeyword, v,
			"table name %q is a reserved keyword", name)
	}
	return name, nil
}

// ValidateTableAlias checks a table alias and returns it trimmed.
//
// Same rules as ValidateTableName with a MaxTableAliasLength limit and no
// keyword check. Failures carry code INVALID_TABLE_ALIAS.
func ValidateTableAlias(v any) (string, error) {
	return validateIdentifier(v, ErrCodeInvalidTableAlias, "table alias", MaxTableAliasLength)
}

func validateIdentifier(v any, code ErrorCode, what string, maxLen int) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", newValidationError(code, ConstraintType, v, "%s must be a string, got %T", what, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", newValidationError(code, ConstraintRequired, v, "%s cannot be empty", what)
	}
	if len(s) > maxLen {
		return "", newValidationError(code, ConstraintMaxLength, v,
			"%s %q exceeds maximum length of %d", what, s, maxLen)
	}
	if !identifierRegex.MatchString(s) {
		return "", newValidationError(code, ConstraintPattern, v,
			"%s %q must start with a letter or underscore and contain only letters, digits, and underscores", what, s)
	}
	return s, nil
}
