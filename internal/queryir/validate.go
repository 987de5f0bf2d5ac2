package queryir

import (
	"fmt"
	"strings"
)

// ValidateSelectQuery checks the cross-clause rules of a query.
//
// Rules:
//  1. HAVING requires a non-empty GROUP BY (INVALID_HAVING_CLAUSE)
//  2. Non-empty output aliases are pairwise distinct
//  3. JOIN requires FROM
//  4. FROM and JOIN table names, schemas and aliases are valid identifiers
//  5. Select columns, join types, ORDER BY items and LIMIT/OFFSET are well-formed
//  6. Column aliases are not reserved keywords
//  7. OFFSET requires LIMIT
//
// Every rule is evaluated; violations are not short-circuited. On failure the
// returned error is a single *ValidationError with code INVALID_SELECT_QUERY
// whose Details.Errors lists every violation. On success the returned query
// carries trimmed table names and aliases.
//
// ValidateSelectQuery is a pure function with no side effects.
func ValidateSelectQuery(q SelectQuery) (SelectQuery, error) {
	v := &validator{}
	out := q.Clone()

	v.validateColumns(out.Select.Columns)
	if out.From != nil {
		v.validateTable(out.From)
	}
	v.validateJoins(out)
	v.validateGrouping(out)
	v.validateOrderBy(out.OrderBy)
	v.validatePagination(out)

	if len(v.errs) > 0 {
		return SelectQuery{}, newAggregateError(v.errs)
	}
	return out, nil
}

// validator accumulates violations during traversal.
type validator struct {
	errs []*ValidationError
}

func (v *validator) add(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		v.errs = append(v.errs, ve)
		return
	}
	v.errs = append(v.errs, &ValidationError{Code: ErrCodeInvalidSelectQuery, Message: err.Error()})
}

func (v *validator) addf(code ErrorCode, constraint string, value any, format string, args ...any) {
	v.errs = append(v.errs, newValidationError(code, constraint, value, format, args...))
}

// validateColumns checks each select column and alias uniqueness.
func (v *validator) validateColumns(cols []SelectColumn) {
	seen := make(map[string]bool)
	reported := make(map[string]bool)

	for i, col := range cols {
		if col.Aggregate != "" && !isKnownAggregate(col.Aggregate) {
			v.addf(ErrCodeInvalidSelectQuery, ConstraintKnownValue, string(col.Aggregate),
				"column %d: unsupported aggregate %q", i, col.Aggregate)
		}
		if col.Name == "" && col.Expression == "" && col.Aggregate != AggCount {
			v.addf(ErrCodeInvalidSelectQuery, ConstraintRequired, nil,
				"column %d: name or expression is required", i)
		}

		alias := strings.TrimSpace(col.Alias)
		if alias == "" {
			continue
		}
		if !identifierRegex.MatchString(alias) {
			v.addf(ErrCodeInvalidSelectQuery, ConstraintPattern, col.Alias,
				"column alias %q must start with a letter or underscore and contain only letters, digits, and underscores", alias)
		}
		if IsReservedKeyword(alias) {
			v.addf(ErrCodeInvalidSelectQuery, ConstraintReservedKeyword, col.Alias,
				"column alias %q is a reserved keyword", alias)
		}
		if seen[alias] {
			if !reported[alias] {
				v.errs = append(v.errs, &ValidationError{
					Code:    ErrCodeInvalidSelectQuery,
					Message: fmt.Sprintf("duplicate column alias %q", alias),
					Details: Details{Value: alias, Constraint: ConstraintDuplicateAlias, Alias: alias},
				})
				reported[alias] = true
			}
			continue
		}
		seen[alias] = true
	}
}

// validateTable checks and trims a table reference in place.
func (v *validator) validateTable(t *TableReference) {
	if name, err := ValidateTableName(t.Name); err != nil {
		v.add(err)
	} else {
		t.Name = name
	}
	if t.Schema != "" {
		if schema, err := ValidateTableName(t.Schema); err != nil {
			v.add(err)
		} else {
			t.Schema = schema
		}
	}
	if t.Alias != "" {
		if alias, err := ValidateTableAlias(t.Alias); err != nil {
			v.add(err)
		} else {
			t.Alias = alias
		}
	}
}

// validateJoins checks join types, sources and the FROM requirement.
func (v *validator) validateJoins(q SelectQuery) {
	if len(q.Joins) > 0 && q.From == nil {
		v.addf(ErrCodeInvalidSelectQuery, ConstraintFromRequired, nil,
			"JOIN requires a FROM clause")
	}

	for i := range q.Joins {
		join := &q.Joins[i]
		if !join.Type.IsValid() {
			v.addf(ErrCodeInvalidSelectQuery, ConstraintKnownValue, string(join.Type),
				"join %d: unsupported join type %q", i, join.Type)
		}

		switch src := join.Table.(type) {
		case TableReference:
			v.validateTable(&src)
			join.Table = src
		case *TableReference:
			if src == nil {
				v.addf(ErrCodeInvalidSelectQuery, ConstraintRequired, nil,
					"join %d: table is required", i)
				continue
			}
			t := *src
			v.validateTable(&t)
			join.Table = t
		case UnnestReference:
			v.validateUnnest(i, src)
		case *UnnestReference:
			if src == nil {
				v.addf(ErrCodeInvalidSelectQuery, ConstraintRequired, nil,
					"join %d: UNNEST source is required", i)
				continue
			}
			v.validateUnnest(i, *src)
			join.Table = *src
		case nil:
			v.addf(ErrCodeInvalidSelectQuery, ConstraintRequired, nil,
				"join %d: table is required", i)
		default:
			v.addf(ErrCodeInvalidSelectQuery, ConstraintKnownValue, nil,
				"join %d: unsupported table source %T", i, src)
		}
	}
}

func (v *validator) validateUnnest(i int, u UnnestReference) {
	if u.Column == "" && len(u.Values) == 0 {
		v.addf(ErrCodeInvalidSelectQuery, ConstraintRequired, nil,
			"join %d: UNNEST requires a column or values", i)
	}
	if u.Alias != "" {
		if _, err := ValidateTableAlias(u.Alias); err != nil {
			v.add(err)
		}
	}
}

// validateGrouping enforces HAVING ⇒ GROUP BY.
func (v *validator) validateGrouping(q SelectQuery) {
	for i, col := range q.GroupBy {
		if strings.TrimSpace(col) == "" {
			v.addf(ErrCodeInvalidSelectQuery, ConstraintRequired, col,
				"GROUP BY item %d is empty", i)
		}
	}
	if q.Having != nil && len(q.GroupBy) == 0 {
		v.addf(ErrCodeInvalidHavingClause, ConstraintGroupBy, nil,
			"HAVING clause requires GROUP BY")
	}
}

func (v *validator) validateOrderBy(items []OrderBy) {
	for i, item := range items {
		if strings.TrimSpace(item.Column) == "" {
			v.addf(ErrCodeInvalidSelectQuery, ConstraintRequired, nil,
				"ORDER BY item %d: column is required", i)
		}
		switch item.Direction {
		case "", Asc, Desc:
		default:
			v.addf(ErrCodeInvalidSelectQuery, ConstraintKnownValue, string(item.Direction),
				"ORDER BY item %d: unsupported direction %q", i, item.Direction)
		}
		switch item.Nulls {
		case NullsDefault, NullsFirst, NullsLast:
		default:
			v.addf(ErrCodeInvalidSelectQuery, ConstraintKnownValue, string(item.Nulls),
				"ORDER BY item %d: unsupported NULLS order %q", i, item.Nulls)
		}
	}
}

func (v *validator) validatePagination(q SelectQuery) {
	if q.Limit != nil && *q.Limit < 0 {
		v.addf(ErrCodeInvalidSelectQuery, ConstraintNonNegative, *q.Limit,
			"LIMIT must be non-negative, got %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset < 0 {
		v.addf(ErrCodeInvalidSelectQuery, ConstraintNonNegative, *q.Offset,
			"OFFSET must be non-negative, got %d", *q.Offset)
	}
	if q.Offset != nil && q.Limit == nil {
		v.addf(ErrCodeInvalidSelectQuery, ConstraintLimitRequired, *q.Offset,
			"OFFSET requires LIMIT")
	}
}

func isKnownAggregate(f AggregateFunc) bool {
	switch f {
	case AggCount, AggSum, AggAvg, AggMin, AggMax:
		return true
	}
	return false
}
