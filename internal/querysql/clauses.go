package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/spanq/internal/queryir"
)

// RenderSelectList renders the projection without the SELECT keyword.
// An empty list renders "*".
func RenderSelectList(list queryir.SelectList) string {
	cols := make([]string, 0, len(list.Columns))
	for _, col := range list.Columns {
		cols = append(cols, renderColumn(col))
	}

	body := "*"
	if len(cols) > 0 {
		body = strings.Join(cols, ", ")
	}
	if list.Distinct {
		return "DISTINCT " + body
	}
	return body
}

func renderColumn(col queryir.SelectColumn) string {
	expr := col.Expression
	if expr == "" {
		expr = col.Name
	}

	if col.Aggregate != "" {
		arg := expr
		if arg == "" {
			arg = "*"
		}
		if col.Distinct {
			arg = "DISTINCT " + arg
		}
		expr = fmt.Sprintf("%s(%s)", col.Aggregate, arg)
	}

	if alias := strings.TrimSpace(col.Alias); alias != "" {
		return expr + " AS " + alias
	}
	return expr
}

// RenderTableReference renders [schema.]name [AS alias].
func RenderTableReference(t queryir.TableReference) string {
	var b strings.Builder
	if t.Schema != "" {
		b.WriteString(t.Schema)
		b.WriteByte('.')
	}
	b.WriteString(t.Name)
	if t.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(t.Alias)
	}
	return b.String()
}

// RenderJoin renders one join clause, binding any literals in its ON
// condition (or UNNEST values) through m.
//
// CROSS and NATURAL joins never carry ON. Other joins without a condition
// render ON TRUE.
func RenderJoin(m ParameterManager, j queryir.JoinClause) (string, ParameterManager, error) {
	op := string(j.Type) + " JOIN"
	if !j.Type.IsValid() {
		return "", m, renderErrorf(op, "unsupported join type %q", j.Type)
	}

	source, next, err := renderSource(m, j.Table, op)
	if err != nil {
		return "", m, err
	}

	sql := op + " " + source
	if !j.Type.HasCondition() {
		return sql, next, nil
	}

	on := "TRUE"
	if j.Condition != nil {
		on, next, err = RenderCondition(next, *j.Condition)
		if err != nil {
			return "", m, err
		}
	}
	return sql + " ON " + on, next, nil
}

func renderSource(m ParameterManager, src queryir.TableSource, op string) (string, ParameterManager, error) {
	switch s := src.(type) {
	case queryir.TableReference:
		return RenderTableReference(s), m, nil
	case *queryir.TableReference:
		if s != nil {
			return RenderTableReference(*s), m, nil
		}
	case queryir.UnnestReference:
		return renderUnnest(m, s, op)
	case *queryir.UnnestReference:
		if s != nil {
			return renderUnnest(m, *s, op)
		}
	}
	return "", m, renderErrorf(op, "unsupported table source %T", src)
}

// renderUnnest renders UNNEST(column) or UNNEST(@paramN) with the whole
// value list bound as one array.
func renderUnnest(m ParameterManager, u queryir.UnnestReference, op string) (string, ParameterManager, error) {
	var arg string
	switch {
	case u.Column != "":
		arg = u.Column
	case len(u.Values) > 0:
		m, arg = AddParameter(m, u.Values)
	default:
		return "", m, renderErrorf(op, "UNNEST requires a column or values")
	}

	sql := "UNNEST(" + arg + ")"
	if u.Alias != "" {
		sql += " AS " + u.Alias
	}
	return sql, m, nil
}

// RenderGroupBy renders the GROUP BY column list without the keyword.
func RenderGroupBy(cols []string) string {
	trimmed := make([]string, 0, len(cols))
	for _, c := range cols {
		trimmed = append(trimmed, strings.TrimSpace(c))
	}
	return strings.Join(trimmed, ", ")
}

// RenderOrderBy renders the ORDER BY list without the keyword. Direction is
// always explicit; ASC is the default.
func RenderOrderBy(items []queryir.OrderBy) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		dir := item.Direction
		if dir == "" {
			dir = queryir.Asc
		}
		part := fmt.Sprintf("%s %s", strings.TrimSpace(item.Column), dir)
		if item.Nulls != queryir.NullsDefault {
			part += " NULLS " + string(item.Nulls)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// RenderPagination renders LIMIT and OFFSET with both values bound through
// m, LIMIT first. Either may be nil; Build rejects an OFFSET without a LIMIT
// before rendering.
func RenderPagination(m ParameterManager, limit, offset *int64) (string, ParameterManager) {
	var parts []string
	if limit != nil {
		var ref string
		m, ref = AddParameter(m, *limit)
		parts = append(parts, "LIMIT "+ref)
	}
	if offset != nil {
		var ref string
		m, ref = AddParameter(m, *offset)
		parts = append(parts, "OFFSET "+ref)
	}
	return strings.Join(parts, " "), m
}
