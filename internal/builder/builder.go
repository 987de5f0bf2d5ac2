package builder

import (
	"errors"
	"strings"

	"github.com/roach88/spanq/internal/queryir"
	"github.com/roach88/spanq/internal/querysql"
)

// Builder composes a SelectQuery. The zero value is an empty builder.
type Builder struct {
	query  queryir.SelectQuery
	schema Schema
}

// New returns an empty builder.
func New() Builder {
	return Builder{}
}

// WithSchema returns a builder that checks references against s.
func (b Builder) WithSchema(s Schema) Builder {
	b.schema = s
	return b
}

// Select appends plain columns to the projection.
func (b Builder) Select(columns ...string) Builder {
	cols := make([]queryir.SelectColumn, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, queryir.Col(c))
	}
	return b.SelectColumns(cols...)
}

// SelectAs appends one aliased column.
func (b Builder) SelectAs(column, alias string) Builder {
	return b.SelectColumns(queryir.Col(column).As(alias))
}

// SelectColumns appends arbitrary select columns, including aggregates.
func (b Builder) SelectColumns(cols ...queryir.SelectColumn) Builder {
	b.query = b.query.WithColumns(cols...)
	return b
}

// Distinct marks the projection SELECT DISTINCT.
func (b Builder) Distinct() Builder {
	b.query = b.query.Clone()
	b.query.Select.Distinct = true
	return b
}

// From sets the FROM table.
func (b Builder) From(table string) Builder {
	b.query = b.query.WithFrom(queryir.Table(table))
	return b
}

// FromAs sets an aliased FROM table.
func (b Builder) FromAs(table, alias string) Builder {
	b.query = b.query.WithFrom(queryir.Table(table).As(alias))
	return b
}

// Join appends a join. The on conditions are AND-combined; with none, the
// join renders ON TRUE (or no ON for CROSS and NATURAL joins).
func (b Builder) Join(typ queryir.JoinType, table, alias string, on ...queryir.ConditionNode) Builder {
	j := queryir.JoinClause{Type: typ, Table: queryir.Table(table).As(alias)}
	if len(on) > 0 {
		g := queryir.AllOf(on...)
		j.Condition = &g
	}
	b.query = b.query.WithJoin(j)
	return b
}

// InnerJoin is Join with INNER.
func (b Builder) InnerJoin(table, alias string, on ...queryir.ConditionNode) Builder {
	return b.Join(queryir.InnerJoin, table, alias, on...)
}

// LeftJoin is Join with LEFT.
func (b Builder) LeftJoin(table, alias string, on ...queryir.ConditionNode) Builder {
	return b.Join(queryir.LeftJoin, table, alias, on...)
}

// CrossJoinUnnest appends CROSS JOIN UNNEST(column) AS alias.
func (b Builder) CrossJoinUnnest(column, alias string) Builder {
	b.query = b.query.WithJoin(queryir.JoinClause{
		Type:  queryir.CrossJoin,
		Table: queryir.UnnestReference{Column: column, Alias: alias},
	})
	return b
}

// Where AND-combines nodes into the WHERE clause.
func (b Builder) Where(nodes ...queryir.ConditionNode) Builder {
	b.query = b.query.WithWhere(appendAll(b.query.Where, nodes))
	return b
}

// WhereAny AND-combines a single OR group of nodes into the WHERE clause.
func (b Builder) WhereAny(nodes ...queryir.ConditionNode) Builder {
	return b.Where(queryir.AnyOf(nodes...))
}

// GroupBy appends GROUP BY columns.
func (b Builder) GroupBy(columns ...string) Builder {
	b.query = b.query.WithGroupBy(columns...)
	return b
}

// Having AND-combines nodes into the HAVING clause.
func (b Builder) Having(nodes ...queryir.ConditionNode) Builder {
	b.query = b.query.WithHaving(appendAll(b.query.Having, nodes))
	return b
}

// OrderBy appends an ORDER BY item.
func (b Builder) OrderBy(column string, dir queryir.SortDirection) Builder {
	b.query = b.query.WithOrderBy(queryir.OrderBy{Column: column, Direction: dir})
	return b
}

// OrderByNulls appends an ORDER BY item with explicit NULLS placement.
func (b Builder) OrderByNulls(column string, dir queryir.SortDirection, nulls queryir.NullsOrder) Builder {
	b.query = b.query.WithOrderBy(queryir.OrderBy{Column: column, Direction: dir, Nulls: nulls})
	return b
}

// Limit sets LIMIT.
func (b Builder) Limit(n int64) Builder {
	b.query = b.query.WithLimit(n)
	return b
}

// Offset sets OFFSET.
func (b Builder) Offset(n int64) Builder {
	b.query = b.query.WithOffset(n)
	return b
}

// Query returns a copy of the composed query after schema checks.
// Without a schema it never fails; structural validation happens in Build.
func (b Builder) Query() (queryir.SelectQuery, error) {
	q := b.query.Clone()
	if b.schema == nil {
		return q, nil
	}
	if err := checkSchema(b.schema, q); err != nil {
		return queryir.SelectQuery{}, err
	}
	return q, nil
}

// Build runs the schema checks and assembles the query.
func (b Builder) Build(opts ...querysql.Option) (querysql.Result, error) {
	q, err := b.Query()
	if err != nil {
		return querysql.Result{}, err
	}
	return querysql.Build(q, opts...)
}

func appendAll(g *queryir.ConditionGroup, nodes []queryir.ConditionNode) queryir.ConditionGroup {
	if g == nil {
		return queryir.AllOf(nodes...)
	}
	return g.With(nodes...)
}

// checkSchema collects every schema violation in q.
func checkSchema(s Schema, q queryir.SelectQuery) error {
	sc := newScope(s)
	var errs []error

	if q.From != nil {
		if err := sc.addTable(q.From.Name, q.From.Alias); err != nil {
			errs = append(errs, err)
		}
	}
	for _, j := range q.Joins {
		if err := sc.addSource(j.Table); err != nil {
			errs = append(errs, err)
		}
	}

	aliases := make(map[string]bool)
	for _, col := range q.Select.Columns {
		if col.Alias != "" {
			aliases[col.Alias] = true
		}
		if col.Name == "" {
			continue
		}
		if _, _, err := sc.resolve(col.Name); err != nil {
			errs = append(errs, err)
		}
	}

	for _, j := range q.Joins {
		if j.Condition != nil {
			errs = append(errs, checkConditions(sc, *j.Condition)...)
		}
	}
	if q.Where != nil {
		errs = append(errs, checkConditions(sc, *q.Where)...)
	}
	for _, col := range q.GroupBy {
		if _, _, err := sc.resolve(col); err != nil {
			errs = append(errs, err)
		}
	}
	if q.Having != nil {
		errs = append(errs, checkConditions(sc, *q.Having)...)
	}
	for _, item := range q.OrderBy {
		if aliases[item.Column] {
			continue
		}
		if _, _, err := sc.resolve(item.Column); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// checkConditions resolves every leaf column and checks bound values.
// Leaves over expressions such as COUNT(*) are not checked.
func checkConditions(sc *scope, node queryir.ConditionNode) []error {
	var errs []error
	switch n := node.(type) {
	case queryir.ConditionGroup:
		for _, child := range n.Conditions {
			errs = append(errs, checkConditions(sc, child)...)
		}
	case *queryir.ConditionGroup:
		if n != nil {
			errs = append(errs, checkConditions(sc, *n)...)
		}
	case queryir.Condition:
		errs = append(errs, checkCondition(sc, n)...)
	case *queryir.Condition:
		if n != nil {
			errs = append(errs, checkCondition(sc, *n)...)
		}
	}
	return errs
}

func checkCondition(sc *scope, c queryir.Condition) []error {
	if strings.ContainsAny(c.Column, "( ") {
		return nil
	}
	table, typ, err := sc.resolve(c.Column)
	if err != nil {
		return []error{err}
	}
	column := c.Column
	if _, after, ok := strings.Cut(column, "."); ok {
		column = after
	}

	var errs []error
	check := func(v any) {
		if ref, ok := v.(queryir.ColumnRef); ok {
			if _, _, err := sc.resolve(string(ref)); err != nil {
				errs = append(errs, err)
			}
			return
		}
		if err := checkValue(table, column, typ, v); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Operator.IsUnnest() {
		return errs
	}
	if c.Values != nil {
		for _, v := range c.Values {
			check(v)
		}
	} else if c.ParameterName == "" {
		check(c.Value)
	}
	return errs
}
