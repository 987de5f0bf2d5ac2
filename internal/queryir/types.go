package queryir

import "slices"

// TableSource is anything a FROM or JOIN clause can read rows from.
//
// This is a sealed interface - only TableReference and UnnestReference
// implement it.
type TableSource interface {
	tableSource() // Marker method - seals interface to this package
}

// TableReference names a table, optionally qualified by a named schema and
// given an alias.
//
// Renders as:
//
//	[schema.]name [AS alias]
type TableReference struct {
	Name   string `json:"name" yaml:"name"`
	Alias  string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

func (TableReference) tableSource() {}

// Table is a shorthand for an unaliased TableReference.
func Table(name string) TableReference {
	return TableReference{Name: name}
}

// As returns a copy of the reference with the given alias.
func (t TableReference) As(alias string) TableReference {
	t.Alias = alias
	return t
}

// UnnestReference is an array-unnest row source.
//
// Exactly one of Column and Values is used: Column renders UNNEST(column),
// Values binds the whole slice as a single array parameter and renders
// UNNEST(@paramN).
type UnnestReference struct {
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
	Values []any  `json:"values,omitempty" yaml:"values,omitempty"`
	Alias  string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

func (UnnestReference) tableSource() {}

// JoinType is the SQL join keyword.
type JoinType string

const (
	InnerJoin   JoinType = "INNER"
	LeftJoin    JoinType = "LEFT"
	RightJoin   JoinType = "RIGHT"
	FullJoin    JoinType = "FULL"
	CrossJoin   JoinType = "CROSS"
	NaturalJoin JoinType = "NATURAL"
)

// IsValid reports whether t is one of the supported join types.
func (t JoinType) IsValid() bool {
	switch t {
	case InnerJoin, LeftJoin, RightJoin, FullJoin, CrossJoin, NaturalJoin:
		return true
	}
	return false
}

// HasCondition reports whether joins of this type take an ON clause.
// CROSS and NATURAL joins never do.
func (t JoinType) HasCondition() bool {
	return t != CrossJoin && t != NaturalJoin
}

// JoinClause is one JOIN in a query.
type JoinClause struct {
	Type      JoinType
	Table     TableSource
	Condition *ConditionGroup // nil renders as ON TRUE for joins that take a condition
}

// AggregateFunc names an aggregate applied to a select column.
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// SelectColumn is one entry of the SELECT list.
//
// Rendering precedence:
//   - Aggregate set: FUNC(arg) where arg is Expression or Name, COUNT with
//     neither renders COUNT(*)
//   - Expression set: the raw expression
//   - otherwise: Name
//
// A non-empty Alias appends " AS alias".
type SelectColumn struct {
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	Alias      string        `json:"alias,omitempty" yaml:"alias,omitempty"`
	Expression string        `json:"expression,omitempty" yaml:"expression,omitempty"`
	Aggregate  AggregateFunc `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	Distinct   bool          `json:"distinct,omitempty" yaml:"distinct,omitempty"` // FUNC(DISTINCT arg)
}

// Col is a shorthand for a plain named column.
func Col(name string) SelectColumn {
	return SelectColumn{Name: name}
}

// As returns a copy of the column with the given output alias.
func (c SelectColumn) As(alias string) SelectColumn {
	c.Alias = alias
	return c
}

// Count returns COUNT(column), or COUNT(*) when column is empty.
func Count(column string) SelectColumn {
	return SelectColumn{Name: column, Aggregate: AggCount}
}

// Sum returns SUM(column).
func Sum(column string) SelectColumn {
	return SelectColumn{Name: column, Aggregate: AggSum}
}

// Avg returns AVG(column).
func Avg(column string) SelectColumn {
	return SelectColumn{Name: column, Aggregate: AggAvg}
}

// Min returns MIN(column).
func Min(column string) SelectColumn {
	return SelectColumn{Name: column, Aggregate: AggMin}
}

// Max returns MAX(column).
func Max(column string) SelectColumn {
	return SelectColumn{Name: column, Aggregate: AggMax}
}

// SelectList is the SELECT clause.
type SelectList struct {
	Columns  []SelectColumn
	Distinct bool
}

// SortDirection is ASC or DESC.
type SortDirection string

const (
	Asc  SortDirection = "ASC"
	Desc SortDirection = "DESC"
)

// NullsOrder places NULLs first or last in an ORDER BY item.
type NullsOrder string

const (
	NullsDefault NullsOrder = ""
	NullsFirst   NullsOrder = "FIRST"
	NullsLast    NullsOrder = "LAST"
)

// OrderBy is one ORDER BY item. An empty Direction renders as ASC.
type OrderBy struct {
	Column    string
	Direction SortDirection
	Nulls     NullsOrder
}

// SelectQuery is the aggregate root of the IR.
//
// Semantics:
//
//	SELECT [DISTINCT] <select> [FROM <from>] <joins...> [WHERE <where>]
//	[GROUP BY <groupBy>] [HAVING <having>] [ORDER BY <orderBy>]
//	[LIMIT <limit>] [OFFSET <offset>]
//
// Invariants (checked by ValidateSelectQuery):
//   - Having set ⇒ GroupBy non-empty
//   - non-empty output aliases are pairwise distinct
//   - Joins non-empty ⇒ From set
type SelectQuery struct {
	Select  SelectList
	From    *TableReference
	Joins   []JoinClause
	Where   *ConditionGroup
	GroupBy []string
	Having  *ConditionGroup
	OrderBy []OrderBy
	Limit   *int64
	Offset  *int64
}

// Clone returns a copy that shares no slices or pointers with q.
// Condition trees are cloned deeply.
func (q SelectQuery) Clone() SelectQuery {
	out := q
	out.Select.Columns = slices.Clone(q.Select.Columns)
	if q.From != nil {
		from := *q.From
		out.From = &from
	}
	if q.Joins != nil {
		out.Joins = make([]JoinClause, len(q.Joins))
		for i, j := range q.Joins {
			out.Joins[i] = j
			if j.Condition != nil {
				cond := j.Condition.Clone()
				out.Joins[i].Condition = &cond
			}
		}
	}
	out.Where = cloneGroupPtr(q.Where)
	out.Having = cloneGroupPtr(q.Having)
	out.GroupBy = slices.Clone(q.GroupBy)
	out.OrderBy = slices.Clone(q.OrderBy)
	if q.Limit != nil {
		n := *q.Limit
		out.Limit = &n
	}
	if q.Offset != nil {
		n := *q.Offset
		out.Offset = &n
	}
	return out
}

// WithColumns returns a copy of q with the columns appended to the SELECT list.
func (q SelectQuery) WithColumns(cols ...SelectColumn) SelectQuery {
	out := q.Clone()
	out.Select.Columns = append(out.Select.Columns, cols...)
	return out
}

// WithFrom returns a copy of q reading from t.
func (q SelectQuery) WithFrom(t TableReference) SelectQuery {
	out := q.Clone()
	out.From = &t
	return out
}

// WithJoin returns a copy of q with j appended to the join list.
func (q SelectQuery) WithJoin(j JoinClause) SelectQuery {
	out := q.Clone()
	if j.Condition != nil {
		cond := j.Condition.Clone()
		j.Condition = &cond
	}
	out.Joins = append(out.Joins, j)
	return out
}

// WithWhere returns a copy of q filtered by g, replacing any existing filter.
func (q SelectQuery) WithWhere(g ConditionGroup) SelectQuery {
	out := q.Clone()
	g = g.Clone()
	out.Where = &g
	return out
}

// WithGroupBy returns a copy of q with the columns appended to GROUP BY.
func (q SelectQuery) WithGroupBy(cols ...string) SelectQuery {
	out := q.Clone()
	out.GroupBy = append(out.GroupBy, cols...)
	return out
}

// WithHaving returns a copy of q with g as the HAVING filter.
func (q SelectQuery) WithHaving(g ConditionGroup) SelectQuery {
	out := q.Clone()
	g = g.Clone()
	out.Having = &g
	return out
}

// WithOrderBy returns a copy of q with the items appended to ORDER BY.
func (q SelectQuery) WithOrderBy(items ...OrderBy) SelectQuery {
	out := q.Clone()
	out.OrderBy = append(out.OrderBy, items...)
	return out
}

// WithLimit returns a copy of q with LIMIT n.
func (q SelectQuery) WithLimit(n int64) SelectQuery {
	out := q.Clone()
	out.Limit = &n
	return out
}

// WithOffset returns a copy of q with OFFSET n.
func (q SelectQuery) WithOffset(n int64) SelectQuery {
	out := q.Clone()
	out.Offset = &n
	return out
}

func cloneGroupPtr(g *ConditionGroup) *ConditionGroup {
	if g == nil {
		return nil
	}
	c := g.Clone()
	return &c
}
