package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spanq/internal/queryir"
)

// Document is a set of named queries loaded from a YAML, JSON or CUE file.
//
//	queries:
//	  active_users:
//	    select: {columns: [{name: id}, {name: name}]}
//	    from: {name: users}
//	    where: {and: [{column: active, op: "=", value: true}]}
type Document struct {
	Queries map[string]QueryDoc `json:"queries" yaml:"queries"`

	// positions records where each query was declared, when known.
	positions map[string]Position
}

// QueryDoc is the serialized form of a queryir.SelectQuery.
type QueryDoc struct {
	Select  SelectDoc               `json:"select" yaml:"select"`
	From    *queryir.TableReference `json:"from,omitempty" yaml:"from,omitempty"`
	Joins   []JoinDoc               `json:"joins,omitempty" yaml:"joins,omitempty"`
	Where   *NodeDoc                `json:"where,omitempty" yaml:"where,omitempty"`
	GroupBy []string                `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	Having  *NodeDoc                `json:"having,omitempty" yaml:"having,omitempty"`
	OrderBy []OrderDoc              `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Limit   *int64                  `json:"limit,omitempty" yaml:"limit,omitempty"`
	Offset  *int64                  `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// SelectDoc is the SELECT list.
type SelectDoc struct {
	Distinct bool                   `json:"distinct,omitempty" yaml:"distinct,omitempty"`
	Columns  []queryir.SelectColumn `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// JoinDoc is one join. Exactly one of Table and Unnest is set.
type JoinDoc struct {
	Type   string                   `json:"type" yaml:"type"`
	Table  *queryir.TableReference  `json:"table,omitempty" yaml:"table,omitempty"`
	Unnest *queryir.UnnestReference `json:"unnest,omitempty" yaml:"unnest,omitempty"`
	On     *NodeDoc                 `json:"on,omitempty" yaml:"on,omitempty"`
}

// OrderDoc is one ORDER BY item.
type OrderDoc struct {
	Column    string `json:"column" yaml:"column"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	Nulls     string `json:"nulls,omitempty" yaml:"nulls,omitempty"`
}

// NodeDoc is either a condition group ({and: [...]} or {or: [...]}) or a
// leaf ({column, op, value | values | ref | param | params}).
type NodeDoc struct {
	And []NodeDoc `json:"and,omitempty" yaml:"and,omitempty"`
	Or  []NodeDoc `json:"or,omitempty" yaml:"or,omitempty"`

	Column string   `json:"column,omitempty" yaml:"column,omitempty"`
	Op     string   `json:"op,omitempty" yaml:"op,omitempty"`
	Value  any      `json:"value,omitempty" yaml:"value,omitempty"`
	Values []any    `json:"values,omitempty" yaml:"values,omitempty"`
	Ref    string   `json:"ref,omitempty" yaml:"ref,omitempty"`
	Param  string   `json:"param,omitempty" yaml:"param,omitempty"`
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`
}

// NamedQuery is a compiled query with its document key.
type NamedQuery struct {
	Name  string
	Query queryir.SelectQuery
}

// Names returns the query names in sorted order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Queries))
	for name := range d.Queries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Position returns where the named query was declared.
func (d *Document) Position(name string) (Position, bool) {
	p, ok := d.positions[name]
	return p, ok
}

func (d *Document) setPosition(name string, p Position) {
	if d.positions == nil {
		d.positions = make(map[string]Position)
	}
	d.positions[name] = p
}

// CompileQuery compiles the named query.
func (d *Document) CompileQuery(name string) (queryir.SelectQuery, error) {
	doc, ok := d.Queries[name]
	if !ok {
		return queryir.SelectQuery{}, &CompileError{
			Field:   "queries",
			Message: fmt.Sprintf("query %q not found", name),
		}
	}
	q, err := doc.Compile()
	if err != nil {
		return queryir.SelectQuery{}, d.locate(name, err)
	}
	return q, nil
}

// Compile compiles every query in name order. Failing queries are skipped
// and their errors collected; the successful ones are still returned.
func (d *Document) Compile() ([]NamedQuery, []error) {
	var (
		out  []NamedQuery
		errs []error
	)
	for _, name := range d.Names() {
		q, err := d.CompileQuery(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, NamedQuery{Name: name, Query: q})
	}
	return out, errs
}

// locate prefixes the field path with the query name and attaches the
// query's position when the error has none.
func (d *Document) locate(name string, err error) error {
	ce, ok := err.(*CompileError)
	if !ok {
		return err
	}
	out := *ce
	out.Field = joinField("queries."+name, ce.Field)
	if !out.Pos.IsValid() {
		out.Pos = d.positions[name]
	}
	return &out
}

// Compile converts the document form into a queryir.SelectQuery.
// Only the shape is checked here; structural rules are left to
// queryir.ValidateSelectQuery.
func (q QueryDoc) Compile() (queryir.SelectQuery, error) {
	out := queryir.SelectQuery{
		Select: queryir.SelectList{
			Distinct: q.Select.Distinct,
			Columns:  slices.Clone(q.Select.Columns),
		},
		GroupBy: slices.Clone(q.GroupBy),
	}
	for i := range out.Select.Columns {
		out.Select.Columns[i].Aggregate = queryir.AggregateFunc(strings.ToUpper(string(out.Select.Columns[i].Aggregate)))
	}

	if q.From != nil {
		from := *q.From
		out.From = &from
	}

	for i, j := range q.Joins {
		join, err := j.compile()
		if err != nil {
			return queryir.SelectQuery{}, prefix(fmt.Sprintf("joins[%d]", i), err)
		}
		out.Joins = append(out.Joins, join)
	}

	var err error
	if out.Where, err = compileGroup("where", q.Where); err != nil {
		return queryir.SelectQuery{}, err
	}
	if out.Having, err = compileGroup("having", q.Having); err != nil {
		return queryir.SelectQuery{}, err
	}

	for _, o := range q.OrderBy {
		out.OrderBy = append(out.OrderBy, queryir.OrderBy{
			Column:    o.Column,
			Direction: queryir.SortDirection(strings.ToUpper(o.Direction)),
			Nulls:     queryir.NullsOrder(strings.ToUpper(o.Nulls)),
		})
	}

	if q.Limit != nil {
		n := *q.Limit
		out.Limit = &n
	}
	if q.Offset != nil {
		n := *q.Offset
		out.Offset = &n
	}
	return out, nil
}

func (j JoinDoc) compile() (queryir.JoinClause, error) {
	out := queryir.JoinClause{Type: queryir.JoinType(strings.ToUpper(j.Type))}

	switch {
	case j.Table != nil && j.Unnest != nil:
		return out, &CompileError{Field: "table", Message: "table and unnest are mutually exclusive"}
	case j.Table != nil:
		out.Table = *j.Table
	case j.Unnest != nil:
		u := *j.Unnest
		u.Values = normalizeSlice(u.Values)
		out.Table = u
	default:
		return out, &CompileError{Field: "table", Message: "table or unnest is required"}
	}

	cond, err := compileGroup("on", j.On)
	if err != nil {
		return out, err
	}
	out.Condition = cond
	return out, nil
}

// compileGroup compiles a clause root. A leaf at the root is wrapped in an
// AND group.
func compileGroup(field string, n *NodeDoc) (*queryir.ConditionGroup, error) {
	if n == nil {
		return nil, nil
	}
	node, err := n.compile(field)
	if err != nil {
		return nil, err
	}
	if g, ok := node.(queryir.ConditionGroup); ok {
		return &g, nil
	}
	g := queryir.AllOf(node)
	return &g, nil
}

func (n NodeDoc) isGroup() bool {
	return n.And != nil || n.Or != nil
}

func (n NodeDoc) compile(field string) (queryir.ConditionNode, error) {
	if n.isGroup() {
		if n.And != nil && n.Or != nil {
			return nil, &CompileError{Field: field, Message: "a group has either and or or, not both"}
		}
		if n.Column != "" || n.Op != "" {
			return nil, &CompileError{Field: field, Message: "a group cannot also be a condition"}
		}
		op, children, key := queryir.And, n.And, "and"
		if n.Or != nil {
			op, children, key = queryir.Or, n.Or, "or"
		}
		g := queryir.ConditionGroup{Type: op, Conditions: make([]queryir.ConditionNode, 0, len(children))}
		for i, child := range children {
			c, err := child.compile(fmt.Sprintf("%s.%s[%d]", field, key, i))
			if err != nil {
				return nil, err
			}
			g.Conditions = append(g.Conditions, c)
		}
		return g, nil
	}
	return n.leaf(field)
}

func (n NodeDoc) leaf(field string) (queryir.Condition, error) {
	if n.Column == "" {
		return queryir.Condition{}, &CompileError{Field: field, Message: "column is required"}
	}
	op := queryir.Operator(strings.ToUpper(strings.Join(strings.Fields(n.Op), " ")))
	typ, ok := queryir.TypeOf(op)
	if !ok {
		return queryir.Condition{}, &CompileError{Field: field + ".op", Message: fmt.Sprintf("unsupported operator %q", n.Op)}
	}

	c := queryir.Condition{
		Type:           typ,
		Column:         n.Column,
		Operator:       op,
		ParameterName:  n.Param,
		ParameterNames: slices.Clone(n.Params),
	}

	setters := 0
	for _, set := range []bool{n.Value != nil, n.Values != nil, n.Ref != ""} {
		if set {
			setters++
		}
	}
	if setters > 1 {
		return queryir.Condition{}, &CompileError{Field: field, Message: "value, values and ref are mutually exclusive"}
	}

	switch {
	case n.Ref != "":
		c.Value = queryir.ColumnRef(n.Ref)
	case typ == queryir.InCondition:
		c.Values = normalizeSlice(n.Values)
		if c.Values == nil && n.Value != nil {
			c.Values = []any{normalizeValue(n.Value)}
		}
	default:
		if n.Values != nil {
			return queryir.Condition{}, &CompileError{Field: field + ".values", Message: fmt.Sprintf("values is only valid for IN operators, got %s", op)}
		}
		c.Value = normalizeValue(n.Value)
	}
	return c, nil
}

// prefix adds a path element to a CompileError field.
func prefix(p string, err error) error {
	ce, ok := err.(*CompileError)
	if !ok {
		return err
	}
	out := *ce
	out.Field = joinField(p, ce.Field)
	return &out
}

func joinField(p, field string) string {
	if field == "" {
		return p
	}
	return p + "." + field
}
