package querysql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/spanq/internal/queryir"
)

// renderer threads one ParameterManager through a depth-first walk.
// Every bound value is admitted at the moment its placeholder is written,
// so placeholder numbers follow textual order.
type renderer struct {
	params ParameterManager
}

// RenderCondition renders node as a SQL boolean expression, binding every
// literal through m. It returns the SQL fragment and the updated manager;
// m itself is not modified.
func RenderCondition(m ParameterManager, node queryir.ConditionNode) (string, ParameterManager, error) {
	r := &renderer{params: m}
	sql, err := r.node(node, "")
	if err != nil {
		return "", m, err
	}
	return sql, r.params, nil
}

func (r *renderer) bind(v any) string {
	var ref string
	r.params, ref = AddParameter(r.params, v)
	return ref
}

// node renders a condition or group. parent is the logical operator of the
// enclosing group, empty at the root.
func (r *renderer) node(n queryir.ConditionNode, parent queryir.LogicalOperator) (string, error) {
	switch node := n.(type) {
	case queryir.Condition:
		return r.condition(node)
	case *queryir.Condition:
		if node == nil {
			return "", renderErrorf("", "nil condition")
		}
		return r.condition(*node)
	case queryir.ConditionGroup:
		return r.group(node, parent)
	case *queryir.ConditionGroup:
		if node == nil {
			return "", renderErrorf("", "nil condition group")
		}
		return r.group(*node, parent)
	case nil:
		return "", renderErrorf("", "nil condition node")
	default:
		return "", renderErrorf("", "unsupported condition node %T", n)
	}
}

// group joins children with the group's keyword. A child group with a
// different operator than its parent is parenthesized. An empty group is
// always true.
func (r *renderer) group(g queryir.ConditionGroup, parent queryir.LogicalOperator) (string, error) {
	op := g.Type
	switch op {
	case "":
		op = queryir.And
	case queryir.And, queryir.Or:
	default:
		return "", renderErrorf("", "unsupported logical operator %q", g.Type)
	}

	if len(g.Conditions) == 0 {
		return "TRUE", nil
	}

	parts := make([]string, 0, len(g.Conditions))
	for _, child := range g.Conditions {
		sql, err := r.node(child, op)
		if err != nil {
			return "", err
		}
		if childOp, ok := groupOperator(child); ok && childOp != op {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
	}

	return strings.Join(parts, " "+op.Keyword()+" "), nil
}

func groupOperator(n queryir.ConditionNode) (queryir.LogicalOperator, bool) {
	var g queryir.ConditionGroup
	switch node := n.(type) {
	case queryir.ConditionGroup:
		g = node
	case *queryir.ConditionGroup:
		g = *node
	default:
		return "", false
	}
	if g.Type == "" {
		return queryir.And, true
	}
	return g.Type, true
}

// condition renders one leaf.
func (r *renderer) condition(c queryir.Condition) (string, error) {
	col := strings.TrimSpace(c.Column)
	if col == "" {
		return "", renderErrorf(string(c.Operator), "condition column is required")
	}

	typ, ok := queryir.TypeOf(c.Operator)
	if !ok {
		return "", renderErrorf(string(c.Operator), "unsupported operator %q", c.Operator)
	}
	if c.Type != "" && c.Type != typ {
		return "", renderErrorf(string(c.Operator), "operator %q is not valid for %s conditions", c.Operator, c.Type)
	}

	switch typ {
	case queryir.ComparisonCondition:
		return r.comparison(col, c)
	case queryir.InCondition:
		return r.in(col, c)
	case queryir.LikeCondition:
		ref, err := r.value(c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", col, c.Operator, ref), nil
	case queryir.NullCondition:
		return fmt.Sprintf("%s %s", col, c.Operator), nil
	case queryir.FunctionCondition:
		ref, err := r.value(c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s, %s)", c.Operator, col, ref), nil
	}
	return "", renderErrorf(string(c.Operator), "unsupported condition type %q", typ)
}

// comparison rewrites equality against NULL to IS [NOT] NULL.
func (r *renderer) comparison(col string, c queryir.Condition) (string, error) {
	if c.ParameterName == "" && isNull(c.Value) {
		switch c.Operator {
		case queryir.OpEq:
			return col + " IS NULL", nil
		case queryir.OpNe, queryir.OpLtGt:
			return col + " IS NOT NULL", nil
		}
	}

	ref, err := r.value(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", col, c.Operator, ref), nil
}

// value returns the placeholder or column reference for c.Value.
func (r *renderer) value(c queryir.Condition) (string, error) {
	if c.ParameterName != "" {
		return r.preBound(c.Operator, c.ParameterName)
	}
	switch v := c.Value.(type) {
	case queryir.ColumnRef:
		return string(v), nil
	case *queryir.ColumnRef:
		if v != nil {
			return string(*v), nil
		}
	}
	return r.bind(c.Value), nil
}

func (r *renderer) preBound(op queryir.Operator, name string) (string, error) {
	name = strings.TrimPrefix(name, "@")
	if _, ok := r.params.Lookup(name); !ok {
		return "", renderErrorf(string(op), "parameter %q is not bound", name)
	}
	return "@" + name, nil
}

func (r *renderer) in(col string, c queryir.Condition) (string, error) {
	if c.Operator.IsUnnest() {
		ref, err := r.unnestArg(c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s(%s)", col, c.Operator, ref), nil
	}

	var refs []string
	if len(c.ParameterNames) > 0 {
		for _, name := range c.ParameterNames {
			ref, err := r.preBound(c.Operator, name)
			if err != nil {
				return "", err
			}
			refs = append(refs, ref)
		}
	} else {
		if len(c.Values) == 0 {
			return "", renderErrorf(string(c.Operator), "%s list for %q is empty", c.Operator, col)
		}
		for _, v := range c.Values {
			if ref, ok := v.(queryir.ColumnRef); ok {
				refs = append(refs, string(ref))
				continue
			}
			refs = append(refs, r.bind(v))
		}
	}
	return fmt.Sprintf("%s %s (%s)", col, c.Operator, strings.Join(refs, ", ")), nil
}

// unnestArg binds the whole value list as a single array parameter.
// A single slice value is bound as-is.
func (r *renderer) unnestArg(c queryir.Condition) (string, error) {
	switch {
	case c.ParameterName != "":
		return r.preBound(c.Operator, c.ParameterName)
	case len(c.ParameterNames) == 1:
		return r.preBound(c.Operator, c.ParameterNames[0])
	case len(c.Values) == 1 && isSequence(c.Values[0]):
		return r.bind(c.Values[0]), nil
	case len(c.Values) > 0:
		return r.bind(c.Values), nil
	case isSequence(c.Value):
		return r.bind(c.Value), nil
	}
	return "", renderErrorf(string(c.Operator), "%s array for %q is empty", c.Operator, c.Column)
}

// isNull reports whether v is nil or a nil pointer.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		_, isBytes := v.([]byte)
		return !isBytes
	}
	return false
}
