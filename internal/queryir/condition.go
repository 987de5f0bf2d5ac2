package queryir

import "slices"

// ConditionNode is either a leaf Condition or a ConditionGroup.
//
// This is a sealed interface - only types in this package implement it.
// Renderers switch on the concrete type instead of sniffing fields.
type ConditionNode interface {
	conditionNode() // Marker method - seals interface to this package
}

// ConditionType selects how a leaf condition is rendered.
type ConditionType string

const (
	ComparisonCondition ConditionType = "comparison"
	InCondition         ConditionType = "in"
	LikeCondition       ConditionType = "like"
	NullCondition       ConditionType = "null"
	FunctionCondition   ConditionType = "function"
)

// Operator is the SQL operator of a leaf condition.
type Operator string

const (
	OpEq   Operator = "="
	OpNe   Operator = "!="
	OpLtGt Operator = "<>"
	OpLt   Operator = "<"
	OpLte  Operator = "<="
	OpGt   Operator = ">"
	OpGte  Operator = ">="

	OpIn          Operator = "IN"
	OpNotIn       Operator = "NOT IN"
	OpInUnnest    Operator = "IN UNNEST"
	OpNotInUnnest Operator = "NOT IN UNNEST"

	OpLike    Operator = "LIKE"
	OpNotLike Operator = "NOT LIKE"

	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"

	OpStartsWith Operator = "STARTS_WITH"
	OpEndsWith   Operator = "ENDS_WITH"
)

// operatorTypes maps every supported operator to the condition type that
// renders it.
var operatorTypes = map[Operator]ConditionType{
	OpEq:          ComparisonCondition,
	OpNe:          ComparisonCondition,
	OpLtGt:        ComparisonCondition,
	OpLt:          ComparisonCondition,
	OpLte:         ComparisonCondition,
	OpGt:          ComparisonCondition,
	OpGte:         ComparisonCondition,
	OpIn:          InCondition,
	OpNotIn:       InCondition,
	OpInUnnest:    InCondition,
	OpNotInUnnest: InCondition,
	OpLike:        LikeCondition,
	OpNotLike:     LikeCondition,
	OpIsNull:      NullCondition,
	OpIsNotNull:   NullCondition,
	OpStartsWith:  FunctionCondition,
	OpEndsWith:    FunctionCondition,
}

// TypeOf returns the condition type that renders op, and false for unknown
// operators.
func TypeOf(op Operator) (ConditionType, bool) {
	t, ok := operatorTypes[op]
	return t, ok
}

// IsUnnest reports whether op is one of the IN UNNEST forms.
func (op Operator) IsUnnest() bool {
	return op == OpInUnnest || op == OpNotInUnnest
}

// ColumnRef used as a Condition value renders as a bare column reference
// instead of a bound parameter, e.g. ON orders.user_id = users.id.
type ColumnRef string

// Condition is a single leaf predicate over one column.
//
// Value is used by comparison, like and function conditions; Values by in
// conditions; null conditions use neither. A nil Value is SQL NULL.
//
// ParameterName and ParameterNames optionally name placeholders (without the
// leading @) that are already bound in the parameter manager the build starts
// from. When set they are rendered verbatim instead of binding Value/Values.
type Condition struct {
	Type           ConditionType
	Column         string
	Operator       Operator
	Value          any
	Values         []any
	ParameterName  string
	ParameterNames []string
}

func (Condition) conditionNode() {}

// LogicalOperator combines the children of a ConditionGroup.
type LogicalOperator string

const (
	And LogicalOperator = "and"
	Or  LogicalOperator = "or"
)

// Keyword returns the SQL keyword for the operator.
func (op LogicalOperator) Keyword() string {
	if op == Or {
		return "OR"
	}
	return "AND"
}

// ConditionGroup combines conditions and nested groups with AND or OR.
// Children keep insertion order. An empty group means "always true".
type ConditionGroup struct {
	Type       LogicalOperator
	Conditions []ConditionNode
}

func (ConditionGroup) conditionNode() {}

// AllOf returns an AND group of the nodes.
func AllOf(nodes ...ConditionNode) ConditionGroup {
	return ConditionGroup{Type: And, Conditions: slices.Clone(nodes)}
}

// AnyOf returns an OR group of the nodes.
func AnyOf(nodes ...ConditionNode) ConditionGroup {
	return ConditionGroup{Type: Or, Conditions: slices.Clone(nodes)}
}

// With returns a copy of g with the nodes appended.
func (g ConditionGroup) With(nodes ...ConditionNode) ConditionGroup {
	out := g.Clone()
	out.Conditions = append(out.Conditions, nodes...)
	return out
}

// IsEmpty reports whether the group has no children.
func (g ConditionGroup) IsEmpty() bool {
	return len(g.Conditions) == 0
}

// Clone deep-copies the group and its nested groups. Nil pointer children
// are kept as they are.
func (g ConditionGroup) Clone() ConditionGroup {
	out := ConditionGroup{Type: g.Type}
	if g.Conditions == nil {
		return out
	}
	out.Conditions = make([]ConditionNode, len(g.Conditions))
	for i, child := range g.Conditions {
		switch c := child.(type) {
		case ConditionGroup:
			out.Conditions[i] = c.Clone()
		case *ConditionGroup:
			if c == nil {
				out.Conditions[i] = child
				continue
			}
			out.Conditions[i] = c.Clone()
		case Condition:
			out.Conditions[i] = c.clone()
		case *Condition:
			if c == nil {
				out.Conditions[i] = child
				continue
			}
			out.Conditions[i] = c.clone()
		default:
			out.Conditions[i] = child
		}
	}
	return out
}

func (c Condition) clone() Condition {
	c.Values = slices.Clone(c.Values)
	c.ParameterNames = slices.Clone(c.ParameterNames)
	return c
}

func compare(column string, op Operator, value any) Condition {
	return Condition{Type: ComparisonCondition, Column: column, Operator: op, Value: value}
}

// Eq returns column = value. A nil value or nil pointer renders as
// column IS NULL.
func Eq(column string, value any) Condition { return compare(column, OpEq, value) }

// Ne returns column != value. A nil value or nil pointer renders as
// column IS NOT NULL.
func Ne(column string, value any) Condition { return compare(column, OpNe, value) }

// Lt returns column < value.
func Lt(column string, value any) Condition { return compare(column, OpLt, value) }

// Lte returns column <= value.
func Lte(column string, value any) Condition { return compare(column, OpLte, value) }

// Gt returns column > value.
func Gt(column string, value any) Condition { return compare(column, OpGt, value) }

// Gte returns column >= value.
func Gte(column string, value any) Condition { return compare(column, OpGte, value) }

// In returns column IN (values...).
func In(column string, values ...any) Condition {
	return Condition{Type: InCondition, Column: column, Operator: OpIn, Values: values}
}

// NotIn returns column NOT IN (values...).
func NotIn(column string, values ...any) Condition {
	return Condition{Type: InCondition, Column: column, Operator: OpNotIn, Values: values}
}

// InUnnest returns column IN UNNEST(@array), binding values as one array.
func InUnnest(column string, values ...any) Condition {
	return Condition{Type: InCondition, Column: column, Operator: OpInUnnest, Values: values}
}

// NotInUnnest returns column NOT IN UNNEST(@array).
func NotInUnnest(column string, values ...any) Condition {
	return Condition{Type: InCondition, Column: column, Operator: OpNotInUnnest, Values: values}
}

// Like returns column LIKE pattern.
func Like(column string, pattern string) Condition {
	return Condition{Type: LikeCondition, Column: column, Operator: OpLike, Value: pattern}
}

// NotLike returns column NOT LIKE pattern.
func NotLike(column string, pattern string) Condition {
	return Condition{Type: LikeCondition, Column: column, Operator: OpNotLike, Value: pattern}
}

// IsNull returns column IS NULL.
func IsNull(column string) Condition {
	return Condition{Type: NullCondition, Column: column, Operator: OpIsNull}
}

// IsNotNull returns column IS NOT NULL.
func IsNotNull(column string) Condition {
	return Condition{Type: NullCondition, Column: column, Operator: OpIsNotNull}
}

// StartsWith returns STARTS_WITH(column, prefix).
func StartsWith(column string, prefix string) Condition {
	return Condition{Type: FunctionCondition, Column: column, Operator: OpStartsWith, Value: prefix}
}

// EndsWith returns ENDS_WITH(column, suffix).
func EndsWith(column string, suffix string) Condition {
	return Condition{Type: FunctionCondition, Column: column, Operator: OpEndsWith, Value: suffix}
}
