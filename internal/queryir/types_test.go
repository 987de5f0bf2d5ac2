package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionNode_SealedInterface(t *testing.T) {
	// Only package types implement ConditionNode.
	var nodes []ConditionNode
	nodes = append(nodes, Eq("id", 1))
	nodes = append(nodes, AllOf(Eq("a", 1)))
	nodes = append(nodes, &ConditionGroup{Type: Or})

	for _, n := range nodes {
		switch n.(type) {
		case Condition, ConditionGroup, *ConditionGroup:
		default:
			t.Fatalf("unexpected node type %T", n)
		}
	}
}

func TestTableSource_SealedInterface(t *testing.T) {
	sources := []TableSource{Table("users"), UnnestReference{Column: "tags"}}
	for _, s := range sources {
		switch s.(type) {
		case TableReference, UnnestReference:
		default:
			t.Fatalf("unexpected source type %T", s)
		}
	}
}

func TestConstructors(t *testing.T) {
	testCases := []struct {
		name     string
		cond     Condition
		wantType ConditionType
		wantOp   Operator
	}{
		{"eq", Eq("a", 1), ComparisonCondition, OpEq},
		{"ne", Ne("a", 1), ComparisonCondition, OpNe},
		{"lt", Lt("a", 1), ComparisonCondition, OpLt},
		{"lte", Lte("a", 1), ComparisonCondition, OpLte},
		{"gt", Gt("a", 1), ComparisonCondition, OpGt},
		{"gte", Gte("a", 1), ComparisonCondition, OpGte},
		{"in", In("a", 1, 2), InCondition, OpIn},
		{"not in", NotIn("a", 1), InCondition, OpNotIn},
		{"in unnest", InUnnest("a", 1), InCondition, OpInUnnest},
		{"not in unnest", NotInUnnest("a", 1), InCondition, OpNotInUnnest},
		{"like", Like("a", "x%"), LikeCondition, OpLike},
		{"not like", NotLike("a", "x%"), LikeCondition, OpNotLike},
		{"is null", IsNull("a"), NullCondition, OpIsNull},
		{"is not null", IsNotNull("a"), NullCondition, OpIsNotNull},
		{"starts with", StartsWith("a", "x"), FunctionCondition, OpStartsWith},
		{"ends with", EndsWith("a", "x"), FunctionCondition, OpEndsWith},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantType, tc.cond.Type)
			assert.Equal(t, tc.wantOp, tc.cond.Operator)
			assert.Equal(t, "a", tc.cond.Column)

			typ, ok := TypeOf(tc.cond.Operator)
			require.True(t, ok)
			assert.Equal(t, tc.wantType, typ)
		})
	}
}

func TestTypeOf_UnknownOperator(t *testing.T) {
	_, ok := TypeOf(Operator("~="))
	assert.False(t, ok)
}

func TestConditionGroup_WithDoesNotMutate(t *testing.T) {
	base := AllOf(Eq("active", true))

	a := base.With(Gt("id", 100))
	b := base.With(Lt("id", 5))

	assert.Len(t, base.Conditions, 1)
	require.Len(t, a.Conditions, 2)
	require.Len(t, b.Conditions, 2)
	assert.Equal(t, OpGt, a.Conditions[1].(Condition).Operator)
	assert.Equal(t, OpLt, b.Conditions[1].(Condition).Operator)
}

func TestConditionGroup_CloneIsDeep(t *testing.T) {
	inner := AnyOf(In("status", "a", "b"))
	outer := AllOf(inner)

	clone := outer.Clone()
	clone.Conditions[0].(ConditionGroup).Conditions[0].(Condition).Values[0] = "changed"

	original := outer.Conditions[0].(ConditionGroup).Conditions[0].(Condition)
	assert.Equal(t, "a", original.Values[0])
}

func TestConditionGroup_CloneKeepsNilChildren(t *testing.T) {
	g := ConditionGroup{Type: And, Conditions: []ConditionNode{
		(*ConditionGroup)(nil),
		(*Condition)(nil),
		Eq("id", 1),
	}}

	var c ConditionGroup
	require.NotPanics(t, func() { c = g.Clone() })
	require.Len(t, c.Conditions, 3)
	assert.Equal(t, (*ConditionGroup)(nil), c.Conditions[0])
	assert.Equal(t, (*Condition)(nil), c.Conditions[1])
	assert.Equal(t, Eq("id", 1), c.Conditions[2])
}

func TestConditionGroup_IsEmpty(t *testing.T) {
	assert.True(t, AllOf().IsEmpty())
	assert.False(t, AllOf(IsNull("x")).IsEmpty())
}

func TestLogicalOperator_Keyword(t *testing.T) {
	assert.Equal(t, "AND", And.Keyword())
	assert.Equal(t, "OR", Or.Keyword())
}

func TestJoinType(t *testing.T) {
	for _, jt := range []JoinType{InnerJoin, LeftJoin, RightJoin, FullJoin, CrossJoin, NaturalJoin} {
		assert.True(t, jt.IsValid(), jt)
	}
	assert.False(t, JoinType("OUTER").IsValid())

	assert.True(t, InnerJoin.HasCondition())
	assert.True(t, LeftJoin.HasCondition())
	assert.False(t, CrossJoin.HasCondition())
	assert.False(t, NaturalJoin.HasCondition())
}

func TestSelectQuery_VariantsShareNoState(t *testing.T) {
	base := SelectQuery{}.
		WithColumns(Col("id"), Col("name")).
		WithFrom(Table("users")).
		WithWhere(AllOf(Eq("active", true)))

	withLimit := base.WithLimit(10)
	withOrder := base.WithOrderBy(OrderBy{Column: "name"}).WithColumns(Col("email"))

	assert.Nil(t, base.Limit)
	assert.Empty(t, base.OrderBy)
	assert.Len(t, base.Select.Columns, 2)

	require.NotNil(t, withLimit.Limit)
	assert.Equal(t, int64(10), *withLimit.Limit)
	assert.Len(t, withOrder.Select.Columns, 3)
	assert.Nil(t, withOrder.Limit)

	// Mutating a derived filter leaves the base untouched.
	withOrder.Where.Conditions[0] = Eq("active", false)
	assert.Equal(t, true, base.Where.Conditions[0].(Condition).Value)
}

func TestSelectQuery_CloneCopiesPointers(t *testing.T) {
	q := SelectQuery{}.WithFrom(Table("users")).WithLimit(5).WithOffset(10)
	c := q.Clone()

	c.From.Name = "orders"
	*c.Limit = 1
	*c.Offset = 2

	assert.Equal(t, "users", q.From.Name)
	assert.Equal(t, int64(5), *q.Limit)
	assert.Equal(t, int64(10), *q.Offset)
}

func TestSelectQuery_WithJoinClonesCondition(t *testing.T) {
	cond := AllOf(Eq("user_id", 1))
	q := SelectQuery{}.WithFrom(Table("users")).WithJoin(JoinClause{
		Type:      InnerJoin,
		Table:     Table("orders"),
		Condition: &cond,
	})

	cond.Conditions[0] = Eq("user_id", 2)
	assert.Equal(t, 1, q.Joins[0].Condition.Conditions[0].(Condition).Value)
}

func TestSelectColumnHelpers(t *testing.T) {
	assert.Equal(t, SelectColumn{Name: "id", Alias: "user_id"}, Col("id").As("user_id"))
	assert.Equal(t, SelectColumn{Aggregate: AggCount}, Count(""))
	assert.Equal(t, SelectColumn{Name: "id", Aggregate: AggSum}, Sum("id"))
	assert.Equal(t, AggAvg, Avg("x").Aggregate)
	assert.Equal(t, AggMin, Min("x").Aggregate)
	assert.Equal(t, AggMax, Max("x").Aggregate)
	assert.Equal(t, TableReference{Name: "users", Alias: "u"}, Table("users").As("u"))
}
