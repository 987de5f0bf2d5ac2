package queryir

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTableName(t *testing.T) {
	testCases := []struct {
		name       string
		input      any
		want       string
		constraint string
	}{
		{name: "simple", input: "users", want: "users"},
		{name: "underscore prefix", input: "_audit", want: "_audit"},
		{name: "trimmed", input: "  orders  ", want: "orders"},
		{name: "mixed case digits", input: "Orders2024", want: "Orders2024"},
		{name: "not a string", input: 42, constraint: ConstraintType},
		{name: "nil", input: nil, constraint: ConstraintType},
		{name: "empty", input: "", constraint: ConstraintRequired},
		{name: "whitespace only", input: "   ", constraint: ConstraintRequired},
		{name: "too long", input: strings.Repeat("a", MaxTableNameLength+1), constraint: ConstraintMaxLength},
		{name: "leading digit", input: "1users", constraint: ConstraintPattern},
		{name: "hyphen", input: "user-table", constraint: ConstraintPattern},
		{name: "injection", input: "users; DROP TABLE x", constraint: ConstraintPattern},
		{name: "reserved keyword", input: "select", constraint: ConstraintReservedKeyword},
		{name: "reserved keyword upper", input: "WHERE", constraint: ConstraintReservedKeyword},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateTableName(tc.input)
			if tc.constraint == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
				return
			}

			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, ErrCodeInvalidTableName, ve.Code)
			assert.Equal(t, tc.constraint, ve.Details.Constraint)
			assert.Equal(t, tc.input, ve.Details.Value)
			assert.Empty(t, got)
		})
	}
}

func TestValidateTableName_MaxLengthBoundary(t *testing.T) {
	name := strings.Repeat("a", MaxTableNameLength)
	got, err := ValidateTableName(name)
	require.NoError(t, err)
	assert.Equal(t, name, got)
}

func TestValidateTableAlias(t *testing.T) {
	got, err := ValidateTableAlias(" u ")
	require.NoError(t, err)
	assert.Equal(t, "u", got)

	// Aliases may be keywords; only names are checked against the keyword set.
	_, err = ValidateTableAlias("select")
	assert.NoError(t, err)

	_, err = ValidateTableAlias(strings.Repeat("a", MaxTableAliasLength))
	assert.NoError(t, err)

	_, err = ValidateTableAlias(strings.Repeat("a", MaxTableAliasLength+1))
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeInvalidTableAlias))

	_, err = ValidateTableAlias(3.14)
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ConstraintType, ve.Details.Constraint)

	_, err = ValidateTableAlias("a b")
	assert.True(t, HasCode(err, ErrCodeInvalidTableAlias))
}

func TestIsReservedKeyword(t *testing.T) {
	assert.True(t, IsReservedKeyword("unnest"))
	assert.True(t, IsReservedKeyword("Join"))
	assert.False(t, IsReservedKeyword("users"))
}

func TestValidateSelectQuery_Valid(t *testing.T) {
	q := SelectQuery{}.
		WithColumns(Col("id"), Col("name").As("n")).
		WithFrom(TableReference{Name: " users ", Alias: " u "}).
		WithJoin(JoinClause{Type: InnerJoin, Table: Table("orders")}).
		WithWhere(AllOf(Eq("active", true))).
		WithGroupBy("id", "name").
		WithHaving(AllOf(Gt("COUNT(*)", 1))).
		WithOrderBy(OrderBy{Column: "name", Direction: Desc, Nulls: NullsLast}).
		WithLimit(0).
		WithOffset(0)

	got, err := ValidateSelectQuery(q)
	require.NoError(t, err)
	assert.Equal(t, "users", got.From.Name)
	assert.Equal(t, "u", got.From.Alias)
	assert.Equal(t, " users ", q.From.Name, "input must not be mutated")
}

func TestValidateSelectQuery_HavingRequiresGroupBy(t *testing.T) {
	q := SelectQuery{}.
		WithColumns(Count("")).
		WithFrom(Table("users")).
		WithHaving(AllOf(Gt("COUNT(*)", 10)))

	_, err := ValidateSelectQuery(q)
	require.Error(t, err)
	assert.True(t, IsHavingError(err))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, ErrCodeInvalidSelectQuery, ve.Code)
	require.Len(t, ve.Details.Errors, 1)
	assert.Equal(t, ErrCodeInvalidHavingClause, ve.Details.Errors[0].Code)

	// With GROUP BY the same query is valid.
	_, err = ValidateSelectQuery(q.WithGroupBy("country"))
	assert.NoError(t, err)
}

func TestValidateSelectQuery_DuplicateAlias(t *testing.T) {
	q := SelectQuery{}.
		WithColumns(Col("id").As("x"), Col("name").As("x"), Col("email").As("x")).
		WithFrom(Table("users"))

	_, err := ValidateSelectQuery(q)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Details.Errors, 1, "a repeated alias is reported once")
	dup := ve.Details.Errors[0]
	assert.Equal(t, ConstraintDuplicateAlias, dup.Details.Constraint)
	assert.Equal(t, "x", dup.Details.Alias)
	assert.Contains(t, dup.Message, `"x"`)

	_, err = ValidateSelectQuery(SelectQuery{}.
		WithColumns(Col("id").As("a"), Col("name").As("b"), Col("email")).
		WithFrom(Table("users")))
	assert.NoError(t, err)
}

func TestValidateSelectQuery_AggregatesAllViolations(t *testing.T) {
	q := SelectQuery{
		Select: SelectList{Columns: []SelectColumn{Col("a").As("dup"), Col("b").As("dup")}},
		Joins:  []JoinClause{{Type: InnerJoin, Table: Table("select")}},
		Having: &ConditionGroup{Type: And},
	}

	_, err := ValidateSelectQuery(q)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	codes := make([]ErrorCode, 0, len(ve.Details.Errors))
	for _, e := range ve.Details.Errors {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []ErrorCode{
		ErrCodeInvalidSelectQuery,  // duplicate alias
		ErrCodeInvalidSelectQuery,  // JOIN without FROM
		ErrCodeInvalidTableName,    // reserved join table
		ErrCodeInvalidHavingClause, // HAVING without GROUP BY
	}, codes)

	// The combined message joins every child message.
	assert.True(t, strings.HasPrefix(ve.Message, aggregateMessage+": "))
	for _, child := range ve.Details.Errors {
		assert.Contains(t, ve.Message, child.Message)
	}
	assert.Len(t, ve.Violations(), 4)
}

func TestValidateSelectQuery_TableIdentifiers(t *testing.T) {
	testCases := []struct {
		name string
		from TableReference
		code ErrorCode
	}{
		{"bad name", TableReference{Name: "1abc"}, ErrCodeInvalidTableName},
		{"bad schema", TableReference{Name: "users", Schema: "my-schema"}, ErrCodeInvalidTableName},
		{"bad alias", TableReference{Name: "users", Alias: "u u"}, ErrCodeInvalidTableAlias},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateSelectQuery(SelectQuery{}.WithFrom(tc.from))
			require.Error(t, err)
			assert.True(t, HasCode(err, tc.code))
		})
	}
}

func TestValidateSelectQuery_StructuralRules(t *testing.T) {
	testCases := []struct {
		name  string
		query SelectQuery
	}{
		{"empty column", SelectQuery{}.WithColumns(SelectColumn{})},
		{"unknown aggregate", SelectQuery{}.WithColumns(SelectColumn{Name: "x", Aggregate: "MEDIAN"})},
		{"bad column alias", SelectQuery{}.WithColumns(Col("x").As("has space"))},
		{"unknown join type", SelectQuery{}.WithFrom(Table("a")).WithJoin(JoinClause{Type: "OUTER", Table: Table("b")})},
		{"nil join table", SelectQuery{}.WithFrom(Table("a")).WithJoin(JoinClause{Type: InnerJoin})},
		{"empty unnest", SelectQuery{}.WithFrom(Table("a")).WithJoin(JoinClause{Type: CrossJoin, Table: UnnestReference{}})},
		{"empty group by item", SelectQuery{}.WithGroupBy(" ")},
		{"empty order by column", SelectQuery{}.WithOrderBy(OrderBy{})},
		{"bad direction", SelectQuery{}.WithOrderBy(OrderBy{Column: "x", Direction: "UP"})},
		{"bad nulls", SelectQuery{}.WithOrderBy(OrderBy{Column: "x", Nulls: "MIDDLE"})},
		{"negative limit", SelectQuery{}.WithLimit(-1)},
		{"negative offset", SelectQuery{}.WithOffset(-5)},
		{"offset without limit", SelectQuery{}.WithFrom(Table("users")).WithOffset(5)},
		{"reserved column alias", SelectQuery{}.WithColumns(Count("").As("select"))},
		{"reserved column alias any case", SelectQuery{}.WithColumns(Col("id").As("Order"))},
		{"nil pointer join table", SelectQuery{}.WithFrom(Table("a")).WithJoin(JoinClause{Type: InnerJoin, Table: (*TableReference)(nil)})},
		{"nil pointer unnest", SelectQuery{}.WithFrom(Table("a")).WithJoin(JoinClause{Type: CrossJoin, Table: (*UnnestReference)(nil)})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateSelectQuery(tc.query)
			require.Error(t, err)
			assert.True(t, HasCode(err, ErrCodeInvalidSelectQuery))
		})
	}
}

func TestValidateSelectQuery_CountStarNeedsNoColumn(t *testing.T) {
	_, err := ValidateSelectQuery(SelectQuery{}.WithColumns(Count("")).WithFrom(Table("users")))
	assert.NoError(t, err)
}

func TestValidateSelectQuery_PointerSources(t *testing.T) {
	q := SelectQuery{}.WithFrom(Table("users")).
		WithJoin(JoinClause{Type: LeftJoin, Table: &TableReference{Name: " orders "}}).
		WithJoin(JoinClause{Type: CrossJoin, Table: &UnnestReference{Column: "tags", Alias: "tag"}})

	got, err := ValidateSelectQuery(q)
	require.NoError(t, err)
	assert.Equal(t, TableReference{Name: "orders"}, got.Joins[0].Table)
	assert.Equal(t, UnnestReference{Column: "tags", Alias: "tag"}, got.Joins[1].Table)
}

func TestHasCode_WrappedErrors(t *testing.T) {
	_, err := ValidateTableName("")
	wrapped := fmt.Errorf("loading query: %w", err)
	assert.True(t, HasCode(wrapped, ErrCodeInvalidTableName))
	assert.False(t, HasCode(wrapped, ErrCodeInvalidTableAlias))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeInvalidTableName))
}

func TestValidationError_Error(t *testing.T) {
	_, err := ValidateTableName("")
	assert.Equal(t, "[INVALID_TABLE_NAME] table name cannot be empty", err.Error())
}

func TestValidateSelectQuery_ReservedAliasConstraint(t *testing.T) {
	_, err := ValidateSelectQuery(SelectQuery{}.WithColumns(Count("").As("select")))
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Violations(), 1)
	assert.Equal(t, ConstraintReservedKeyword, ve.Violations()[0].Details.Constraint)
}

func TestValidateSelectQuery_OffsetWithLimit(t *testing.T) {
	_, err := ValidateSelectQuery(SelectQuery{}.WithFrom(Table("users")).WithLimit(10).WithOffset(5))
	assert.NoError(t, err)
}
