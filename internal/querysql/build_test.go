package querysql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanq/internal/queryir"
)

func usersQuery() queryir.SelectQuery {
	return queryir.SelectQuery{}.
		WithColumns(queryir.Col("id"), queryir.Col("name")).
		WithFrom(queryir.Table("users"))
}

func TestBuild_FilteredSelect(t *testing.T) {
	q := usersQuery().WithWhere(queryir.AllOf(
		queryir.Eq("active", true),
		queryir.Gt("id", 100),
	))

	res, err := Build(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users WHERE active = @param1 AND id > @param2", res.SQL)
	assert.Equal(t, map[string]any{"param1": true, "param2": 100}, res.Parameters)
	assert.Nil(t, res.Types)
}

func TestBuild_CountAndSum(t *testing.T) {
	q := queryir.SelectQuery{}.
		WithColumns(queryir.Count(""), queryir.Sum("id")).
		WithFrom(queryir.Table("users"))

	res, err := Build(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*), SUM(id) FROM users", res.SQL)
	assert.Empty(t, res.Parameters)
}

func TestBuild_JoinOrderPagination(t *testing.T) {
	on := queryir.AllOf(queryir.Eq("user_id", 1))
	q := usersQuery().
		WithJoin(queryir.JoinClause{Type: queryir.InnerJoin, Table: queryir.Table("orders"), Condition: &on}).
		WithWhere(queryir.AllOf(queryir.Eq("active", true))).
		WithOrderBy(queryir.OrderBy{Column: "name", Direction: queryir.Asc}).
		WithLimit(5).
		WithOffset(10)

	res, err := Build(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, name FROM users INNER JOIN orders ON user_id = @param1 WHERE active = @param2 ORDER BY name ASC LIMIT @param3 OFFSET @param4",
		res.SQL)
	assert.Equal(t, map[string]any{
		"param1": 1,
		"param2": true,
		"param3": int64(5),
		"param4": int64(10),
	}, res.Parameters)
	assert.Equal(t, []string{"param1", "param2", "param3", "param4"}, res.ParameterNames())
}

func TestBuild_ClauseOrderAndNumbering(t *testing.T) {
	on := queryir.AllOf(queryir.Eq("o.status", "paid"))
	q := queryir.SelectQuery{}.
		WithColumns(queryir.Col("u.country"), queryir.Count("").As("n")).
		WithFrom(queryir.Table("users").As("u")).
		WithJoin(queryir.JoinClause{Type: queryir.LeftJoin, Table: queryir.Table("orders").As("o"), Condition: &on}).
		WithWhere(queryir.AllOf(queryir.Ne("u.country", "XX"))).
		WithGroupBy("u.country").
		WithHaving(queryir.AllOf(queryir.Gt("COUNT(*)", 10))).
		WithOrderBy(queryir.OrderBy{Column: "n", Direction: queryir.Desc}).
		WithLimit(3)

	res, err := Build(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT u.country, COUNT(*) AS n FROM users AS u LEFT JOIN orders AS o ON o.status = @param1 "+
			"WHERE u.country != @param2 GROUP BY u.country HAVING COUNT(*) > @param3 ORDER BY n DESC LIMIT @param4",
		res.SQL)
	assert.Equal(t, "paid", res.Parameters["param1"])
	assert.Equal(t, "XX", res.Parameters["param2"])
	assert.Equal(t, 10, res.Parameters["param3"])
	assert.Equal(t, int64(3), res.Parameters["param4"])
}

func TestBuild_DeduplicatesAcrossClauses(t *testing.T) {
	on := queryir.AllOf(queryir.Eq("o.region", "eu"))
	q := usersQuery().
		WithJoin(queryir.JoinClause{Type: queryir.InnerJoin, Table: queryir.Table("orders").As("o"), Condition: &on}).
		WithWhere(queryir.AllOf(queryir.Eq("region", "eu"), queryir.Eq("tier", "gold")))

	res, err := Build(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, name FROM users INNER JOIN orders AS o ON o.region = @param1 WHERE region = @param1 AND tier = @param2",
		res.SQL)
	assert.Len(t, res.Parameters, 2)
}

func TestBuild_NullRewrite(t *testing.T) {
	res, err := Build(usersQuery().WithWhere(queryir.AllOf(
		queryir.Eq("deleted_at", nil),
		queryir.Ne("email", nil),
	)))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users WHERE deleted_at IS NULL AND email IS NOT NULL", res.SQL)
	assert.Empty(t, res.Parameters)
}

func TestBuild_EmptyWhereIsTrue(t *testing.T) {
	res, err := Build(usersQuery().WithWhere(queryir.AllOf()))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users WHERE TRUE", res.SQL)
}

func TestBuild_SelectStarWithoutFrom(t *testing.T) {
	res, err := Build(queryir.SelectQuery{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT *", res.SQL)
	assert.NotNil(t, res.Parameters)
}

func TestBuild_HavingWithoutGroupBy(t *testing.T) {
	q := usersQuery().WithHaving(queryir.AllOf(queryir.Gt("COUNT(*)", 1)))

	res, err := Build(q)
	require.Error(t, err)
	assert.True(t, queryir.IsHavingError(err))
	assert.Empty(t, res.SQL)
}

func TestBuild_DuplicateAlias(t *testing.T) {
	q := queryir.SelectQuery{}.
		WithColumns(queryir.Col("id").As("x"), queryir.Col("name").As("x")).
		WithFrom(queryir.Table("users"))

	_, err := Build(q)
	require.Error(t, err)
	assert.True(t, queryir.HasCode(err, queryir.ErrCodeInvalidSelectQuery))
	assert.Contains(t, err.Error(), `"x"`)
}

func TestBuild_InvalidTableName(t *testing.T) {
	_, err := Build(queryir.SelectQuery{}.WithFrom(queryir.Table("users; DROP TABLE users")))
	require.Error(t, err)
	assert.True(t, queryir.HasCode(err, queryir.ErrCodeInvalidTableName))
}

func TestBuild_RenderErrorAbortsBuild(t *testing.T) {
	res, err := Build(usersQuery().WithWhere(queryir.AllOf(queryir.In("id"))))
	require.Error(t, err)
	assert.True(t, IsRenderError(err))
	assert.Contains(t, err.Error(), "where")
	assert.Equal(t, Result{}, res)
}

func TestBuild_NilNodesAreErrors(t *testing.T) {
	testCases := []struct {
		name       string
		query      queryir.SelectQuery
		renderFail bool
	}{
		{
			name:       "nil group child",
			query:      usersQuery().WithWhere(queryir.ConditionGroup{Conditions: []queryir.ConditionNode{(*queryir.ConditionGroup)(nil)}}),
			renderFail: true,
		},
		{
			name:       "nil condition child",
			query:      usersQuery().WithWhere(queryir.ConditionGroup{Conditions: []queryir.ConditionNode{(*queryir.Condition)(nil)}}),
			renderFail: true,
		},
		{
			name:  "nil unnest join",
			query: usersQuery().WithJoin(queryir.JoinClause{Type: queryir.CrossJoin, Table: (*queryir.UnnestReference)(nil)}),
		},
		{
			name:  "nil table join",
			query: usersQuery().WithJoin(queryir.JoinClause{Type: queryir.InnerJoin, Table: (*queryir.TableReference)(nil)}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				res Result
				err error
			)
			require.NotPanics(t, func() { res, err = Build(tc.query) })
			require.Error(t, err)
			assert.Equal(t, Result{}, res)
			if tc.renderFail {
				assert.True(t, IsRenderError(err))
			} else {
				assert.True(t, queryir.HasCode(err, queryir.ErrCodeInvalidSelectQuery))
			}
		})
	}
}

func TestBuild_OffsetRequiresLimit(t *testing.T) {
	_, err := Build(usersQuery().WithOffset(10))
	require.Error(t, err)
	assert.True(t, queryir.HasCode(err, queryir.ErrCodeInvalidSelectQuery))
	assert.Contains(t, err.Error(), "OFFSET requires LIMIT")
}

func TestBuild_NilPointerRewritesToIsNull(t *testing.T) {
	res, err := Build(usersQuery().WithWhere(queryir.AllOf(
		queryir.Eq("deleted_at", (*string)(nil)),
		queryir.Ne("email", (*string)(nil)),
	)))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users WHERE deleted_at IS NULL AND email IS NOT NULL", res.SQL)
	assert.Empty(t, res.Parameters)
}

func TestBuild_TrimsIdentifiers(t *testing.T) {
	res, err := Build(queryir.SelectQuery{}.WithFrom(queryir.TableReference{Name: " users ", Alias: " u "}))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users AS u", res.SQL)
}

func TestBuild_WithParameters(t *testing.T) {
	seed, _ := AddParameter(NewParameterManager(), "acme")

	q := usersQuery().WithWhere(queryir.AllOf(
		queryir.Condition{Type: queryir.ComparisonCondition, Column: "tenant", Operator: queryir.OpEq, ParameterName: "param1"},
		queryir.Eq("active", true),
	))

	res, err := Build(q, WithParameters(seed))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users WHERE tenant = @param1 AND active = @param2", res.SQL)
	assert.Equal(t, map[string]any{"param1": "acme", "param2": true}, res.Parameters)

	_, err = Build(q)
	require.Error(t, err, "pre-bound name must exist in the starting manager")
	assert.True(t, IsRenderError(err))
}

func TestBuild_TypeHints(t *testing.T) {
	q := usersQuery().
		WithWhere(queryir.AllOf(queryir.Eq("active", true), queryir.InUnnest("id", []int64{1, 2}))).
		WithLimit(10)

	res, err := Build(q, WithTypeHints())
	require.NoError(t, err)
	assert.Equal(t, "bool", res.Types["param1"].String())
	assert.Equal(t, "ARRAY<int64>", res.Types["param2"].String())
	assert.Equal(t, "int64", res.Types["param3"].String())
}

func TestBuild_InputNotMutated(t *testing.T) {
	q := queryir.SelectQuery{}.WithFrom(queryir.TableReference{Name: " users "})
	_, err := Build(q)
	require.NoError(t, err)
	assert.Equal(t, " users ", q.From.Name)
}

func TestMustBuild(t *testing.T) {
	assert.NotPanics(t, func() { MustBuild(usersQuery()) })
	assert.Panics(t, func() { MustBuild(queryir.SelectQuery{}.WithLimit(-1)) })
}

func TestBuild_Golden(t *testing.T) {
	owners := queryir.AllOf(queryir.Eq("o.user_id", queryir.ColumnRef("u.id")))

	testCases := []struct {
		name  string
		query queryir.SelectQuery
	}{
		{
			name: "filtered_select",
			query: usersQuery().WithWhere(queryir.AllOf(
				queryir.Eq("active", true),
				queryir.Gt("id", 100),
			)),
		},
		{
			name: "count_and_sum",
			query: queryir.SelectQuery{}.
				WithColumns(queryir.Count(""), queryir.Sum("id")).
				WithFrom(queryir.Table("users")),
		},
		{
			name: "join_order_pagination",
			query: usersQuery().
				WithJoin(queryir.JoinClause{Type: queryir.InnerJoin, Table: queryir.Table("orders"), Condition: ptr(queryir.AllOf(queryir.Eq("user_id", 1)))}).
				WithWhere(queryir.AllOf(queryir.Eq("active", true))).
				WithOrderBy(queryir.OrderBy{Column: "name"}).
				WithLimit(5).
				WithOffset(10),
		},
		{
			name: "revenue_report",
			query: queryir.SelectQuery{}.
				WithColumns(
					queryir.Col("u.id"),
					queryir.Count("").As("order_count"),
					queryir.Sum("o.total").As("revenue"),
				).
				WithFrom(queryir.TableReference{Name: "users", Alias: "u", Schema: "app"}).
				WithJoin(queryir.JoinClause{Type: queryir.LeftJoin, Table: queryir.Table("orders").As("o"), Condition: &owners}).
				WithJoin(queryir.JoinClause{Type: queryir.CrossJoin, Table: queryir.UnnestReference{Column: "u.tags", Alias: "tag"}}).
				WithWhere(queryir.AllOf(
					queryir.Eq("u.active", true),
					queryir.AnyOf(queryir.In("u.country", "US", "CA"), queryir.IsNull("u.country")),
					queryir.Ne("u.deleted_at", nil),
				)).
				WithGroupBy("u.id").
				WithHaving(queryir.AllOf(queryir.Gt("COUNT(*)", 1))).
				WithOrderBy(
					queryir.OrderBy{Column: "revenue", Direction: queryir.Desc, Nulls: queryir.NullsLast},
					queryir.OrderBy{Column: "u.id"},
				).
				WithLimit(20),
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Build(tc.query, WithTypeHints())
			require.NoError(t, err)

			out, err := res.Canonical()
			require.NoError(t, err)
			g.Assert(t, tc.name, out)
		})
	}
}

func ptr[T any](v T) *T { return &v }
