package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/spanq/internal/queryir"
)

// Option configures a Build call.
type Option func(*buildConfig)

type buildConfig struct {
	typeHints bool
	params    ParameterManager
}

// WithTypeHints makes Build populate Result.Types.
func WithTypeHints() Option {
	return func(c *buildConfig) { c.typeHints = true }
}

// WithParameters starts the build from a pre-seeded manager. Conditions
// may then refer to its entries through ParameterName/ParameterNames, and
// new values continue its numbering.
func WithParameters(m ParameterManager) Option {
	return func(c *buildConfig) { c.params = m }
}

// Build validates q and assembles it into a parameterized GoogleSQL
// statement.
//
// Clauses are emitted in dialect order (SELECT, FROM, JOIN, WHERE,
// GROUP BY, HAVING, ORDER BY, LIMIT, OFFSET), joined by single spaces, with
// absent clauses omitted. A single ParameterManager is threaded through the
// whole build, so placeholder numbers increase in textual order.
//
// Validation failures are returned as *queryir.ValidationError; tree defects
// found while rendering are returned as *RenderError. No partial SQL is
// ever returned.
func Build(q queryir.SelectQuery, opts ...Option) (Result, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	valid, err := queryir.ValidateSelectQuery(q)
	if err != nil {
		return Result{}, err
	}

	a := &assembler{params: cfg.params}
	if err := a.assemble(valid); err != nil {
		return Result{}, err
	}

	res := Result{
		SQL:        strings.Join(a.clauses, " "),
		Parameters: a.params.Parameters(),
		names:      a.params.Names(),
	}
	if cfg.typeHints {
		res.Types = TypesFor(a.params)
	}
	return res, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBuild(q queryir.SelectQuery, opts ...Option) Result {
	res, err := Build(q, opts...)
	if err != nil {
		panic(err)
	}
	return res
}

// assembler collects clause text in order.
type assembler struct {
	params  ParameterManager
	clauses []string
}

func (a *assembler) assemble(q queryir.SelectQuery) error {
	a.clauses = append(a.clauses, "SELECT "+RenderSelectList(q.Select))

	if q.From != nil {
		a.clauses = append(a.clauses, "FROM "+RenderTableReference(*q.From))
	}

	for i, join := range q.Joins {
		sql, next, err := RenderJoin(a.params, join)
		if err != nil {
			return fmt.Errorf("join %d: %w", i, err)
		}
		a.params = next
		a.clauses = append(a.clauses, sql)
	}

	if err := a.filter("WHERE", q.Where); err != nil {
		return err
	}

	if len(q.GroupBy) > 0 {
		a.clauses = append(a.clauses, "GROUP BY "+RenderGroupBy(q.GroupBy))
	}

	if err := a.filter("HAVING", q.Having); err != nil {
		return err
	}

	if len(q.OrderBy) > 0 {
		a.clauses = append(a.clauses, "ORDER BY "+RenderOrderBy(q.OrderBy))
	}

	if q.Limit != nil || q.Offset != nil {
		var sql string
		sql, a.params = RenderPagination(a.params, q.Limit, q.Offset)
		a.clauses = append(a.clauses, sql)
	}
	return nil
}

func (a *assembler) filter(keyword string, g *queryir.ConditionGroup) error {
	if g == nil {
		return nil
	}
	sql, next, err := RenderCondition(a.params, *g)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(keyword), err)
	}
	a.params = next
	a.clauses = append(a.clauses, keyword+" "+sql)
	return nil
}
