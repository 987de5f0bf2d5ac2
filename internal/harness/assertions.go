package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/spanq/internal/querysql"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	SQL      string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "  SQL: %s", e.SQL)
	return buf.String()
}

// evaluate runs one assertion against a built statement.
func evaluate(a Assertion, res querysql.Result) error {
	switch a.Type {
	case AssertSQLContains:
		return assertSQLContains(res, a)
	case AssertClauseOrder:
		return assertClauseOrder(res, a)
	case AssertParamCount:
		return assertParamCount(res, a)
	case AssertParamValue:
		return assertParamValue(res, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertSQLContains(res querysql.Result, a Assertion) error {
	if strings.Contains(res.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQLContains,
		Expected: fmt.Sprintf("SQL containing %q", a.Text),
		Actual:   "not found",
		SQL:      res.SQL,
	}
}

// assertClauseOrder checks that keywords appear in order. Keywords need not
// be adjacent; each is searched after the end of the previous match.
func assertClauseOrder(res querysql.Result, a Assertion) error {
	pos := 0
	for _, kw := range a.Keywords {
		i := strings.Index(res.SQL[pos:], kw)
		if i < 0 {
			return &AssertionError{
				Type:     AssertClauseOrder,
				Expected: fmt.Sprintf("keywords in order %v", a.Keywords),
				Actual:   fmt.Sprintf("%q not found after offset %d", kw, pos),
				SQL:      res.SQL,
			}
		}
		pos += i + len(kw)
	}
	return nil
}

func assertParamCount(res querysql.Result, a Assertion) error {
	if len(res.Parameters) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertParamCount,
		Expected: fmt.Sprintf("%d parameters", a.Count),
		Actual:   fmt.Sprintf("%d parameters", len(res.Parameters)),
		SQL:      res.SQL,
	}
}

func assertParamValue(res querysql.Result, a Assertion) error {
	v, ok := res.Parameters[a.Name]
	if !ok {
		return &AssertionError{
			Type:     AssertParamValue,
			Expected: fmt.Sprintf("parameter %s = %v", a.Name, a.Value),
			Actual:   "parameter not bound",
			SQL:      res.SQL,
		}
	}
	if err := canonicalEqual(a.Name, a.Value, v); err != nil {
		return &AssertionError{
			Type:     AssertParamValue,
			Expected: fmt.Sprintf("parameter %s = %v", a.Name, a.Value),
			Actual:   fmt.Sprintf("%v", v),
			SQL:      res.SQL,
		}
	}
	return nil
}
