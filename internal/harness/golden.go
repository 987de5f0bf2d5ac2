package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/spanq/internal/ir"
)

// Snapshot is the golden form of a scenario result.
func (r *Result) Snapshot() ([]byte, error) {
	out := map[string]any{
		"scenario": r.Name,
	}
	if r.ErrorCode != "" {
		out["error_code"] = r.ErrorCode
	} else {
		params := r.Parameters
		if params == nil {
			params = map[string]any{}
		}
		out["sql"] = r.SQL
		out["parameters"] = params
	}
	if len(r.Types) > 0 {
		out["types"] = r.Types
	}
	return ir.MarshalCanonical(out)
}

// RunWithGolden executes a scenario, fails the test on any unmet
// expectation, and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, e)
	}
	return AssertGolden(t, result)
}

// AssertGolden compares an existing result's snapshot against its golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, result *Result) error {
	t.Helper()

	snapshot, err := result.Snapshot()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Name, snapshot)
	return nil
}
