package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanq/internal/ir"
)

func TestBuild_Text(t *testing.T) {
	out, _, err := execute(t, "build", "testdata/queries.yaml")
	require.NoError(t, err)

	assert.Equal(t,
		"-- active_users\n"+
			"SELECT id, name FROM users WHERE active = @param1 AND id > @param2\n"+
			"  @param1 = true\n"+
			"  @param2 = 100\n"+
			"\n"+
			"-- user_count\n"+
			"SELECT COUNT(*) FROM users\n",
		out)
}

func TestBuild_TextWithTypes(t *testing.T) {
	out, _, err := execute(t, "build", "--name", "active_users", "--types", "testdata/queries.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "  @param1 = true (bool)\n")
	assert.Contains(t, out, "  @param2 = 100 (int64)\n")
	assert.NotContains(t, out, "user_count")
}

func TestBuild_JSON(t *testing.T) {
	out, _, err := execute(t, "build", "--format", "json", "--types", "testdata/queries.yaml")
	require.NoError(t, err)

	var built []struct {
		Name        string            `json:"name"`
		SQL         string            `json:"sql"`
		Parameters  map[string]any    `json:"parameters"`
		Types       map[string]string `json:"types"`
		Fingerprint string            `json:"fingerprint"`
	}
	resp := decodeResponse(t, out, &built)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)

	require.Len(t, built, 2)
	assert.Equal(t, "active_users", built[0].Name)
	assert.Equal(t, map[string]any{"param1": true, "param2": float64(100)}, built[0].Parameters)
	assert.Equal(t, map[string]string{"param1": "bool", "param2": "int64"}, built[0].Types)

	types := map[string]any{"param1": "bool", "param2": "int64"}
	assert.Equal(t, ir.MustStatementHash(built[0].SQL, types), built[0].Fingerprint)

	assert.Equal(t, "SELECT COUNT(*) FROM users", built[1].SQL)
	assert.Empty(t, built[1].Parameters)
}

func TestBuild_UnknownName(t *testing.T) {
	out, _, err := execute(t, "build", "--name", "nope", "testdata/queries.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestBuild_MissingDocument(t *testing.T) {
	out, _, err := execute(t, "build", "--format", "json", "testdata/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestBuild_InvalidQuery(t *testing.T) {
	out, _, err := execute(t, "build", "--format", "json", "--name", "broken", "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_SELECT_QUERY", resp.Error.Code)

	details, ok := resp.Error.Details.([]any)
	require.True(t, ok)
	assert.Len(t, details, 2)
}

func TestBuild_VerboseLogsToStderr(t *testing.T) {
	out, errOut, err := execute(t, "build", "-v", "--format", "json", "testdata/queries.yaml")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Building 2 quer(ies)")
	assert.Contains(t, errOut, "msg=built")
	assert.NotContains(t, out, "Building")
}
