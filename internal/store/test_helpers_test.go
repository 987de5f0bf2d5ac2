package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/spanq/internal/queryir"
	"github.com/roach88/spanq/internal/querysql"
)

// createTestStore opens a fresh catalog in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// buildUserLookup builds SELECT id, name FROM users WHERE id = @param1.
func buildUserLookup(t *testing.T, id int64, opts ...querysql.Option) querysql.Result {
	t.Helper()
	q := queryir.SelectQuery{}.
		WithColumns(queryir.Col("id"), queryir.Col("name")).
		WithFrom(queryir.Table("users")).
		WithWhere(queryir.AllOf(queryir.Eq("id", id)))
	res, err := querysql.Build(q, opts...)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return res
}
