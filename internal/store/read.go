package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/spanq/internal/querysql"
)

// Statement is a recorded statement shape.
type Statement struct {
	Fingerprint string                       `json:"fingerprint"`
	SQL         string                       `json:"sql"`
	Types       map[string]querysql.TypeHint `json:"types,omitempty"`
	Seq         int64                        `json:"seq"`
}

// Binding is one recorded parameter set of a statement.
type Binding struct {
	Statement  string         `json:"statement"`
	Hash       string         `json:"binding_hash"`
	QueryName  string         `json:"query_name,omitempty"`
	Parameters map[string]any `json:"parameters"`
	Seq        int64          `json:"seq"`
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Statement returns the statement recorded under fingerprint, or
// ErrNotFound.
func (s *Store) Statement(ctx context.Context, fingerprint string) (Statement, error) {
	st, err := scanStatement(s.db.QueryRowContext(ctx, `
		SELECT fingerprint, sql, types, seq
		FROM statements
		WHERE fingerprint = ?
	`, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return Statement{}, fmt.Errorf("statement %s: %w", fingerprint, ErrNotFound)
	}
	if err != nil {
		return Statement{}, err
	}
	return st, nil
}

// Statements returns every recorded statement in recording order.
// Returns an empty slice (not nil) for an empty catalog.
func (s *Store) Statements(ctx context.Context) ([]Statement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, sql, types, seq
		FROM statements
		ORDER BY seq ASC, fingerprint COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	out := []Statement{}
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return out, nil
}

// Bindings returns the parameter sets recorded for a statement in
// recording order. An unknown fingerprint yields an empty slice.
func (s *Store) Bindings(ctx context.Context, fingerprint string) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT statement, binding_hash, query_name, parameters, seq
		FROM bindings
		WHERE statement = ?
		ORDER BY seq ASC, binding_hash COLLATE BINARY ASC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query bindings: %w", err)
	}
	defer rows.Close()

	out := []Binding{}
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bindings: %w", err)
	}
	return out, nil
}

func scanStatement(row rowScanner) (Statement, error) {
	var (
		st        Statement
		typesJSON string
	)
	if err := row.Scan(&st.Fingerprint, &st.SQL, &typesJSON, &st.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Statement{}, err
		}
		return Statement{}, fmt.Errorf("scan statement: %w", err)
	}
	types, err := unmarshalTypes(typesJSON)
	if err != nil {
		return Statement{}, err
	}
	st.Types = types
	return st, nil
}

func scanBinding(row rowScanner) (Binding, error) {
	var (
		b          Binding
		paramsJSON string
	)
	if err := row.Scan(&b.Statement, &b.Hash, &b.QueryName, &paramsJSON, &b.Seq); err != nil {
		return Binding{}, fmt.Errorf("scan binding: %w", err)
	}
	params, err := unmarshalParameters(paramsJSON)
	if err != nil {
		return Binding{}, err
	}
	b.Parameters = params
	return b, nil
}
