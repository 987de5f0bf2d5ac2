package store

import (
	"context"
	"fmt"

	"github.com/roach88/spanq/internal/ir"
	"github.com/roach88/spanq/internal/querysql"
)

// Record stores a built statement and its parameter set.
//
// The statement row is keyed by the Result's fingerprint and the binding row
// by (fingerprint, binding hash); both inserts use ON CONFLICT DO NOTHING, so
// recording the same build twice is a no-op that returns the original row.
// Both writes happen in one transaction.
func (s *Store) Record(ctx context.Context, name string, res querysql.Result) (Binding, error) {
	fingerprint, err := res.Fingerprint()
	if err != nil {
		return Binding{}, fmt.Errorf("record: %w", err)
	}
	typesJSON, err := marshalTypes(res.Types)
	if err != nil {
		return Binding{}, fmt.Errorf("record: %w", err)
	}
	params := res.Parameters
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := marshalParameters(params)
	if err != nil {
		return Binding{}, fmt.Errorf("record: %w", err)
	}
	bindingHash, err := ir.BindingHash(params)
	if err != nil {
		return Binding{}, fmt.Errorf("record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Binding{}, fmt.Errorf("record: begin: %w", err)
	}
	defer tx.Rollback()

	// "WHERE true" resolves SQLite's INSERT ... SELECT ... ON CONFLICT
	// parsing ambiguity.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO statements (fingerprint, sql, types, seq)
		SELECT ?, ?, ?, COALESCE(MAX(seq), 0) + 1 FROM statements WHERE true
		ON CONFLICT(fingerprint) DO NOTHING
	`, fingerprint, res.SQL, typesJSON)
	if err != nil {
		return Binding{}, fmt.Errorf("record statement: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bindings (statement, binding_hash, query_name, parameters, seq)
		SELECT ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1 FROM bindings WHERE true
		ON CONFLICT(statement, binding_hash) DO NOTHING
	`, fingerprint, bindingHash, name, paramsJSON)
	if err != nil {
		return Binding{}, fmt.Errorf("record binding: %w", err)
	}

	b, err := scanBinding(tx.QueryRowContext(ctx, `
		SELECT statement, binding_hash, query_name, parameters, seq
		FROM bindings
		WHERE statement = ? AND binding_hash = ?
	`, fingerprint, bindingHash))
	if err != nil {
		return Binding{}, fmt.Errorf("record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Binding{}, fmt.Errorf("record: commit: %w", err)
	}
	return b, nil
}
