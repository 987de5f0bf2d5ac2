package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	// DomainStatement identifies a statement shape: SQL text plus type hints.
	DomainStatement = "spanq/statement/v1"
	// DomainBinding identifies a concrete set of parameter values.
	DomainBinding = "spanq/binding/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of v's canonical JSON under domain.
// Returns error if v cannot be canonically marshaled.
func Hash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: failed to marshal: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// StatementHash computes the fingerprint of a statement shape.
// Parameter values are excluded, so two builds that differ only in bound
// values share a fingerprint.
func StatementHash(sql string, types any) (string, error) {
	return Hash(DomainStatement, map[string]any{
		"sql":   sql,
		"types": types,
	})
}

// BindingHash computes the hash of a parameter map.
func BindingHash(params map[string]any) (string, error) {
	return Hash(DomainBinding, params)
}

// MustStatementHash is like StatementHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStatementHash(sql string, types any) string {
	h, err := StatementHash(sql, types)
	if err != nil {
		panic(err)
	}
	return h
}
