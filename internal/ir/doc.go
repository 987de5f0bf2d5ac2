// Package ir provides canonical JSON encoding and content-addressed hashing
// for spanq output.
//
// Built statements are identified by a fingerprint: a domain-separated SHA-256
// over the canonical JSON of the statement's shape (SQL text and parameter
// type hints). Golden test files use the same canonical encoding so that
// parameter maps compare byte-for-byte regardless of map iteration order.
//
// Key design constraints:
//   - Object keys sorted by UTF-16 code units (RFC 8785)
//   - Strings NFC normalized, no HTML escaping
//   - NaN and Inf are rejected; other floats use the shortest round-trip form
//   - ir imports nothing internal
package ir
