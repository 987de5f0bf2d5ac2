// Package builder provides an immutable fluent API for composing
// queryir.SelectQuery values.
//
// Every method returns a new Builder; the receiver is never modified, so a
// partially built query can be reused as the prefix of many variants:
//
//	base := builder.New().From("users").Select("id", "name")
//	active := base.Where(queryir.Eq("active", true))
//	recent := base.OrderBy("created_at", queryir.Desc).Limit(10)
//
// A Builder may carry a Schema. When it does, Query and Build check every
// table and column reference against it, and check that bound values match
// the declared column types. Schema checks live here; the core packages
// stay schema-agnostic.
package builder
