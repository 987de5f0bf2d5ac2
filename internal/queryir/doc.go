// Package queryir provides the query intermediate representation (IR) that
// spanq renders into Cloud Spanner SQL.
//
// The IR is plain data. Callers (the builder, the document compiler, or
// hand-written code) construct a SelectQuery value; querysql turns it into
// SQL text plus bound parameters. Nothing in this package performs I/O.
//
// ARCHITECTURE:
//
//	[builder / documents] → [Query IR] → [validator] → [querysql renderer]
//
// SEALED INTERFACES:
//
// ConditionNode and TableSource are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so renderers can use
// exhaustive type switches:
//
//	switch n := node.(type) {
//	case Condition:
//	    // leaf predicate
//	case ConditionGroup:
//	    // AND / OR combination
//	}
//
// IMMUTABILITY:
//
// Every helper that "adds" something (ConditionGroup.With, SelectQuery.WithJoin
// and friends) returns a new value and clones the slices it touches. A
// partially built query can be shared as the prefix of many variants, including
// across goroutines, without synchronization.
//
// VALIDATION:
//
// ValidateTableName and ValidateTableAlias check identifiers before they are
// embedded in SQL text. ValidateSelectQuery runs every cross-clause check and
// reports all violations at once in a single *ValidationError whose
// Details.Errors lists the individual failures.
package queryir
