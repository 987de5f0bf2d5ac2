// Package querysql assembles queryir trees into parameterized Cloud Spanner
// (GoogleSQL) statements.
//
// # Parameters
//
// Every literal is bound through a ParameterManager and referenced as
// @param1, @param2, ... Spanner requires named placeholders; positional ?
// placeholders are never emitted. Equal values share one placeholder.
//
// # Rendering
//
// RenderCondition walks a condition tree depth-first, binding values as it
// writes them. The clause renderers (RenderSelectList, RenderJoin, ...) are
// pure functions of their input and the manager they are given.
//
// # Assembly
//
// Build validates the query, renders each clause in dialect order and
// returns a Result. The package performs no I/O and holds no global state.
package querysql
