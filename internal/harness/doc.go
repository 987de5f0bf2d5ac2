// Package harness runs conformance scenarios against the query assembler.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: orders_page
//	description: "Join, filter and paginate"
//	document: ../queries.yaml   # query document, relative to the scenario file
//	query: orders_page          # name of the query in the document
//	type_hints: true
//	expect:
//	  sql: "SELECT id, name FROM users INNER JOIN orders ON ..."
//	  parameters: {param1: 1, param2: true}
//	  types: {param1: int64, param2: bool}
//	assertions:
//	  - type: clause_order
//	    keywords: [SELECT, FROM, WHERE, LIMIT]
//	  - type: param_count
//	    count: 4
//
// Instead of document and query a scenario may carry the query itself under
// inline, in the same shape as a document entry. A scenario that expects a
// failure sets expect.error_code; the build must then fail with that code.
//
// # Assertion Types
//
//   - sql_contains: the SQL contains text
//   - clause_order: keywords appear in the SQL in the given order
//   - param_count: exactly count parameters are bound
//   - param_value: parameter name is bound to value
//
// Parameters, types and assertion values are compared through canonical
// JSON, so a YAML 1 matches a bound int64(1).
package harness
