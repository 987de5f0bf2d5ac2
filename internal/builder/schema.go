package builder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spanq/internal/queryir"
	"github.com/roach88/spanq/internal/querysql"
)

// Schema maps table name to column name to Spanner type name ("int64",
// "string", ...). An empty type name accepts any value.
type Schema map[string]map[string]string

// SchemaError reports a reference the schema does not allow.
type SchemaError struct {
	Table   string
	Column  string
	Message string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("schema: %s.%s: %s", e.Table, e.Column, e.Message)
	case e.Column != "":
		return fmt.Sprintf("schema: column %s: %s", e.Column, e.Message)
	case e.Table != "":
		return fmt.Sprintf("schema: table %s: %s", e.Table, e.Message)
	}
	return "schema: " + e.Message
}

// scope resolves column references for one query.
type scope struct {
	schema Schema
	// names maps every usable qualifier (alias, or table name when
	// unaliased) to its table.
	names map[string]string
	// tables lists the tables in FROM/JOIN order.
	tables []string
}

func newScope(s Schema) *scope {
	return &scope{schema: s, names: make(map[string]string)}
}

// addTable registers a table reference and reports unknown tables.
func (sc *scope) addTable(name, alias string) error {
	if _, ok := sc.schema[name]; !ok {
		return &SchemaError{Table: name, Message: "unknown table"}
	}
	sc.tables = append(sc.tables, name)
	if alias != "" {
		sc.names[alias] = name
	} else {
		sc.names[name] = name
	}
	return nil
}

// addSource registers a join source. Tables are added like FROM tables;
// an UNNEST column must resolve against the tables already in scope.
func (sc *scope) addSource(src queryir.TableSource) error {
	switch s := src.(type) {
	case queryir.TableReference:
		return sc.addTable(s.Name, s.Alias)
	case *queryir.TableReference:
		if s != nil {
			return sc.addTable(s.Name, s.Alias)
		}
	case queryir.UnnestReference:
		return sc.addUnnest(s)
	case *queryir.UnnestReference:
		if s != nil {
			return sc.addUnnest(*s)
		}
	}
	return nil
}

func (sc *scope) addUnnest(u queryir.UnnestReference) error {
	if u.Column == "" {
		return nil
	}
	_, _, err := sc.resolve(u.Column)
	return err
}

// resolve finds the table and declared type of a column reference of the
// form "column" or "qualifier.column".
func (sc *scope) resolve(ref string) (table, typ string, err error) {
	ref = strings.TrimSpace(ref)
	if qualifier, column, ok := strings.Cut(ref, "."); ok {
		table, known := sc.names[qualifier]
		if !known {
			return "", "", &SchemaError{Column: ref, Message: fmt.Sprintf("unknown table or alias %q", qualifier)}
		}
		typ, found := sc.schema[table][column]
		if !found {
			return "", "", &SchemaError{Table: table, Column: column, Message: "unknown column"}
		}
		return table, typ, nil
	}

	var matches []string
	for _, t := range sc.tables {
		if _, ok := sc.schema[t][ref]; ok && !slices.Contains(matches, t) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", &SchemaError{Column: ref, Message: "unknown column"}
	case 1:
		return matches[0], sc.schema[matches[0]][ref], nil
	default:
		slices.Sort(matches)
		return "", "", &SchemaError{Column: ref, Message: "ambiguous column, found in " + strings.Join(matches, ", ")}
	}
}

// checkValue reports a bound value whose inferred type differs from the
// declared column type. nil is always accepted.
func checkValue(table, column, typ string, v any) error {
	if typ == "" || v == nil {
		return nil
	}
	hint, ok := querysql.InferTypeHint(v)
	if !ok {
		return nil
	}
	if hint.String() != typ {
		return &SchemaError{
			Table:   table,
			Column:  column,
			Message: fmt.Sprintf("value of type %s does not match column type %s", hint, typ),
		}
	}
	return nil
}
