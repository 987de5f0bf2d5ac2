package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

// LoadFile loads a query document, choosing the decoder by extension:
// .yaml/.yml, .json, or .cue. A directory is loaded as a CUE package.
func LoadFile(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadCUE(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return DecodeYAML(data, path)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return DecodeJSON(data, path)
	default:
		return nil, fmt.Errorf("load %s: unsupported document type %q", path, filepath.Ext(path))
	}
}

// DecodeYAML parses a YAML query document. Unknown fields are rejected.
// filename is used only in error positions.
func DecodeYAML(data []byte, filename string) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error(), Pos: Position{Filename: filename}}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		for name, node := range yamlQueryNodes(&root) {
			doc.setPosition(name, Position{Filename: filename, Line: node.Line, Column: node.Column})
		}
	}
	return checkDocument(&doc)
}

// yamlQueryNodes returns the key node of every entry under "queries".
func yamlQueryNodes(root *yaml.Node) map[string]*yaml.Node {
	out := make(map[string]*yaml.Node)
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return out
	}
	top := root.Content[0]
	queries := mappingValue(top, "queries")
	if queries == nil || queries.Kind != yaml.MappingNode {
		return out
	}
	for i := 0; i+1 < len(queries.Content); i += 2 {
		key := queries.Content[i]
		out[key.Value] = key
	}
	return out
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// DecodeJSON parses a JSON query document. Unknown fields are rejected and
// numbers keep full precision until normalized.
func DecodeJSON(data []byte, filename string) (*Document, error) {
	var doc Document
	if err := decodeStrictJSON(data, &doc); err != nil {
		return nil, &CompileError{Field: "json", Message: err.Error(), Pos: Position{Filename: filename}}
	}
	return checkDocument(&doc)
}

func decodeStrictJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// LoadCUE loads a CUE file, or every CUE file of a directory as one
// package, and compiles its queries field.
func LoadCUE(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	dir, args := path, []string{"."}
	if !info.IsDir() {
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "cue", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := ctx.BuildInstance(inst)
	return CompileCUE(value)
}

// CompileCUE compiles the queries field of a CUE value. Each query must be
// concrete after defaults are applied; it is exported as JSON and decoded
// like a JSON document.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`queries: active: {from: name: "users"}`)
//	doc, err := CompileCUE(v)
func CompileCUE(v cue.Value) (*Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	queries := v.LookupPath(cue.ParsePath("queries"))
	if !queries.Exists() {
		return nil, &CompileError{Field: "queries", Message: "queries is required", Pos: fromToken(v.Pos())}
	}

	iter, err := queries.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	doc := &Document{Queries: make(map[string]QueryDoc)}
	for iter.Next() {
		name := iter.Label()
		qv := iter.Value()
		pos := fromToken(qv.Pos())

		data, err := qv.MarshalJSON()
		if err != nil {
			return nil, formatCUEError(err)
		}

		var q QueryDoc
		if err := decodeStrictJSON(data, &q); err != nil {
			return nil, &CompileError{Field: "queries." + name, Message: err.Error(), Pos: pos}
		}
		doc.Queries[name] = q
		doc.setPosition(name, pos)
	}
	return checkDocument(doc)
}

func checkDocument(doc *Document) (*Document, error) {
	if len(doc.Queries) == 0 {
		return nil, &CompileError{Field: "queries", Message: "document declares no queries"}
	}
	return doc, nil
}
