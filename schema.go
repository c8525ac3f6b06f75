package main

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed config/export-schema.json
var exportSchema string

// ErrInvalidExport marks input files that fail the export schema
var ErrInvalidExport = errors.New("invalid export")

// compileExportSchema compiles the embedded export schema
func compileExportSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("export-schema.json", strings.NewReader(exportSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("export-schema.json")
}

// parseExport validates data against schema and decodes the envelope.
// Individual documents are left raw.
func parseExport(schema *jsonschema.Schema, data []byte) (*Export, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}

	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExport, describeValidation(err))
	}

	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	return &export, nil
}

// describeValidation flattens a schema validation error into
// "location: message" pairs
func describeValidation(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}

	var parts []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			location := node.InstanceLocation
			if location == "" {
				location = "#"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", location, node.Message))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return strings.Join(parts, "; ")
}
