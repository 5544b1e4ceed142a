package server

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed request.schema.json
var requestSchemaJSON []byte

const requestSchemaURL = "https://tategaki.local/schema/request.json"

// compileRequestSchema compiles the embedded generation request schema.
func compileRequestSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(requestSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse request schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(requestSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add request schema: %w", err)
	}
	return compiler.Compile(requestSchemaURL)
}

// validateRequest checks body against the schema. The returned error lists the
// offending fields.
func validateRequest(schema *jsonschema.Schema, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("schema violation at %s", strings.Join(violationPaths(verr), ", "))
		}
		return err
	}
	return nil
}

// violationPaths returns the instance locations of the leaf causes of verr.
func violationPaths(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		return []string{"/" + strings.Join(verr.InstanceLocation, "/")}
	}
	var paths []string
	for _, cause := range verr.Causes {
		paths = append(paths, violationPaths(cause)...)
	}
	return paths
}
