package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce  sync.Once
	schemaBytes []byte
	schemaErr   error
)

// JSONSchema returns the JSON Schema document describing Config, generated
// from struct tags, for editor tooling. No CLI subcommand exposes it, and
// Load does not validate against it.
func JSONSchema() ([]byte, error) {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{FieldNameTag: "yaml"}
		schema := reflector.Reflect(&Config{})
		schemaBytes, schemaErr = json.MarshalIndent(schema, "", "  ")
	})
	return schemaBytes, schemaErr
}
