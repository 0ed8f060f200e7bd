package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaPath = "config.schema.json"

//go:embed config.schema.json
var schemaData []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaPath, bytes.NewReader(schemaData)); err != nil {
		return nil, fmt.Errorf("add config schema: %w", err)
	}
	return compiler.Compile(schemaPath)
})

// validateDocument checks a raw config document against the embedded schema.
// Unknown keys and wrongly typed values are rejected here, before decoding
// would silently drop or zero them.
func validateDocument(data []byte, format string) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	instance, err := genericDocument(data, format)
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// genericDocument decodes any supported format into JSON-shaped values.
func genericDocument(data []byte, format string) (any, error) {
	if format == "json" {
		return decodeJSONInstance(data)
	}

	var raw any
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		var doc map[string]any
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
		raw = doc
	}
	if raw == nil {
		raw = map[string]any{}
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s document: %w", format, err)
	}
	return decodeJSONInstance(normalized)
}

func decodeJSONInstance(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return v, nil
}
