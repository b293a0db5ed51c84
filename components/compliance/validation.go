package compliance

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/surfaces.schema.json
var surfaceManifestSchema []byte

const surfaceManifestSchemaName = "surfaces.schema.json"

var (
	manifestSchemaOnce sync.Once
	manifestSchema     *jsonschema.Schema
	manifestSchemaErr  error
)

func compiledManifestSchema() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(surfaceManifestSchemaName, bytes.NewReader(surfaceManifestSchema)); err != nil {
			manifestSchemaErr = fmt.Errorf("compliance: load manifest schema: %w", err)
			return
		}
		manifestSchema, manifestSchemaErr = compiler.Compile(surfaceManifestSchemaName)
		if manifestSchemaErr != nil {
			manifestSchemaErr = fmt.Errorf("compliance: compile manifest schema: %w", manifestSchemaErr)
		}
	})
	return manifestSchema, manifestSchemaErr
}

// ValidateManifestValue checks a decoded manifest tree against the embedded
// JSON schema. The value is normalized through JSON first so YAML scalars
// match JSON types.
func ValidateManifestValue(value any) error {
	schema, err := compiledManifestSchema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("compliance: marshal manifest: %w", err)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("compliance: normalize manifest: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("compliance: manifest failed validation: %w", err)
	}
	return nil
}
