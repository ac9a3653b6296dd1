package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/recipe.schema.json
var recipeSchema []byte

//go:embed schema/config.schema.json
var configSchema []byte

// ValidateRecipeJSON validates a package recipe, already converted to JSON.
func ValidateRecipeJSON(data []byte) error {
	return ValidateAgainstSchema("recipe.schema.json", recipeSchema, data, "")
}

// ValidateConfigJSON validates the tool configuration, already converted to JSON.
func ValidateConfigJSON(data []byte) error {
	return ValidateAgainstSchema("config.schema.json", configSchema, data, "")
}

// ValidateAgainstSchema compiles schema under name and validates data
// against it, or against the sub-schema at ref when ref is non-empty.
func ValidateAgainstSchema(name string, schema []byte, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("loading schema %s: %w", name, err)
	}

	sch, err := compiler.Compile(name + ref)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", name, err)
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("schema validation against %s failed:\n%s", name, fmt.Sprintf("%#v", ve))
		}
		return fmt.Errorf("schema validation against %s failed: %w", name, err)
	}
	return nil
}
