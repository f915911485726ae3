package decode

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// decodeResponseSchema is the subset of the vPIC DecodeVinValues payload we rely on.
func decodeResponseSchema() map[string]any {
	str := map[string]any{"type": []any{"string", "null"}}
	return map[string]any{
		"type":     "object",
		"required": []string{"Results"},
		"properties": map[string]any{
			"Count":   map[string]any{"type": "integer", "minimum": 0},
			"Message": map[string]any{"type": "string"},
			"Results": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []string{"ErrorCode", "Make", "Model", "ModelYear"},
					"properties": map[string]any{
						"ErrorCode":       map[string]any{"type": "string"},
						"ErrorText":       str,
						"Make":            str,
						"Model":           str,
						"ModelYear":       map[string]any{"type": []any{"string", "null"}, "pattern": `^(\d{4})?$`},
						"Trim":            str,
						"BodyClass":       str,
						"DisplacementL":   str,
						"EngineCylinders": str,
						"EngineModel":     str,
					},
				},
			},
		},
	}
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("decode.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("decode.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateAgainst(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
