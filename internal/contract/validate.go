package contract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks "data" against the contract. Extraction results are trusted
// even when they drift from the contract, so callers use this for logging
// only, never to fail a document.
func Validate(contract map[string]any, data []byte) error {
	b, err := json.Marshal(contract)
	if err != nil {
		return fmt.Errorf("marshal contract: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("contract.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add contract: %w", err)
	}
	compiled, err := compiler.Compile("contract.json")
	if err != nil {
		return fmt.Errorf("compile contract: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match contract: %w", err)
	}
	return nil
}
