package autoaccept

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	jsonschemav6 "github.com/santhosh-tekuri/jsonschema/v6"
)

// actionSchemaDoc is generated once from the Action struct tags at init;
// ValidateActionPayload compiles it afresh on every call.
var actionSchemaDoc = mustSchemaDoc(jsonschema.Reflect(&Action{}))

func mustSchemaDoc(schema *jsonschema.Schema) any {
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("autoaccept: marshal action schema: %v", err))
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		panic(fmt.Sprintf("autoaccept: unmarshal action schema: %v", err))
	}
	return doc
}

// ValidateActionPayload checks a raw inbound action payload (as received
// over pkg/ipc) against the generated Action schema before it is decoded
// and handed to Gate.Evaluate.
func ValidateActionPayload(raw []byte) error {
	var payloadDoc any
	if err := json.Unmarshal(raw, &payloadDoc); err != nil {
		return fmt.Errorf("unmarshal action payload: %w", err)
	}

	c := jsonschemav6.NewCompiler()
	if err := c.AddResource("action.json", actionSchemaDoc); err != nil {
		return fmt.Errorf("add action schema resource: %w", err)
	}
	schema, err := c.Compile("action.json")
	if err != nil {
		return fmt.Errorf("compile action schema: %w", err)
	}

	if err := schema.Validate(payloadDoc); err != nil {
		return fmt.Errorf("action payload invalid: %w", err)
	}
	return nil
}
