package socket

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// actionSchema guards the inbound action envelope before anything is
// parsed into engine types. Clients are remote and untrusted; malformed
// envelopes are rejected at the door with a pointered error.
const actionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["game_id", "user_id", "action"],
  "properties": {
    "game_id": {"type": "string", "minLength": 1},
    "user_id": {"type": "string", "minLength": 1},
    "action": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "property": {"type": "integer", "minimum": 0, "maximum": 39},
        "amount": {"type": "integer", "minimum": 0},
        "trade_id": {"type": "integer", "minimum": 1},
        "trade": {
          "type": "object",
          "required": ["to"],
          "properties": {
            "to": {"type": "integer", "minimum": 0},
            "offer": {"$ref": "#/$defs/items"},
            "request": {"$ref": "#/$defs/items"},
            "message": {"type": "string", "maxLength": 500}
          }
        }
      }
    }
  },
  "$defs": {
    "items": {
      "type": "object",
      "properties": {
        "properties": {"type": "array", "items": {"type": "integer", "minimum": 0, "maximum": 39}},
        "cash": {"type": "integer", "minimum": 0},
        "jail_cards": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var actionValidator = jsonschema.MustCompileString("action.json", actionSchema)

// validateEnvelope checks raw JSON against the action schema.
func validateEnvelope(raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("malformed json: %w", err)
	}
	return actionValidator.Validate(v)
}
