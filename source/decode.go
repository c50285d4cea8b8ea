package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// A Decoder turns the raw bytes read from the watched file into a
// value. Supply a custom one via WithDecoder for formats beyond JSON
// and YAML (TOML, HCL, custom binary).
type Decoder func(data []byte, v any) error

// DecodeJSON decodes strictly as JSON. Non-JSON content fails rather
// than falling back, which is what you want when the file is machine-
// written and a YAML-ish hand edit should be rejected loudly.
func DecodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("expected JSON: %w", err)
	}
	return nil
}

// DecodeYAML decodes as YAML. Since YAML is a superset of JSON, this
// also accepts JSON content.
func DecodeYAML(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// DecodeAuto sniffs the payload: content opening with '{' or '[' is
// decoded as JSON, everything else as YAML. This is the default
// decoder, suited to files whose format may change hands between
// tooling and humans.
func DecodeAuto(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return DecodeJSON(data, v)
	}
	return DecodeYAML(data, v)
}
