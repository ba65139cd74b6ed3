package gate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeReport parses a serialized metric report. JSON and YAML documents are
// both accepted; the format is sniffed from the payload.
func DecodeReport(data []byte) (Report, error) {
	report := Report{}
	if looksLikeJSON(data) {
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("failed to decode metric report: %w", err)
		}
		return report, nil
	}
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode metric report: %w", err)
	}
	return report, nil
}

// DecodeSpec parses a serialized threshold spec, preserving metric declaration
// order.
func DecodeSpec(data []byte) (Spec, error) {
	var spec Spec
	if looksLikeJSON(data) {
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, err
		}
		return spec, nil
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
