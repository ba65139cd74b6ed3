package gate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report maps a metric name to the ordered observations recorded over a
// training run; the last element is the final/converged value.
type Report map[string][]float64

// Direction states which side of the threshold is acceptable.
type Direction string

const (
	// LowerIsBetter holds when the final value exceeds the threshold.
	LowerIsBetter Direction = "LOWER_IS_BETTER"
	// HigherIsBetter holds when the final value falls below the threshold.
	HigherIsBetter Direction = "HIGHER_IS_BETTER"
)

// errorStyleMetrics are metrics whose direction defaults to LowerIsBetter
// when the spec does not state one.
var errorStyleMetrics = map[string]bool{
	"root_mean_squared_error": true,
	"mae":                     true,
	"mse":                     true,
	"loss":                    true,
}

// DefaultDirection returns the comparison direction applied when a rule does
// not declare one: LowerIsBetter for error-style metrics, HigherIsBetter
// otherwise.
func DefaultDirection(metric string) Direction {
	if errorStyleMetrics[metric] {
		return LowerIsBetter
	}
	return HigherIsBetter
}

// Rule binds a metric to a threshold and a comparison direction. An empty
// Direction defers to DefaultDirection at evaluation time.
type Rule struct {
	Metric    string    `json:"metric" yaml:"metric"`
	Threshold float64   `json:"threshold" yaml:"threshold"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

func (r *Rule) direction() (Direction, error) {
	switch Direction(strings.ToUpper(string(r.Direction))) {
	case "":
		return DefaultDirection(r.Metric), nil
	case LowerIsBetter:
		return LowerIsBetter, nil
	case HigherIsBetter:
		return HigherIsBetter, nil
	default:
		return "", &InvalidSpecError{Metric: r.Metric, Detail: fmt.Sprintf("unknown direction %q", r.Direction)}
	}
}

// Spec is an ordered collection of threshold rules. Order matters: evaluation
// reports the first violating rule in declared order, so decoding preserves
// the declaration order of the source document (a plain Go map would not).
type Spec []*Rule

// Validate checks structural soundness of the spec.
func (s Spec) Validate() error {
	seen := make(map[string]bool, len(s))
	for _, rule := range s {
		if rule == nil || rule.Metric == "" {
			return &InvalidSpecError{Detail: "rule with empty metric name"}
		}
		if seen[rule.Metric] {
			return &InvalidSpecError{Metric: rule.Metric, Detail: "duplicate rule"}
		}
		seen[rule.Metric] = true
		if math.IsNaN(rule.Threshold) || math.IsInf(rule.Threshold, 0) {
			return &InvalidSpecError{Metric: rule.Metric, Detail: "threshold is not a finite number"}
		}
		if _, err := rule.direction(); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON decodes a spec from a JSON object keyed by metric name, with
// either a bare numeric threshold or a {threshold, direction} record as the
// value. The token stream is walked directly to retain key order.
func (s *Spec) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return &InvalidSpecError{Detail: "spec document must be an object"}
	}
	var rules Spec
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		metric := keyToken.(string)
		var raw interface{}
		if err := decoder.Decode(&raw); err != nil {
			return err
		}
		rule, err := ruleFromValue(metric, raw)
		if err != nil {
			return err
		}
		rules = append(rules, rule)
	}
	*s = rules
	return nil
}

// UnmarshalYAML decodes a spec from a YAML mapping, preserving key order.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return &InvalidSpecError{Detail: "spec document must be a mapping"}
	}
	var rules Spec
	for i := 0; i+1 < len(node.Content); i += 2 {
		metric := node.Content[i].Value
		var raw interface{}
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return err
		}
		rule, err := ruleFromValue(metric, raw)
		if err != nil {
			return err
		}
		rules = append(rules, rule)
	}
	*s = rules
	return nil
}

func ruleFromValue(metric string, value interface{}) (*Rule, error) {
	rule := &Rule{Metric: metric}
	switch actual := value.(type) {
	case map[string]interface{}:
		thresholdValue, ok := actual["threshold"]
		if !ok {
			return nil, &InvalidSpecError{Metric: metric, Detail: "missing threshold"}
		}
		threshold, err := asFloat(thresholdValue)
		if err != nil {
			return nil, &InvalidSpecError{Metric: metric, Detail: err.Error()}
		}
		rule.Threshold = threshold
		if direction, ok := actual["direction"]; ok {
			text, ok := direction.(string)
			if !ok {
				return nil, &InvalidSpecError{Metric: metric, Detail: fmt.Sprintf("direction must be a string, got %T", direction)}
			}
			rule.Direction = Direction(text)
		}
	default:
		threshold, err := asFloat(value)
		if err != nil {
			return nil, &InvalidSpecError{Metric: metric, Detail: err.Error()}
		}
		rule.Threshold = threshold
	}
	if _, err := rule.direction(); err != nil {
		return nil, err
	}
	return rule, nil
}

func asFloat(value interface{}) (float64, error) {
	switch actual := value.(type) {
	case float64:
		return actual, nil
	case float32:
		return float64(actual), nil
	case int:
		return float64(actual), nil
	case int64:
		return float64(actual), nil
	case json.Number:
		return actual.Float64()
	default:
		return 0, fmt.Errorf("threshold must be numeric, got %T", value)
	}
}
