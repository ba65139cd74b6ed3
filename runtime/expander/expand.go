// Package expander interpolates $var and ${expr} references in step inputs
// against run state before an action executes.
package expander

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/mlgate/mlgate/runtime/evaluator"
	"github.com/viant/structology/visitor"
)

// Expand recursively walks maps and slices, interpolating every string that
// carries a variable reference. Non-string leaves pass through unchanged.
func Expand(value interface{}, scope map[string]interface{}) (interface{}, error) {
	switch actual := value.(type) {
	case map[string]interface{}:
		expanded := make(map[string]interface{})
		visit := visitor.MapVisitorOf[string, interface{}](actual)
		err := visit(func(key string, element interface{}) (bool, error) {
			expandedKey := key
			if hasExpr(key) {
				resolved := expandText(key, scope)
				str, ok := resolved.(string)
				if !ok {
					return true, nil
				}
				expandedKey = str
			}
			if text, ok := element.(string); ok && hasExpr(text) {
				element = expandText(text, scope)
			} else {
				var err error
				if element, err = Expand(element, scope); err != nil {
					return false, err
				}
			}
			expanded[expandedKey] = element
			return true, nil
		})
		return expanded, err

	case []interface{}:
		expanded := make([]interface{}, len(actual))
		for i, item := range actual {
			if text, ok := item.(string); ok && hasExpr(text) {
				expanded[i] = expandText(text, scope)
				continue
			}
			resolved, err := Expand(item, scope)
			if err != nil {
				return nil, err
			}
			expanded[i] = resolved
		}
		return expanded, nil

	case string:
		if hasExpr(actual) {
			return expandText(actual, scope), nil
		}
		return actual, nil
	}
	return value, nil
}

func hasExpr(value string) bool {
	return strings.Contains(value, "$")
}

var purePathPattern = regexp.MustCompile(`^\$[a-zA-Z_][a-zA-Z0-9_.\[\]]*$`)
var bracedPattern = regexp.MustCompile(`\$\{([^{}]+)\}`)
var simpleVarPattern = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_.]*)`)

// expandText interpolates a single string. When the whole string is one
// variable or expression the typed value comes back (floats, bools, slices)
// rather than its textual form; mixed text falls back to interpolation.
func expandText(value string, scope map[string]interface{}) interface{} {
	if value == "" {
		return value
	}

	pureBraced := strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") &&
		!strings.Contains(value[2:len(value)-1], "${")
	if pureBraced {
		expr := value[2 : len(value)-1]
		if evaluator.HasOperators(expr) {
			if result := evaluator.EvalExpr(expr, scope); result != nil {
				return result
			}
			return evalIndexedExpr(expr, scope)
		}
		result := evaluator.Navigate(expr, scope)
		if result == nil {
			return ""
		}
		return asNumber(result)
	}

	pureVariable := strings.HasPrefix(value, "$") && !strings.Contains(value, " ") &&
		!strings.Contains(value, "${") && purePathPattern.MatchString(value)
	if pureVariable {
		if result := evaluator.Navigate(value[1:], scope); result != nil {
			return asNumber(result)
		}
		// unresolved tokens stay intact so downstream steps can retry
		return value
	}

	result := bracedPattern.ReplaceAllStringFunc(value, func(match string) string {
		expr := match[2 : len(match)-1]
		var replacement interface{}
		if evaluator.HasOperators(expr) {
			if replacement = evaluator.EvalExpr(expr, scope); replacement == nil {
				replacement = evalIndexedExpr(expr, scope)
			}
		} else {
			replacement = evaluator.Navigate(expr, scope)
		}
		return evaluator.Stringify(replacement)
	})

	result = simpleVarPattern.ReplaceAllStringFunc(result, func(match string) string {
		replacement := evaluator.Navigate(match[1:], scope)
		if replacement == nil {
			return match
		}
		switch reflect.TypeOf(replacement).Kind() {
		case reflect.Slice, reflect.Map:
			return match
		}
		return evaluator.Stringify(replacement)
	})
	return result
}

var indexedPathPattern = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*(?:\[[0-9]+\])*(?:\.[a-zA-Z_][a-zA-Z0-9_]*(?:\[[0-9]+\])*)*`)

// evalIndexedExpr substitutes indexed variable paths (e.g. rmse[0] + rmse[1])
// with literals before re-running the expression evaluator.
func evalIndexedExpr(expr string, scope map[string]interface{}) interface{} {
	processed := indexedPathPattern.ReplaceAllStringFunc(expr, func(token string) string {
		value := evaluator.Navigate(token, scope)
		if value == nil {
			return token
		}
		switch v := value.(type) {
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64, bool:
			return fmt.Sprintf("%v", v)
		case string:
			return fmt.Sprintf("%q", v)
		}
		return token
	})
	if processed == expr {
		return nil
	}
	return evaluator.EvalExpr(processed, scope)
}

// asNumber widens integral values to float64, matching how JSON and YAML
// decoding surfaces numbers elsewhere in the engine.
func asNumber(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}
