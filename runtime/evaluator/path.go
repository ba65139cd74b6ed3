package evaluator

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// navigate resolves a dotted path with optional array indexing against scope,
// e.g. "metrics.rmse[0]" or "run.state.phase".
func navigate(expr string, scope map[string]interface{}) interface{} {
	if strings.Contains(expr, "[") && strings.Contains(expr, "]") {
		return navigateIndexed(expr, scope)
	}

	parts := strings.Split(expr, ".")
	current, ok := scope[parts[0]]
	if !ok {
		return nil
	}
	for _, part := range parts[1:] {
		if current = fieldOf(current, part); current == nil {
			return nil
		}
	}
	return current
}

// navigateIndexed handles paths that mix property access and [n] indexing.
func navigateIndexed(expr string, scope map[string]interface{}) interface{} {
	firstDot := strings.Index(expr, ".")
	firstBracket := strings.Index(expr, "[")

	var root string
	switch {
	case firstDot < 0 && firstBracket < 0:
		return scope[expr]
	case firstDot < 0 || (firstBracket >= 0 && firstBracket < firstDot):
		root = expr[:firstBracket]
	default:
		root = expr[:firstDot]
	}

	current, ok := scope[root]
	if !ok {
		return nil
	}
	return walkPath(current, expr[len(root):])
}

// walkPath applies a path suffix like ".folds[1].score" to obj.
func walkPath(obj interface{}, path string) interface{} {
	current := obj
	i := 0
	for i < len(path) {
		if path[i] == '.' {
			i++
			continue
		}
		if path[i] == '[' {
			closing := strings.Index(path[i:], "]")
			if closing < 0 {
				return nil
			}
			closing += i
			index, err := strconv.Atoi(path[i+1 : closing])
			if err != nil || index < 0 {
				return nil
			}
			if current = elementAt(current, index); current == nil {
				return nil
			}
			i = closing + 1
			continue
		}

		end := len(path)
		if dot := strings.Index(path[i:], "."); dot >= 0 {
			end = i + dot
		}
		if bracket := strings.Index(path[i:], "["); bracket >= 0 && i+bracket < end {
			end = i + bracket
		}
		name := path[i:end]
		if current = fieldOf(current, name); current == nil {
			return nil
		}
		i = end
	}
	return current
}

// fieldOf reads a named entry from a map or an exported struct field,
// falling back to a case-insensitive match so that paths written in one
// case resolve values decoded from JSON or YAML in another.
func fieldOf(obj interface{}, name string) interface{} {
	if obj == nil {
		return nil
	}
	if asMap, ok := obj.(map[string]interface{}); ok {
		if val, present := asMap[name]; present {
			return val
		}
		for key, val := range asMap {
			if strings.EqualFold(key, name) {
				return val
			}
		}
		return nil
	}
	if val, ok := mapEntry(obj, name); ok {
		return val
	}

	value := reflect.ValueOf(obj)
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	field := value.FieldByName(name)
	if !field.IsValid() {
		structType := value.Type()
		for i := 0; i < structType.NumField(); i++ {
			if strings.EqualFold(structType.Field(i).Name, name) {
				field = value.Field(i)
				break
			}
		}
	}
	if !field.IsValid() || !field.CanInterface() {
		return nil
	}
	return field.Interface()
}

// mapEntry reads a key from any map with string keys via reflection.
func mapEntry(obj interface{}, key string) (interface{}, bool) {
	value := reflect.ValueOf(obj)
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil, false
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Map || value.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	entry := value.MapIndex(reflect.ValueOf(key))
	if !entry.IsValid() || !entry.CanInterface() {
		return nil, false
	}
	return entry.Interface(), true
}

func elementAt(obj interface{}, index int) interface{} {
	if obj == nil {
		return nil
	}
	switch items := obj.(type) {
	case []interface{}:
		if index < len(items) {
			return items[index]
		}
		return nil
	case []string:
		if index < len(items) {
			return items[index]
		}
		return nil
	case []float64:
		if index < len(items) {
			return items[index]
		}
		return nil
	case []int:
		if index < len(items) {
			return items[index]
		}
		return nil
	}

	value := reflect.ValueOf(obj)
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Slice && value.Kind() != reflect.Array {
		return nil
	}
	if index >= value.Len() {
		return nil
	}
	element := value.Index(index)
	if !element.CanInterface() {
		return nil
	}
	return element.Interface()
}

// stringify renders a value for interpolation into text.
func stringify(val interface{}) string {
	if val == nil {
		return ""
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.String:
		return v.String()
	}
	return fmt.Sprintf("%v", val)
}
