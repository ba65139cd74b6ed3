// Package evaluator resolves step conditions and inline expressions against
// run state, e.g. `$gateDecision == 'deploy'` or `${metrics.rmse[0] * 2}`.
package evaluator

import (
	"go/parser"
	"reflect"
	"regexp"
	"strings"
)

// Evaluator resolves string expressions against a variable scope.
type Evaluator struct{}

// New creates an expression evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate resolves expr against scope. Supported forms:
//   - ${path.to.value} and bare path navigation
//   - ${len(x)} with optional comparison, ${is nil(x)}, ${value ~/pattern/}
//   - arithmetic and logical expressions, e.g. ${attempts + 1 < limit}
func (e *Evaluator) Evaluate(expr string, scope map[string]interface{}) interface{} {
	if strings.HasPrefix(expr, "{") && strings.HasSuffix(expr, "}") {
		inner := expr[1 : len(expr)-1]
		if hasOperators(inner) {
			return EvalExpr(inner, scope)
		}
	}

	if strings.HasPrefix(expr, "${") && strings.HasSuffix(expr, "}") {
		inner := expr[2 : len(expr)-1]
		switch {
		case strings.HasPrefix(inner, "len("):
			if result, handled := e.evalLen(inner, scope); handled {
				return result
			}
		case strings.HasPrefix(inner, "is nil(") && strings.HasSuffix(inner, ")"):
			return e.evalIsNil(inner[7:len(inner)-1], scope)
		case strings.HasPrefix(inner, "~/") && strings.HasSuffix(inner, "/"):
			return e.evalRegex(inner[2:len(inner)-1], scope)
		}
		if hasOperators(inner) {
			return EvalExpr(inner, scope)
		}
		return navigate(inner, scope)
	}

	return navigate(expr, scope)
}

var comparisonOps = []string{">=", "<=", "==", "!=", ">", "<"}

// evalLen handles len(arg) optionally followed by a comparison.
func (e *Evaluator) evalLen(inner string, scope map[string]interface{}) (interface{}, bool) {
	closing := strings.Index(inner, ")")
	if closing < 0 {
		return 0, true
	}
	arg := inner[4:closing]
	rest := strings.TrimSpace(inner[closing+1:])
	length := lengthOf(navigate(arg, scope))
	if rest == "" {
		return length, true
	}
	for _, op := range comparisonOps {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		rhs := EvalExpr(strings.TrimSpace(rest[len(op):]), scope)
		cmp := compare(length, rhs)
		switch op {
		case "==":
			return cmp == 0, true
		case "!=":
			return cmp != 0, true
		case ">":
			return cmp > 0, true
		case "<":
			return cmp < 0, true
		case ">=":
			return cmp >= 0, true
		case "<=":
			return cmp <= 0, true
		}
	}
	return nil, false
}

func lengthOf(value interface{}) int {
	if value == nil {
		return 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return 0
}

func (e *Evaluator) evalIsNil(arg string, scope map[string]interface{}) bool {
	value := navigate(arg, scope)
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}

// evalRegex matches "value pattern" where pattern is the last space-separated token.
func (e *Evaluator) evalRegex(spec string, scope map[string]interface{}) bool {
	parts := strings.Split(spec, " ")
	if len(parts) < 2 {
		return false
	}
	pattern := parts[len(parts)-1]
	subject := navigate(strings.Join(parts[:len(parts)-1], " "), scope)
	if subject == nil {
		return false
	}
	matcher, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return matcher.MatchString(stringify(subject))
}

// EvalExpr evaluates an arithmetic or logical expression such as
// "attempts + 1" or "rmse <= threshold && deployed == false".
func EvalExpr(expr string, scope map[string]interface{}) interface{} {
	resolved := substituteVariables(expr, scope)
	parsed, err := parser.ParseExpr(resolved)
	if err != nil {
		return New().Evaluate(expr, scope)
	}
	return evalNode(parsed)
}

var singleQuoted = regexp.MustCompile(`'([^']*)'`)

// substituteVariables replaces variable references with literal values so the
// expression can be parsed as a Go expression.
func substituteVariables(expr string, scope map[string]interface{}) string {
	expr = singleQuoted.ReplaceAllString(expr, `"$1"`)
	tokens := strings.FieldsFunc(expr, func(c rune) bool {
		return !isIdentRune(c)
	})
	result := expr
	for _, token := range tokens {
		if !isVariablePath(token) {
			continue
		}
		value := navigate(token, scope)
		if value == nil {
			continue
		}
		result = strings.Join(strings.Split(result, token), literal(value))
	}
	return result
}

func literal(value interface{}) string {
	if s, ok := value.(string); ok {
		return `"` + s + `"`
	}
	return stringify(value)
}

func isIdentRune(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.'
}

// isVariablePath reports whether s looks like an identifier path (foo.bar.baz)
// rather than a literal.
func isVariablePath(s string) bool {
	if len(s) == 0 {
		return false
	}
	first := s[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z') || first == '_') {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentRune(rune(s[i])) {
			return false
		}
	}
	switch s {
	case "true", "false", "nil":
		return false
	}
	return true
}

// Navigate resolves a dotted, optionally indexed path against scope.
func Navigate(path string, scope map[string]interface{}) interface{} {
	return navigate(path, scope)
}

// Stringify renders a value for interpolation into text.
func Stringify(val interface{}) string {
	return stringify(val)
}

// HasOperators reports whether s contains arithmetic or logical operators.
func HasOperators(s string) bool {
	return hasOperators(s)
}

var operatorTokens = []string{"+", "-", "*", "/", "%", "==", "!=", ">", "<", ">=", "<=", "&&", "||"}

func hasOperators(s string) bool {
	for _, op := range operatorTokens {
		if op == "-" {
			// leading minus or minus after another operator is a sign, not an operator
			if strings.HasPrefix(s, "-") || strings.Contains(s, "+-") ||
				strings.Contains(s, "*-") || strings.Contains(s, "/-") ||
				strings.Contains(s, "=-") {
				continue
			}
		}
		if strings.Contains(s, op) {
			return true
		}
	}
	return false
}
