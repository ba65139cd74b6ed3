package evaluator

import (
	"go/ast"
	"go/token"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// evalNode evaluates a parsed Go expression tree built from literal values.
func evalNode(node ast.Expr) interface{} {
	switch n := node.(type) {
	case *ast.BasicLit:
		switch n.Kind {
		case token.INT:
			val, _ := strconv.Atoi(n.Value)
			return val
		case token.FLOAT:
			val, _ := strconv.ParseFloat(n.Value, 64)
			return val
		case token.STRING, token.CHAR:
			return strings.Trim(n.Value, `"'`)
		}
	case *ast.Ident:
		switch n.Name {
		case "true":
			return true
		case "false":
			return false
		case "nil":
			return nil
		}
	case *ast.ParenExpr:
		return evalNode(n.X)
	case *ast.UnaryExpr:
		operand := evalNode(n.X)
		switch n.Op {
		case token.SUB:
			switch v := operand.(type) {
			case int:
				return -v
			case float64:
				return -v
			}
		case token.NOT:
			if b, ok := operand.(bool); ok {
				return !b
			}
		}
	case *ast.BinaryExpr:
		return evalBinary(n)
	}
	return nil
}

func evalBinary(n *ast.BinaryExpr) interface{} {
	left := evalNode(n.X)
	right := evalNode(n.Y)

	switch n.Op {
	case token.LAND:
		return asBool(left) && asBool(right)
	case token.LOR:
		return asBool(left) || asBool(right)
	}

	left, right = align(left, right)
	switch n.Op {
	case token.ADD:
		return add(left, right)
	case token.SUB:
		if bothInt(left, right) {
			return asInt(left) - asInt(right)
		}
		return asFloat(left) - asFloat(right)
	case token.MUL:
		if bothInt(left, right) {
			return asInt(left) * asInt(right)
		}
		return asFloat(left) * asFloat(right)
	case token.QUO:
		if asFloat(right) == 0 {
			return math.Inf(1)
		}
		return asFloat(left) / asFloat(right)
	case token.REM:
		return modulo(left, right)
	case token.EQL:
		return reflect.DeepEqual(left, right)
	case token.NEQ:
		return !reflect.DeepEqual(left, right)
	case token.LSS:
		return compare(left, right) < 0
	case token.GTR:
		return compare(left, right) > 0
	case token.LEQ:
		return compare(left, right) <= 0
	case token.GEQ:
		return compare(left, right) >= 0
	}
	return nil
}

func add(x, y interface{}) interface{} {
	if sx, ok := x.(string); ok {
		if sy, ok := y.(string); ok {
			return sx + sy
		}
		return sx + stringify(y)
	}
	if sy, ok := y.(string); ok {
		return stringify(x) + sy
	}
	if bothInt(x, y) {
		return asInt(x) + asInt(y)
	}
	return asFloat(x) + asFloat(y)
}

func modulo(x, y interface{}) interface{} {
	if bothInt(x, y) && asInt(y) != 0 {
		return asInt(x) % asInt(y)
	}
	divisor := asFloat(y)
	if divisor == 0 {
		return math.NaN()
	}
	return math.Mod(asFloat(x), divisor)
}

// align coerces x and y to a shared numeric type: int if both integral,
// float64 if either is floating point.
func align(x, y interface{}) (interface{}, interface{}) {
	if bothInt(x, y) {
		return asInt(x), asInt(y)
	}
	if isFloat(x) || isFloat(y) {
		return asFloat(x), asFloat(y)
	}
	return x, y
}

func bothInt(x, y interface{}) bool {
	return isInt(x) && isInt(y)
}

func isInt(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isFloat(v interface{}) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case int8:
		return int(val)
	case int16:
		return int(val)
	case int32:
		return int(val)
	case int64:
		return int(val)
	case uint:
		return int(val)
	case uint8:
		return int(val)
	case uint16:
		return int(val)
	case uint32:
		return int(val)
	case uint64:
		return int(val)
	case float32:
		return int(val)
	case float64:
		return int(val)
	case string:
		i, _ := strconv.Atoi(val)
		return i
	}
	return 0
}

func asFloat(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	}
	return 0
}

// compare returns -1, 0 or 1 ordering x against y numerically.
func compare(x, y interface{}) int {
	if bothInt(x, y) {
		xi, yi := asInt(x), asInt(y)
		switch {
		case xi < yi:
			return -1
		case xi > yi:
			return 1
		}
		return 0
	}
	xf, yf := asFloat(x), asFloat(y)
	switch {
	case xf < yf:
		return -1
	case xf > yf:
		return 1
	}
	return 0
}
