package scheduler

import (
	"fmt"
	"strings"

	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/runtime/evaluator"
	"github.com/mlgate/mlgate/runtime/execution"
)

// evaluateCondition resolves a when/goto condition against the run state; the
// executing step's output is visible under its namespace.
func evaluateCondition(condition string, run *execution.Run, step *graph.Step, anExecution *execution.Execution, defaultValue bool) (bool, error) {
	if condition == "" {
		return defaultValue, nil
	}
	expr := condition
	if !strings.HasPrefix(expr, "${") {
		expr = "${" + strings.TrimSpace(expr) + "}"
	}

	session := run.Session.Clone()
	session.Set(step.Namespace, anExecution.Output)

	evaluated := evaluator.New().Evaluate(expr, session.State)
	result, err := asBool(evaluated)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", condition, err)
	}
	run.Session.FireWhen(condition, result)
	return result, nil
}

func asBool(evaluated interface{}) (bool, error) {
	switch actual := evaluated.(type) {
	case bool:
		return actual, nil
	case int:
		return actual != 0, nil
	case string:
		return strings.TrimSpace(actual) != "", nil
	case float64:
		return actual != 0, nil
	case float32:
		return actual != 0, nil
	default:
		return false, fmt.Errorf("unsupported condition type %T", evaluated)
	}
}
