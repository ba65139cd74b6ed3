package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluator_Evaluate(t *testing.T) {
	type testCase struct {
		name   string
		expr   string
		scope  map[string]interface{}
		expect interface{}
	}

	tests := []testCase{
		{
			name:   "simple path",
			expr:   "${phase}",
			scope:  map[string]interface{}{"phase": "training"},
			expect: "training",
		},
		{
			name: "nested path",
			expr: "${run.gate.decision}",
			scope: map[string]interface{}{
				"run": map[string]interface{}{
					"gate": map[string]interface{}{"decision": "deploy"},
				},
			},
			expect: "deploy",
		},
		{
			name: "indexed path",
			expr: "${metrics.rmse[1]}",
			scope: map[string]interface{}{
				"metrics": map[string]interface{}{"rmse": []float64{2100, 1800}},
			},
			expect: 1800.0,
		},
		{
			name:   "string equality",
			expr:   "${decision == 'deploy'}",
			scope:  map[string]interface{}{"decision": "deploy"},
			expect: true,
		},
		{
			name:   "string inequality",
			expr:   "${decision != 'deploy'}",
			scope:  map[string]interface{}{"decision": "False"},
			expect: true,
		},
		{
			name:   "numeric comparison",
			expr:   "${rmse <= threshold}",
			scope:  map[string]interface{}{"rmse": 1800.0, "threshold": 2000.0},
			expect: true,
		},
		{
			name:   "arithmetic",
			expr:   "${attempts + 1}",
			scope:  map[string]interface{}{"attempts": 2},
			expect: 3,
		},
		{
			name:   "division yields float",
			expr:   "${total / folds}",
			scope:  map[string]interface{}{"total": 7, "folds": 2},
			expect: 3.5,
		},
		{
			name:   "logical and",
			expr:   "${trained == true && deployed == false}",
			scope:  map[string]interface{}{"trained": true, "deployed": false},
			expect: true,
		},
		{
			name:   "len of slice",
			expr:   "${len(observations)}",
			scope:  map[string]interface{}{"observations": []interface{}{1.0, 2.0, 3.0}},
			expect: 3,
		},
		{
			name:   "len comparison",
			expr:   "${len(observations) > 0}",
			scope:  map[string]interface{}{"observations": []interface{}{1.0}},
			expect: true,
		},
		{
			name:   "is nil on missing",
			expr:   "${is nil(missing)}",
			scope:  map[string]interface{}{},
			expect: true,
		},
		{
			name:   "is nil on present",
			expr:   "${is nil(decision)}",
			scope:  map[string]interface{}{"decision": "deploy"},
			expect: false,
		},
		{
			name:   "regex match",
			expr:   "${~/model ^automl-.*/}",
			scope:  map[string]interface{}{"model": "automl-tables-v3"},
			expect: true,
		},
		{
			name:   "missing variable",
			expr:   "${absent.path}",
			scope:  map[string]interface{}{"foo": 1},
			expect: nil,
		},
	}

	evaluator := New()
	for _, tc := range tests {
		actual := evaluator.Evaluate(tc.expr, tc.scope)
		assert.EqualValues(t, tc.expect, actual, tc.name)
	}
}

func TestEvaluator_StructNavigation(t *testing.T) {
	type trial struct {
		Score float64
		Name  string
	}
	scope := map[string]interface{}{
		"best": &trial{Score: 0.91, Name: "trial-7"},
		"trials": []interface{}{
			trial{Score: 0.80, Name: "trial-1"},
			trial{Score: 0.91, Name: "trial-7"},
		},
	}
	evaluator := New()
	assert.EqualValues(t, 0.91, evaluator.Evaluate("${best.Score}", scope))
	assert.EqualValues(t, 0.91, evaluator.Evaluate("${best.score}", scope), "case-insensitive field")
	assert.EqualValues(t, "trial-7", evaluator.Evaluate("${trials[1].Name}", scope))
}
