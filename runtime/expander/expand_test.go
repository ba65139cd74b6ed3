package expander

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand_Strings(t *testing.T) {
	type testCase struct {
		name   string
		value  string
		scope  map[string]interface{}
		expect interface{}
	}

	tests := []testCase{
		{
			name:   "simple variable",
			value:  "$dataset",
			scope:  map[string]interface{}{"dataset": "housing"},
			expect: "housing",
		},
		{
			name:   "braced variable",
			value:  "${dataset}",
			scope:  map[string]interface{}{"dataset": "housing"},
			expect: "housing",
		},
		{
			name:   "embedded variable",
			value:  "model for ${dataset} ready",
			scope:  map[string]interface{}{"dataset": "housing"},
			expect: "model for housing ready",
		},
		{
			name:   "two variables",
			value:  "$dataset/$target",
			scope:  map[string]interface{}{"dataset": "housing", "target": "price"},
			expect: "housing/price",
		},
		{
			name:  "nested path",
			value: "${gate.decision}",
			scope: map[string]interface{}{
				"gate": map[string]interface{}{"decision": "deploy"},
			},
			expect: "deploy",
		},
		{
			name:  "typed value preserved",
			value: "${threshold}",
			scope: map[string]interface{}{
				"threshold": 2000.0,
			},
			expect: 2000.0,
		},
		{
			name:   "int widened to float",
			value:  "${epochs}",
			scope:  map[string]interface{}{"epochs": 10},
			expect: 10.0,
		},
		{
			name:  "indexed path",
			value: "${rmse[1]}",
			scope: map[string]interface{}{
				"rmse": []interface{}{2100.0, 1800.0},
			},
			expect: 1800.0,
		},
		{
			name:   "arithmetic expression",
			value:  "${attempts + 1}",
			scope:  map[string]interface{}{"attempts": 2},
			expect: 3,
		},
		{
			name:  "indexed arithmetic",
			value: "${rmse[0] - rmse[1]}",
			scope: map[string]interface{}{
				"rmse": []interface{}{2100.0, 1800.0},
			},
			expect: 300.0,
		},
		{
			name:   "missing braced variable becomes empty",
			value:  "${absent}",
			scope:  map[string]interface{}{},
			expect: "",
		},
		{
			name:   "missing simple variable stays intact",
			value:  "$absent",
			scope:  map[string]interface{}{},
			expect: "$absent",
		},
		{
			name:   "no variables passes through",
			value:  "plain text",
			scope:  map[string]interface{}{},
			expect: "plain text",
		},
	}

	for _, tc := range tests {
		actual, err := Expand(tc.value, tc.scope)
		assert.NoError(t, err, tc.name)
		assert.EqualValues(t, tc.expect, actual, tc.name)
	}
}

func TestExpand_Structures(t *testing.T) {
	scope := map[string]interface{}{
		"dataset": "housing",
		"gate": map[string]interface{}{
			"decision": "deploy",
		},
		"folds": 5,
	}

	input := map[string]interface{}{
		"name": "train-${dataset}",
		"config": map[string]interface{}{
			"decision": "$gate.decision",
			"folds":    "${folds}",
		},
		"tags":  []interface{}{"${dataset}", "regression"},
		"count": 3,
	}

	actual, err := Expand(input, scope)
	assert.NoError(t, err)

	expanded, ok := actual.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "train-housing", expanded["name"])
	assert.Equal(t, 3, expanded["count"])

	config := expanded["config"].(map[string]interface{})
	assert.Equal(t, "deploy", config["decision"])
	assert.EqualValues(t, 5.0, config["folds"])

	tags := expanded["tags"].([]interface{})
	assert.Equal(t, []interface{}{"housing", "regression"}, tags)
}
