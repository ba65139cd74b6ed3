package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlgate/mlgate/gate"
)

func TestService_Evaluate(t *testing.T) {
	testCases := []struct {
		description string
		input       *Input
		expectErr   bool
		deploy      bool
		token       string
	}{
		{
			description: "all metrics clear",
			input: &Input{
				Metrics: map[string][]float64{
					"root_mean_squared_error": {2500, 2100, 1900},
					"acc":  {0.81, 0.92},
				},
				Thresholds: map[string]interface{}{
					"root_mean_squared_error": 2000,
					"acc":  0.9,
				},
			},
			deploy: true,
			token:  gate.TokenDeploy,
		},
		{
			description: "violation holds deployment",
			input: &Input{
				Metrics:    map[string][]float64{"root_mean_squared_error": {2500, 2100}},
				Thresholds: map[string]interface{}{"root_mean_squared_error": 2000},
			},
			deploy: false,
			token:  gate.TokenHold,
		},
		{
			description: "missing metric",
			input: &Input{
				Metrics:    map[string][]float64{"root_mean_squared_error": {1500}},
				Thresholds: map[string]interface{}{"mae": 100},
			},
			expectErr: true,
		},
		{
			description: "no report source",
			input:       &Input{Thresholds: map[string]interface{}{"root_mean_squared_error": 2000}},
			expectErr:   true,
		},
	}

	srv := New()
	method, err := srv.Method("evaluate")
	assert.NoError(t, err)

	for _, testCase := range testCases {
		output := &Output{}
		err := method(context.Background(), testCase.input, output)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.deploy, output.Deploy, testCase.description)
		assert.Equal(t, testCase.token, output.Token, testCase.description)
		assert.NotNil(t, output.Decision, testCase.description)
	}
}

func TestService_EvaluateHoldDetails(t *testing.T) {
	srv := New()
	method, _ := srv.Method("evaluate")
	output := &Output{}
	err := method(context.Background(), &Input{
		Metrics:    map[string][]float64{"top_k_accuracy": {0.95, 0.85}},
		Thresholds: map[string]interface{}{"top_k_accuracy": 0.9},
	}, output)
	assert.NoError(t, err)
	assert.False(t, output.Deploy)
	if assert.NotNil(t, output.Decision.ViolatedMetric) {
		assert.Equal(t, "top_k_accuracy", *output.Decision.ViolatedMetric)
	}
	if assert.NotNil(t, output.Decision.ViolatedValue) {
		assert.Equal(t, 0.85, *output.Decision.ViolatedValue)
	}
}
