package meta

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvExpr(t *testing.T) {
	testCases := []struct {
		description string
		env         map[string]string
		input       string
		expect      string
	}{
		{
			description: "plain text",
			input:       "rmse <= 2000",
			expect:      "rmse <= 2000",
		},
		{
			description: "single expression",
			env:         map[string]string{"GATE_PROJECT": "ml-prod"},
			input:       "project: ${env.GATE_PROJECT}",
			expect:      "project: ml-prod",
		},
		{
			description: "repeated and multiple expressions",
			env:         map[string]string{"REGION": "us-central1", "MODEL": "churn"},
			input:       "${env.REGION}/${env.MODEL}/${env.REGION}",
			expect:      "us-central1/churn/us-central1",
		},
		{
			description: "unset variable expands to empty",
			input:       "token=${env.GATE_ABSENT}.",
			expect:      "token=.",
		},
		{
			description: "missing closing brace stays literal",
			env:         map[string]string{"REGION": "us-central1"},
			input:       "a ${env.REGION and ${env.MODEL} b",
			expect:      "a ${env.REGION and  b",
		},
		{
			description: "empty key",
			input:       "x ${env.} y",
			expect:      "x  y",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			for _, key := range []string{"GATE_PROJECT", "REGION", "MODEL", "GATE_ABSENT"} {
				os.Unsetenv(key)
			}
			for key, value := range testCase.env {
				os.Setenv(key, value)
			}
			assert.Equal(t, testCase.expect, expandEnvExpr(testCase.input))
		})
	}
}
