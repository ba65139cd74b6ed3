package parameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	bstate "github.com/viant/bindly/state"

	"github.com/mlgate/mlgate/model/state"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expected    *state.Parameter
		shouldError bool
	}{
		{
			description: "typed parameter with kind and location",
			input:       "trainReport[automl.TrainReport](output/train)",
			expected: &state.Parameter{
				Name:     "trainReport",
				DataType: "automl.TrainReport",
				Location: &bstate.Location{Kind: "output", In: "train"},
			},
		},
		{
			description: "typed parameter with kind only",
			input:       "modelID[string](env)",
			expected: &state.Parameter{
				Name:     "modelID",
				DataType: "string",
				Location: &bstate.Location{Kind: "env"},
			},
		},
		{
			description: "typed parameter without location",
			input:       "candidates[tuner.Trial]()",
			expected: &state.Parameter{
				Name:     "candidates",
				DataType: "tuner.Trial",
				Location: &bstate.Location{},
			},
		},
		{
			description: "generic type with nested brackets",
			input:       "metrics[map[string]float64](state/metrics)",
			expected: &state.Parameter{
				Name:     "metrics",
				DataType: "map[string]float64",
				Location: &bstate.Location{Kind: "state", In: "metrics"},
			},
		},
		{
			description: "missing type bracket",
			input:       "broken(kind/location)",
			shouldError: true,
		},
		{
			description: "missing location parenthesis",
			input:       "broken[string]",
			shouldError: true,
		},
	}

	for _, testCase := range testCases {
		actual, err := Parse([]byte(testCase.input))
		if testCase.shouldError {
			assert.Error(t, err, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.EqualValues(t, testCase.expected, actual, testCase.description)
	}
}
