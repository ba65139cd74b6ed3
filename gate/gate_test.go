package gate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		name     string
		report   Report
		spec     Spec
		expected *Decision
	}{
		{
			name:     "rmse clears threshold",
			report:   Report{"root_mean_squared_error": {3000, 2500, 1800}},
			spec:     Spec{{Metric: "root_mean_squared_error", Threshold: 2000, Direction: LowerIsBetter}},
			expected: &Decision{Outcome: OutcomeDeploy},
		},
		{
			name:   "rmse violates threshold",
			report: Report{"root_mean_squared_error": {3000, 2500, 2200}},
			spec:   Spec{{Metric: "root_mean_squared_error", Threshold: 2000, Direction: LowerIsBetter}},
			expected: holdDecision("root_mean_squared_error", 2200, 2000),
		},
		{
			name:     "accuracy clears threshold",
			report:   Report{"accuracy": {0.5, 0.7, 0.91}},
			spec:     Spec{{Metric: "accuracy", Threshold: 0.9, Direction: HigherIsBetter}},
			expected: &Decision{Outcome: OutcomeDeploy},
		},
		{
			name:     "final value equal to threshold deploys",
			report:   Report{"mae": {60, 50}},
			spec:     Spec{{Metric: "mae", Threshold: 50}},
			expected: &Decision{Outcome: OutcomeDeploy},
		},
		{
			name:     "default direction for error-style metric",
			report:   Report{"loss": {0.9, 0.4}},
			spec:     Spec{{Metric: "loss", Threshold: 0.5}},
			expected: &Decision{Outcome: OutcomeDeploy},
		},
		{
			name:     "default direction for score-style metric",
			report:   Report{"f1": {0.6, 0.7}},
			spec:     Spec{{Metric: "f1", Threshold: 0.8}},
			expected: holdDecision("f1", 0.7, 0.8),
		},
		{
			name: "first violation in spec order wins",
			report: Report{
				"mae":  {50, 40},
				"rmse": {90, 80},
			},
			spec: Spec{
				{Metric: "mae", Threshold: 10, Direction: LowerIsBetter},
				{Metric: "rmse", Threshold: 10, Direction: LowerIsBetter},
			},
			expected: holdDecision("mae", 40, 10),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := Evaluate(tc.report, tc.spec)
			require.NoError(t, err)
			assert.EqualValues(t, tc.expected, decision)
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	report := Report{"rmse": {12, 11, 10.5}, "accuracy": {0.8, 0.92}}
	spec := Spec{
		{Metric: "accuracy", Threshold: 0.9, Direction: HigherIsBetter},
		{Metric: "rmse", Threshold: 11, Direction: LowerIsBetter},
	}
	first, err := Evaluate(report, spec)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Evaluate(report, spec)
		require.NoError(t, err)
		assert.EqualValues(t, first, again)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	t.Run("missing metric", func(t *testing.T) {
		_, err := Evaluate(
			Report{"mae": {50, 40}},
			Spec{{Metric: "rmse", Threshold: 10, Direction: LowerIsBetter}},
		)
		var missing *MissingMetricError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "rmse", missing.Metric)
	})

	t.Run("empty observations", func(t *testing.T) {
		_, err := Evaluate(
			Report{"rmse": {}},
			Spec{{Metric: "rmse", Threshold: 10, Direction: LowerIsBetter}},
		)
		var empty *EmptyObservationsError
		require.True(t, errors.As(err, &empty))
		assert.Equal(t, "rmse", empty.Metric)
	})

	t.Run("unknown direction", func(t *testing.T) {
		_, err := Evaluate(
			Report{"rmse": {5}},
			Spec{{Metric: "rmse", Threshold: 10, Direction: "SIDEWAYS"}},
		)
		var invalid *InvalidSpecError
		require.True(t, errors.As(err, &invalid))
	})

	t.Run("duplicate rule", func(t *testing.T) {
		_, err := Evaluate(
			Report{"rmse": {5}},
			Spec{
				{Metric: "rmse", Threshold: 10},
				{Metric: "rmse", Threshold: 20},
			},
		)
		var invalid *InvalidSpecError
		require.True(t, errors.As(err, &invalid))
	})
}

func TestDecision_Token(t *testing.T) {
	deploy := &Decision{Outcome: OutcomeDeploy}
	assert.Equal(t, "deploy", deploy.Token())
	hold := holdDecision("rmse", 2200, 2000)
	assert.Equal(t, "False", hold.Token())
}

func TestDecodeSpec_PreservesOrder(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		spec, err := DecodeSpec([]byte(`{"zeta": 1, "alpha": {"threshold": 2, "direction": "LOWER_IS_BETTER"}, "mid": 3}`))
		require.NoError(t, err)
		require.Len(t, spec, 3)
		assert.Equal(t, "zeta", spec[0].Metric)
		assert.Equal(t, "alpha", spec[1].Metric)
		assert.Equal(t, LowerIsBetter, spec[1].Direction)
		assert.Equal(t, "mid", spec[2].Metric)
	})

	t.Run("yaml", func(t *testing.T) {
		spec, err := DecodeSpec([]byte("zeta: 1\nalpha:\n  threshold: 2\n  direction: HIGHER_IS_BETTER\n"))
		require.NoError(t, err)
		require.Len(t, spec, 2)
		assert.Equal(t, "zeta", spec[0].Metric)
		assert.EqualValues(t, 2, spec[1].Threshold)
	})
}

func TestDecodeSpec_Invalid(t *testing.T) {
	_, err := DecodeSpec([]byte(`{"rmse": "not-a-number"}`))
	var invalid *InvalidSpecError
	require.True(t, errors.As(err, &invalid))
}

func TestDecodeReport(t *testing.T) {
	report, err := DecodeReport([]byte(`{"rmse": [3000, 2500, 1800]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{3000, 2500, 1800}, report["rmse"])

	report, err = DecodeReport([]byte("mae:\n  - 50\n  - 40\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 40}, report["mae"])
}
