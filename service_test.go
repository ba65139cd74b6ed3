package mlgate_test

import (
	"context"
	"embed"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/afs/embed"

	"github.com/mlgate/mlgate"
	"github.com/mlgate/mlgate/runtime/execution"
)

//go:embed testdata/*
var embedFS embed.FS

func newTestService() *mlgate.Service {
	return mlgate.New(
		mlgate.WithMetaFsOptions(&embedFS),
		mlgate.WithMetaBaseURL("embed:///testdata"),
	)
}

func TestService_LoadPipeline(t *testing.T) {
	srv := newTestService()
	runtime := srv.Runtime()
	ctx := context.Background()
	pipeline, err := runtime.LoadPipeline(ctx, "release.yaml")
	require.NoError(t, err)
	require.NotNil(t, pipeline)
	assert.Equal(t, "release", pipeline.Name)
}

func TestService_GatePipeline(t *testing.T) {
	testCases := []struct {
		name    string
		metrics map[string][]float64
		deploy  bool
		token   string
	}{
		{
			name: "all metrics clear",
			metrics: map[string][]float64{
				"root_mean_squared_error": {2100, 1900},
				"accuracy":                {0.88, 0.92},
			},
			deploy: true,
			token:  "deploy",
		},
		{
			name: "final observation violates",
			metrics: map[string][]float64{
				"root_mean_squared_error": {1900, 2100},
				"accuracy":                {0.92},
			},
			deploy: false,
			token:  "False",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestService()
			runtime := srv.Runtime()
			ctx := srv.NewContext(context.Background())
			require.NoError(t, runtime.Start(ctx))
			defer runtime.Shutdown(ctx)

			pipeline, err := runtime.LoadPipeline(ctx, "release.yaml")
			require.NoError(t, err)

			_, wait, err := runtime.StartRun(ctx, pipeline, map[string]interface{}{
				"metrics": tc.metrics,
				"thresholds": map[string]interface{}{
					"root_mean_squared_error": 2000.0,
					"accuracy": map[string]interface{}{
						"threshold": 0.9,
						"direction": "higher_is_better",
					},
				},
			})
			require.NoError(t, err)

			output, err := wait(ctx, 15*time.Second)
			require.NoError(t, err)
			require.False(t, output.Timeout)
			assert.Equal(t, execution.StateCompleted, output.State)

			decision, ok := output.Output["evaluate"].(map[string]interface{})
			require.True(t, ok, "expected gate output in session, got: %+v", output.Output)
			assert.Equal(t, tc.deploy, decision["deploy"])
			assert.Equal(t, tc.token, decision["token"])
			if tc.deploy {
				assert.Contains(t, output.Output, "announce")
			} else {
				assert.NotContains(t, output.Output, "announce")
			}
		})
	}
}

func TestService_SubPipeline(t *testing.T) {
	srv := newTestService()
	runtime := srv.Runtime()
	ctx := srv.NewContext(context.Background())
	require.NoError(t, runtime.Start(ctx))
	defer runtime.Shutdown(ctx)

	pipeline, err := runtime.LoadPipeline(ctx, "parent.yaml")
	require.NoError(t, err)

	_, wait, err := runtime.StartRun(ctx, pipeline, map[string]interface{}{
		"metrics":    map[string][]float64{"root_mean_squared_error": {1800}, "accuracy": {0.95}},
		"thresholds": map[string]interface{}{"root_mean_squared_error": 2000.0, "accuracy": map[string]interface{}{"threshold": 0.9, "direction": "higher_is_better"}},
	})
	require.NoError(t, err)

	output, err := wait(ctx, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, execution.StateCompleted, output.State)

	release, ok := output.Output["release"].(map[string]interface{})
	require.True(t, ok, "expected sub-run output in session, got: %+v", output.Output)
	assert.Equal(t, "completed", release["state"])
	subOutput, ok := release["output"].(map[string]interface{})
	require.True(t, ok)
	decision, ok := subOutput["evaluate"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, decision["deploy"])
}
