package pipeline

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	_ "github.com/viant/afs/embed"

	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/service/meta"
)

//go:embed testdata/*
var testFS embed.FS

func TestService_Load(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		url         string
		expectedErr bool
		expectJSON  string
	}{
		{
			name: "steps with sub-steps and dependencies",
			url:  "deploy.yaml",
			expectJSON: `{
  "source": {
    "url": "deploy.yaml"
  },
  "name": "deploy",
  "Imports": null,
  "init": [
    {
      "name": "threshold",
      "value": 2000
    },
    {
      "name": "dataset",
      "value": "gs://ml-prod/housing.csv"
    }
  ],
  "steps": {
    "id": "deploy",
    "steps": [
      {
        "id": "deploy/train",
        "name": "train",
        "namespace": "train",
        "action": {
          "service": "automl",
          "method": "trainModel",
          "input": {
            "dataset": "${dataset}"
          }
        }
      },
      {
        "id": "deploy/evaluate",
        "name": "evaluate",
        "namespace": "evaluate",
        "steps": [
          {
            "id": "deploy/evaluate/score",
            "name": "score",
            "namespace": "score",
            "action": {
              "service": "printer",
              "method": "print",
              "input": {
                "message": "$train.Output"
              }
            },
            "dependsOn": [
              "baseline"
            ]
          }
        ]
      }
    ]
  },
  "dependencies": {
    "baseline": {
      "id": "baseline",
      "name": "baseline",
      "namespace": "baseline",
      "action": {
        "service": "printer",
        "method": "print",
        "input": {
          "message": "baseline"
        }
      }
    }
  }
}`,
		},
		{
			name: "conditional step with goto transition",
			url:  "gate.yaml",
			expectJSON: `{
  "source": {
    "url": "gate.yaml"
  },
  "name": "quality-gate",
  "Imports": null,
  "steps": {
    "id": "quality-gate",
    "steps": [
      {
        "id": "quality-gate/evaluate",
        "name": "evaluate",
        "namespace": "evaluate",
        "action": {
          "service": "gate",
          "method": "evaluate",
          "input": {
            "metrics": "${metrics}"
          }
        }
      },
      {
        "id": "quality-gate/decide",
        "name": "decide",
        "namespace": "decide",
        "when": "${gateDecision.Deploy == true}",
        "action": {
          "service": "printer",
          "method": "print",
          "input": {
            "message": "deploying"
          }
        },
        "goto": [
          {
            "when": "${attempts < 3}",
            "step": "evaluate"
          }
        ]
      }
    ]
  }
}`,
		},
		{
			name:        "missing pipeline",
			url:         "absent.yaml",
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		service := New(WithMetaService(meta.New(afs.New(), "embed:///testdata", &testFS)))

		t.Run(tc.name, func(t *testing.T) {
			actual, err := service.Load(ctx, tc.url)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			var expect model.Pipeline
			err = json.Unmarshal([]byte(tc.expectJSON), &expect)
			assert.Nil(t, err)
			if !assert.EqualValues(t, expect, *actual, tc.name) {
				actualJSON, _ := json.MarshalIndent(actual, "", "  ")
				fmt.Println(string(actualJSON))
			}
		})
	}
}

func TestService_DecodeYAML(t *testing.T) {
	definition := `
name: sweep
steps:
  tune:
    template:
      selector:
        - name: trial
          value: ${trials}
      step:
        runTrial:
          action: tuner:createStudy
`
	service := New()
	actual, err := service.DecodeYAML([]byte(definition))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "sweep", actual.Name)
	tune := actual.Steps.Steps[0]
	assert.Equal(t, "sweep/tune", tune.ID)
	if !assert.NotNil(t, tune.Template) {
		return
	}
	assert.Equal(t, "sweep/tune/runTrial", tune.Template.Step.ID)
	assert.Equal(t, "tuner", tune.Template.Step.Action.Service)
	selector := *tune.Template.Selector
	assert.Len(t, selector, 1)
	assert.Equal(t, "trial", selector[0].Name)
	assert.Equal(t, "${trials}", selector[0].Value)
}
