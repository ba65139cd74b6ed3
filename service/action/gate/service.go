// Package gate exposes threshold-gate evaluation as a pipeline action so a
// deployment step can branch on the verdict.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/afs"

	"github.com/mlgate/mlgate/gate"
	"github.com/mlgate/mlgate/model/types"
)

const name = "gate"

// Service evaluates metric reports against threshold specs.
type Service struct {
	fs afs.Service
}

// Input supplies the report and spec either inline or as document URLs.
// Inline values win when both are set.
type Input struct {
	// Metrics is an inline metric report, metric name to observations.
	Metrics map[string][]float64 `json:"metrics,omitempty"`
	// MetricsURL locates a serialized report document (JSON or YAML).
	MetricsURL string `json:"metricsURL,omitempty"`
	// Thresholds is an inline spec, metric name to threshold value or
	// {threshold, direction} object.
	Thresholds map[string]interface{} `json:"thresholds,omitempty"`
	// ThresholdsURL locates a serialized spec document (JSON or YAML).
	ThresholdsURL string `json:"thresholdsURL,omitempty"`
}

// Output carries the verdict plus its boundary token for goto conditions.
type Output struct {
	Decision *gate.Decision `json:"decision"`
	Deploy   bool           `json:"deploy"`
	Token    string         `json:"token"`
}

// New creates a gate action service.
func New() *Service {
	return &Service{fs: afs.New()}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "evaluate",
			Description: "Evaluates a metric report against a threshold spec and returns the deployment decision.",
			Input:       reflect.TypeOf(&Input{}),
			Output:      reflect.TypeOf(&Output{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "evaluate":
		return s.evaluate, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) evaluate(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*Input)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	report, err := s.report(ctx, input)
	if err != nil {
		return err
	}
	spec, err := s.spec(ctx, input)
	if err != nil {
		return err
	}
	decision, err := gate.Evaluate(report, spec)
	if err != nil {
		return err
	}
	output.Decision = decision
	output.Deploy = decision.Deploy()
	output.Token = decision.Token()
	return nil
}

func (s *Service) report(ctx context.Context, input *Input) (gate.Report, error) {
	if input.Metrics != nil {
		return gate.Report(input.Metrics), nil
	}
	if input.MetricsURL == "" {
		return nil, fmt.Errorf("either metrics or metricsURL is required")
	}
	data, err := s.fs.DownloadWithURL(ctx, input.MetricsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics from %s: %w", input.MetricsURL, err)
	}
	return gate.DecodeReport(data)
}

func (s *Service) spec(ctx context.Context, input *Input) (gate.Spec, error) {
	if input.Thresholds != nil {
		// round-trip through JSON to reuse the spec mapping-form decoder
		data, err := json.Marshal(input.Thresholds)
		if err != nil {
			return nil, err
		}
		return gate.DecodeSpec(data)
	}
	if input.ThresholdsURL == "" {
		return nil, fmt.Errorf("either thresholds or thresholdsURL is required")
	}
	data, err := s.fs.DownloadWithURL(ctx, input.ThresholdsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load thresholds from %s: %w", input.ThresholdsURL, err)
	}
	return gate.DecodeSpec(data)
}
