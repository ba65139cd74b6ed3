// Package tuner talks to the distributed hyperparameter-search collaborator.
// Its metricsReport method fetches the per-epoch observations the threshold
// gate consumes.
package tuner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/mlgate/mlgate/model/types"
)

const name = "tuner"

// Config holds the search service endpoint defaults.
type Config struct {
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Service exposes the search service REST contract as pipeline actions.
type Service struct {
	config     Config
	httpClient *http.Client
}

// New creates a tuner action service.
func New(config Config) *Service {
	return &Service{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// CreateStudyInput starts a hyperparameter search.
type CreateStudyInput struct {
	Objective string                 `json:"objective" required:"true" description:"metric to optimize, e.g. val_loss"`
	Direction string                 `json:"direction,omitempty" description:"min or max (default min)"`
	MaxTrials int                    `json:"maxTrials,omitempty"`
	Space     map[string]interface{} `json:"space,omitempty" description:"hyperparameter search space"`
}

type CreateStudyOutput struct {
	Study *Study `json:"study,omitempty"`
}

// StatusInput polls study progress.
type StatusInput struct {
	StudyID string `json:"studyId" required:"true"`
}

type StatusOutput struct {
	Status *StudyStatus `json:"status,omitempty"`
}

// BestTrialInput fetches the best completed trial.
type BestTrialInput struct {
	StudyID string `json:"studyId" required:"true"`
}

type BestTrialOutput struct {
	Trial *Trial `json:"trial,omitempty"`
}

// MetricsReportInput fetches per-epoch metric observations for a trial; when
// TrialID is empty the study's best trial is used.
type MetricsReportInput struct {
	StudyID string `json:"studyId" required:"true"`
	TrialID string `json:"trialId,omitempty"`
}

// MetricsReportOutput carries metric name to ordered observations, the exact
// shape the threshold gate evaluates.
type MetricsReportOutput struct {
	Metrics map[string][]float64 `json:"metrics,omitempty"`
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{Name: "createStudy", Description: "Starts a hyperparameter search study.",
			Input: reflect.TypeOf(&CreateStudyInput{}), Output: reflect.TypeOf(&CreateStudyOutput{})},
		{Name: "status", Description: "Reports study progress.",
			Input: reflect.TypeOf(&StatusInput{}), Output: reflect.TypeOf(&StatusOutput{})},
		{Name: "bestTrial", Description: "Fetches the best completed trial.",
			Input: reflect.TypeOf(&BestTrialInput{}), Output: reflect.TypeOf(&BestTrialOutput{})},
		{Name: "metricsReport", Description: "Fetches per-epoch metric observations for gating.",
			Input: reflect.TypeOf(&MetricsReportInput{}), Output: reflect.TypeOf(&MetricsReportOutput{})},
	}
}

// Method returns the specified method
func (s *Service) Method(methodName string) (types.Executable, error) {
	switch strings.ToLower(methodName) {
	case "createstudy":
		return s.createStudy, nil
	case "status":
		return s.status, nil
	case "besttrial":
		return s.bestTrial, nil
	case "metricsreport":
		return s.metricsReport, nil
	default:
		return nil, types.NewMethodNotFoundError(methodName)
	}
}

func (s *Service) do(ctx context.Context, method, path string, in, out interface{}) error {
	if s.config.Endpoint == "" {
		return fmt.Errorf("tuner endpoint is not configured")
	}
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	request, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(s.config.Endpoint, "/")+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if s.config.Token != "" {
		request.Header.Set("Authorization", "Bearer "+s.config.Token)
	}
	response, err := s.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("tuner: status %d: %s", response.StatusCode, string(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (s *Service) createStudy(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*CreateStudyInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*CreateStudyOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	study := &Study{}
	if err := s.do(ctx, http.MethodPost, "/v1/studies", input, study); err != nil {
		return err
	}
	output.Study = study
	return nil
}

func (s *Service) status(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*StatusInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*StatusOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	status := &StudyStatus{}
	if err := s.do(ctx, http.MethodGet, "/v1/studies/"+input.StudyID+"/status", nil, status); err != nil {
		return err
	}
	output.Status = status
	return nil
}

func (s *Service) bestTrial(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*BestTrialInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*BestTrialOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	trial := &Trial{}
	if err := s.do(ctx, http.MethodGet, "/v1/studies/"+input.StudyID+"/bestTrial", nil, trial); err != nil {
		return err
	}
	output.Trial = trial
	return nil
}

func (s *Service) metricsReport(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*MetricsReportInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*MetricsReportOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	path := "/v1/studies/" + input.StudyID + "/metricsReport"
	if input.TrialID != "" {
		path += "?trial=" + input.TrialID
	}
	return s.do(ctx, http.MethodGet, path, nil, output)
}
