// Package automl talks to the managed AutoML Tables-style service that trains,
// deploys and serves the models this engine gates. The service is an external
// collaborator: only its REST contract is modeled here.
package automl

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/mlgate/mlgate/model/types"
)

const name = "automl"

// Config holds service defaults applied when an action input leaves its
// connection fields empty.
type Config struct {
	Endpoint       string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	CredentialsURL string `json:"credentialsURL,omitempty" yaml:"credentialsURL,omitempty"`
}

// Service exposes the AutoML REST contract as pipeline actions.
type Service struct {
	config  Config
	mux     sync.Mutex
	clients map[string]*Client
}

// New creates an automl action service.
func New(config Config) *Service {
	return &Service{config: config, clients: make(map[string]*Client)}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{Name: "createDataset", Description: "Registers a tabular dataset.",
			Input: reflect.TypeOf(&CreateDatasetInput{}), Output: reflect.TypeOf(&CreateDatasetOutput{})},
		{Name: "importData", Description: "Imports CSV documents into a dataset.",
			Input: reflect.TypeOf(&ImportDataInput{}), Output: reflect.TypeOf(&ImportDataOutput{})},
		{Name: "updateColumnSpec", Description: "Updates a dataset column spec, including the training target.",
			Input: reflect.TypeOf(&UpdateColumnSpecInput{}), Output: reflect.TypeOf(&UpdateColumnSpecOutput{})},
		{Name: "trainModel", Description: "Starts a training job and returns its long-running operation.",
			Input: reflect.TypeOf(&TrainModelInput{}), Output: reflect.TypeOf(&TrainModelOutput{})},
		{Name: "deployModel", Description: "Deploys a trained model for online predictions.",
			Input: reflect.TypeOf(&DeployModelInput{}), Output: reflect.TypeOf(&DeployModelOutput{})},
		{Name: "undeployModel", Description: "Takes a deployed model offline.",
			Input: reflect.TypeOf(&UndeployModelInput{}), Output: reflect.TypeOf(&UndeployModelOutput{})},
		{Name: "predict", Description: "Requests an online prediction, optionally with local feature importance.",
			Input: reflect.TypeOf(&PredictInput{}), Output: reflect.TypeOf(&PredictOutput{})},
		{Name: "batchPredict", Description: "Runs batch predictions over stored inputs.",
			Input: reflect.TypeOf(&BatchPredictInput{}), Output: reflect.TypeOf(&BatchPredictOutput{})},
		{Name: "featureImportance", Description: "Fetches global feature importance for a model.",
			Input: reflect.TypeOf(&FeatureImportanceInput{}), Output: reflect.TypeOf(&FeatureImportanceOutput{})},
		{Name: "getOperation", Description: "Polls a long-running operation once.",
			Input: reflect.TypeOf(&GetOperationInput{}), Output: reflect.TypeOf(&GetOperationOutput{})},
		{Name: "waitOperation", Description: "Blocks until a long-running operation completes.",
			Input: reflect.TypeOf(&WaitOperationInput{}), Output: reflect.TypeOf(&WaitOperationOutput{})},
	}
}

// Method returns the specified method
func (s *Service) Method(methodName string) (types.Executable, error) {
	switch strings.ToLower(methodName) {
	case "createdataset":
		return s.createDataset, nil
	case "importdata":
		return s.importData, nil
	case "updatecolumnspec":
		return s.updateColumnSpec, nil
	case "trainmodel":
		return s.trainModel, nil
	case "deploymodel":
		return s.deployModel, nil
	case "undeploymodel":
		return s.undeployModel, nil
	case "predict":
		return s.predict, nil
	case "batchpredict":
		return s.batchPredict, nil
	case "featureimportance":
		return s.featureImportance, nil
	case "getoperation":
		return s.getOperation, nil
	case "waitoperation":
		return s.waitOperation, nil
	default:
		return nil, types.NewMethodNotFoundError(methodName)
	}
}

// clientFor returns a client for the connection, falling back to service
// defaults; clients are cached per endpoint.
func (s *Service) clientFor(connection Connection) (*Client, error) {
	endpoint := connection.Endpoint
	if endpoint == "" {
		endpoint = s.config.Endpoint
	}
	if endpoint == "" {
		return nil, fmt.Errorf("automl endpoint is not configured")
	}
	credentialsURL := connection.CredentialsURL
	if credentialsURL == "" {
		credentialsURL = s.config.CredentialsURL
	}
	cacheKey := endpoint + "|" + credentialsURL + "|" + connection.Token

	s.mux.Lock()
	defer s.mux.Unlock()
	if client, ok := s.clients[cacheKey]; ok {
		return client, nil
	}
	var options []ClientOption
	if connection.Token != "" {
		options = append(options, WithToken(connection.Token))
	} else if credentialsURL != "" {
		options = append(options, WithCredentialsURL(credentialsURL, ""))
	}
	client := NewClient(endpoint, options...)
	s.clients[cacheKey] = client
	return client, nil
}

func (s *Service) createDataset(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*CreateDatasetInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*CreateDatasetOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	dataset := &Dataset{}
	if err := client.do(ctx, http.MethodPost, "/v1/datasets", input, dataset); err != nil {
		return err
	}
	output.Dataset = dataset
	return nil
}

func (s *Service) importData(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*ImportDataInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*ImportDataOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	operation := &Operation{}
	path := fmt.Sprintf("/v1/datasets/%s:import", input.DatasetID)
	if err := client.do(ctx, http.MethodPost, path, input, operation); err != nil {
		return err
	}
	output.Operation = operation
	return nil
}

func (s *Service) updateColumnSpec(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*UpdateColumnSpecInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*UpdateColumnSpecOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	column := &ColumnSpec{}
	path := fmt.Sprintf("/v1/datasets/%s/columns/%s", input.DatasetID, input.Column)
	if err := client.do(ctx, http.MethodPatch, path, input, column); err != nil {
		return err
	}
	output.Column = column
	return nil
}

func (s *Service) trainModel(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*TrainModelInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*TrainModelOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	operation := &Operation{}
	if err := client.do(ctx, http.MethodPost, "/v1/models:train", input, operation); err != nil {
		return err
	}
	output.Operation = operation
	return nil
}

func (s *Service) deployModel(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*DeployModelInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*DeployModelOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	operation := &Operation{}
	path := fmt.Sprintf("/v1/models/%s:deploy", input.ModelID)
	if err := client.do(ctx, http.MethodPost, path, input, operation); err != nil {
		return err
	}
	output.Operation = operation
	return nil
}

func (s *Service) undeployModel(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*UndeployModelInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*UndeployModelOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	operation := &Operation{}
	path := fmt.Sprintf("/v1/models/%s:undeploy", input.ModelID)
	if err := client.do(ctx, http.MethodPost, path, input, operation); err != nil {
		return err
	}
	output.Operation = operation
	return nil
}

func (s *Service) predict(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*PredictInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*PredictOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v1/models/%s:predict", input.ModelID)
	if err := client.do(ctx, http.MethodPost, path, input, output); err != nil {
		return err
	}
	return nil
}

func (s *Service) batchPredict(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*BatchPredictInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*BatchPredictOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	operation := &Operation{}
	path := fmt.Sprintf("/v1/models/%s:batchPredict", input.ModelID)
	if err := client.do(ctx, http.MethodPost, path, input, operation); err != nil {
		return err
	}
	output.Operation = operation
	return nil
}

func (s *Service) featureImportance(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*FeatureImportanceInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*FeatureImportanceOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v1/models/%s/featureImportance", input.ModelID)
	return client.do(ctx, http.MethodGet, path, nil, output)
}

func (s *Service) getOperation(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*GetOperationInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*GetOperationOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	operation := &Operation{}
	if err := client.do(ctx, http.MethodGet, "/v1/operations/"+input.Name, nil, operation); err != nil {
		return err
	}
	output.Operation = operation
	return nil
}

func (s *Service) waitOperation(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*WaitOperationInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*WaitOperationOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	client, err := s.clientFor(input.Connection)
	if err != nil {
		return err
	}
	timeout := time.Duration(input.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = time.Hour
	}
	interval := time.Duration(input.PollIntervalMs) * time.Millisecond
	if interval == 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for {
		operation := &Operation{}
		if err := client.do(ctx, http.MethodGet, "/v1/operations/"+input.Name, nil, operation); err != nil {
			return err
		}
		if operation.Done {
			if operation.Error != nil {
				output.Operation = operation
				return fmt.Errorf("operation %s failed: %s", input.Name, operation.Error.Message)
			}
			output.Operation = operation
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("operation %s did not complete within %s", input.Name, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
