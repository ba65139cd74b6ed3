package automl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/datasets", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var input CreateDatasetInput
		_ = json.NewDecoder(r.Body).Decode(&input)
		_ = json.NewEncoder(w).Encode(&Dataset{Name: "datasets/d1", DisplayName: input.DisplayName})
	})
	mux.HandleFunc("POST /v1/models:train", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&Operation{Name: "op-train-1"})
	})
	mux.HandleFunc("GET /v1/operations/op-train-1", func(w http.ResponseWriter, r *http.Request) {
		operation := &Operation{Name: "op-train-1"}
		if polls.Add(1) >= 3 {
			operation.Done = true
			operation.Response = map[string]interface{}{"modelId": "m1"}
		}
		_ = json.NewEncoder(w).Encode(operation)
	})
	mux.HandleFunc("POST /v1/models/m1:predict", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&PredictOutput{Payload: []*PredictionPayload{
			{Value: 1425.5, FeatureImportance: map[string]float64{"sqft": 0.62}},
		}})
	})
	mux.HandleFunc("GET /v1/models/m1/featureImportance", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&FeatureImportanceOutput{Importance: map[string]float64{"sqft": 0.62, "beds": 0.21}})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &polls
}

func TestService_CreateDataset(t *testing.T) {
	server, _ := newTestServer(t)
	srv := New(Config{Endpoint: server.URL})
	method, err := srv.Method("createDataset")
	require.NoError(t, err)

	output := &CreateDatasetOutput{}
	err = method(context.Background(), &CreateDatasetInput{
		Connection:  Connection{Token: "test-token"},
		DisplayName: "housing",
	}, output)
	require.NoError(t, err)
	assert.Equal(t, "datasets/d1", output.Dataset.Name)
	assert.Equal(t, "housing", output.Dataset.DisplayName)
}

func TestService_CreateDatasetUnauthorized(t *testing.T) {
	server, _ := newTestServer(t)
	srv := New(Config{Endpoint: server.URL})
	method, _ := srv.Method("createDataset")
	err := method(context.Background(), &CreateDatasetInput{DisplayName: "housing"}, &CreateDatasetOutput{})
	require.Error(t, err)
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestService_TrainAndWait(t *testing.T) {
	server, polls := newTestServer(t)
	srv := New(Config{Endpoint: server.URL})

	train, _ := srv.Method("trainModel")
	trainOut := &TrainModelOutput{}
	err := train(context.Background(), &TrainModelInput{
		Connection:  Connection{Token: "test-token"},
		DatasetID:   "d1",
		DisplayName: "housing-model",
	}, trainOut)
	require.NoError(t, err)
	require.Equal(t, "op-train-1", trainOut.Operation.Name)

	wait, _ := srv.Method("waitOperation")
	waitOut := &WaitOperationOutput{}
	err = wait(context.Background(), &WaitOperationInput{
		Connection:     Connection{Token: "test-token"},
		Name:           "op-train-1",
		TimeoutSec:     5,
		PollIntervalMs: 5,
	}, waitOut)
	require.NoError(t, err)
	assert.True(t, waitOut.Operation.Done)
	assert.EqualValues(t, "m1", waitOut.Operation.Response["modelId"])
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestService_PredictWithImportance(t *testing.T) {
	server, _ := newTestServer(t)
	srv := New(Config{Endpoint: server.URL})

	predict, _ := srv.Method("predict")
	output := &PredictOutput{}
	err := predict(context.Background(), &PredictInput{
		Connection:        Connection{Token: "test-token"},
		ModelID:           "m1",
		Row:               map[string]interface{}{"sqft": 1200},
		FeatureImportance: true,
	}, output)
	require.NoError(t, err)
	require.Len(t, output.Payload, 1)
	assert.Equal(t, 1425.5, output.Payload[0].Value)
	assert.Equal(t, 0.62, output.Payload[0].FeatureImportance["sqft"])

	importance, _ := srv.Method("featureImportance")
	globalOut := &FeatureImportanceOutput{}
	err = importance(context.Background(), &FeatureImportanceInput{
		Connection: Connection{Token: "test-token"},
		ModelID:    "m1",
	}, globalOut)
	require.NoError(t, err)
	assert.Equal(t, 0.21, globalOut.Importance["beds"])
}

func TestService_MissingEndpoint(t *testing.T) {
	srv := New(Config{})
	method, _ := srv.Method("getOperation")
	err := method(context.Background(), &GetOperationInput{Name: "op-1"}, &GetOperationOutput{})
	assert.Error(t, err)
}
