package tuner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/studies", func(w http.ResponseWriter, r *http.Request) {
		var input CreateStudyInput
		_ = json.NewDecoder(r.Body).Decode(&input)
		_ = json.NewEncoder(w).Encode(&Study{
			ID: "study-1", Objective: input.Objective, Direction: input.Direction,
			MaxTrials: input.MaxTrials, State: "RUNNING",
		})
	})
	mux.HandleFunc("GET /v1/studies/study-1/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&StudyStatus{StudyID: "study-1", State: "COMPLETED", CompletedTrials: 8})
	})
	mux.HandleFunc("GET /v1/studies/study-1/bestTrial", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&Trial{
			ID: "trial-3", Score: 0.041,
			Hyperparameters: map[string]interface{}{"units": 128.0, "lr": 0.001},
			State:           "COMPLETED",
		})
	})
	mux.HandleFunc("GET /v1/studies/study-1/metricsReport", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&MetricsReportOutput{Metrics: map[string][]float64{
			"val_loss": {0.12, 0.07, 0.041},
			"val_acc":  {0.88, 0.93, 0.95},
		}})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestService_StudyLifecycle(t *testing.T) {
	server := newTestServer(t)
	srv := New(Config{Endpoint: server.URL})

	create, err := srv.Method("createStudy")
	require.NoError(t, err)
	createOut := &CreateStudyOutput{}
	err = create(context.Background(), &CreateStudyInput{
		Objective: "val_loss",
		Direction: "min",
		MaxTrials: 10,
		Space:     map[string]interface{}{"units": []int{64, 128, 256}},
	}, createOut)
	require.NoError(t, err)
	assert.Equal(t, "study-1", createOut.Study.ID)
	assert.Equal(t, "val_loss", createOut.Study.Objective)

	status, _ := srv.Method("status")
	statusOut := &StatusOutput{}
	require.NoError(t, status(context.Background(), &StatusInput{StudyID: "study-1"}, statusOut))
	assert.Equal(t, "COMPLETED", statusOut.Status.State)
	assert.Equal(t, 8, statusOut.Status.CompletedTrials)

	best, _ := srv.Method("bestTrial")
	bestOut := &BestTrialOutput{}
	require.NoError(t, best(context.Background(), &BestTrialInput{StudyID: "study-1"}, bestOut))
	assert.Equal(t, "trial-3", bestOut.Trial.ID)
	assert.Equal(t, 0.041, bestOut.Trial.Score)
}

func TestService_MetricsReport(t *testing.T) {
	server := newTestServer(t)
	srv := New(Config{Endpoint: server.URL})

	method, err := srv.Method("metricsReport")
	require.NoError(t, err)
	output := &MetricsReportOutput{}
	err = method(context.Background(), &MetricsReportInput{StudyID: "study-1"}, output)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.12, 0.07, 0.041}, output.Metrics["val_loss"])
}

func TestService_NoEndpoint(t *testing.T) {
	srv := New(Config{})
	method, _ := srv.Method("status")
	err := method(context.Background(), &StatusInput{StudyID: "study-1"}, &StatusOutput{})
	assert.Error(t, err)
}
