package automl

// Connection selects the AutoML endpoint and its credentials; when empty the
// service defaults apply.
type Connection struct {
	Endpoint       string `json:"endpoint,omitempty" description:"AutoML service base URL"`
	CredentialsURL string `json:"credentialsURL,omitempty" description:"scy resource with the API credentials"`
	Token          string `json:"token,omitempty" description:"static bearer token"`
}

// CreateDatasetInput registers a new tabular dataset.
type CreateDatasetInput struct {
	Connection
	DisplayName string `json:"displayName" required:"true"`
}

type CreateDatasetOutput struct {
	Dataset *Dataset `json:"dataset,omitempty"`
}

// ImportDataInput loads rows into a dataset from storage URIs.
type ImportDataInput struct {
	Connection
	DatasetID  string   `json:"datasetId" required:"true"`
	SourceURIs []string `json:"sourceURIs" required:"true" description:"storage URIs with CSV content"`
}

type ImportDataOutput struct {
	Operation *Operation `json:"operation,omitempty"`
}

// UpdateColumnSpecInput adjusts a column's type, nullability, or marks it as
// the training target.
type UpdateColumnSpecInput struct {
	Connection
	DatasetID string `json:"datasetId" required:"true"`
	Column    string `json:"column" required:"true"`
	DataType  string `json:"dataType,omitempty"`
	Nullable  *bool  `json:"nullable,omitempty"`
	Target    bool   `json:"target,omitempty" description:"mark this column as the training target"`
}

type UpdateColumnSpecOutput struct {
	Column *ColumnSpec `json:"column,omitempty"`
}

// TrainModelInput starts a training job; the result arrives via the returned
// long-running operation.
type TrainModelInput struct {
	Connection
	DatasetID        string `json:"datasetId" required:"true"`
	DisplayName      string `json:"displayName" required:"true"`
	TrainBudgetHours int    `json:"trainBudgetHours,omitempty"`
	OptimizeFor      string `json:"optimizeFor,omitempty" description:"objective metric, e.g. MINIMIZE_RMSE"`
}

type TrainModelOutput struct {
	Operation *Operation `json:"operation,omitempty"`
}

// DeployModelInput brings a trained model online for predictions.
type DeployModelInput struct {
	Connection
	ModelID string `json:"modelId" required:"true"`
}

type DeployModelOutput struct {
	Operation *Operation `json:"operation,omitempty"`
}

// UndeployModelInput takes a deployed model offline.
type UndeployModelInput struct {
	Connection
	ModelID string `json:"modelId" required:"true"`
}

type UndeployModelOutput struct {
	Operation *Operation `json:"operation,omitempty"`
}

// PredictInput requests an online prediction for a single row.
type PredictInput struct {
	Connection
	ModelID string                 `json:"modelId" required:"true"`
	Row     map[string]interface{} `json:"row" required:"true"`
	// FeatureImportance also requests local per-feature attribution.
	FeatureImportance bool `json:"featureImportance,omitempty"`
}

type PredictOutput struct {
	Payload []*PredictionPayload `json:"payload,omitempty"`
}

// BatchPredictInput runs predictions over stored input documents.
type BatchPredictInput struct {
	Connection
	ModelID    string   `json:"modelId" required:"true"`
	InputURIs  []string `json:"inputURIs" required:"true"`
	OutputURI  string   `json:"outputURI" required:"true"`
	BatchLimit int      `json:"batchLimit,omitempty"`
}

type BatchPredictOutput struct {
	Operation *Operation `json:"operation,omitempty"`
}

// FeatureImportanceInput fetches global feature importance for a model.
type FeatureImportanceInput struct {
	Connection
	ModelID string `json:"modelId" required:"true"`
}

type FeatureImportanceOutput struct {
	Importance map[string]float64 `json:"importance,omitempty"`
}

// GetOperationInput polls a long-running operation once.
type GetOperationInput struct {
	Connection
	Name string `json:"name" required:"true"`
}

type GetOperationOutput struct {
	Operation *Operation `json:"operation,omitempty"`
}

// WaitOperationInput blocks until the operation completes or the timeout
// elapses.
type WaitOperationInput struct {
	Connection
	Name           string `json:"name" required:"true"`
	TimeoutSec     int    `json:"timeoutSec,omitempty" description:"max wait (default 3600)"`
	PollIntervalMs int    `json:"pollIntervalMs,omitempty" description:"poll interval (default 5000)"`
}

type WaitOperationOutput struct {
	Operation *Operation `json:"operation,omitempty"`
}
