package automl

// Dataset is a tabular dataset registered with the AutoML service.
type Dataset struct {
	Name         string `json:"name,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	ExampleCount int    `json:"exampleCount,omitempty"`
	CreateTime   string `json:"createTime,omitempty"`
}

// ColumnSpec describes one column of a tabular dataset.
type ColumnSpec struct {
	Name     string `json:"name,omitempty"`
	DataType string `json:"dataType,omitempty"`
	Nullable bool   `json:"nullable,omitempty"`
	Target   bool   `json:"target,omitempty"`
}

// Model is a trained AutoML model.
type Model struct {
	Name            string `json:"name,omitempty"`
	DisplayName     string `json:"displayName,omitempty"`
	DatasetID       string `json:"datasetId,omitempty"`
	DeploymentState string `json:"deploymentState,omitempty"`
	CreateTime      string `json:"createTime,omitempty"`
}

// OperationError carries a failed operation's status.
type OperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Operation is a long-running server-side operation. Callers poll it via
// getOperation or block with waitOperation.
type Operation struct {
	Name     string                 `json:"name,omitempty"`
	Done     bool                   `json:"done,omitempty"`
	Error    *OperationError        `json:"error,omitempty"`
	Response map[string]interface{} `json:"response,omitempty"`
}

// PredictionPayload is a single prediction result row.
type PredictionPayload struct {
	Value  interface{}        `json:"value,omitempty"`
	Scores map[string]float64 `json:"scores,omitempty"`
	// Local feature importance, populated only when requested.
	FeatureImportance map[string]float64 `json:"featureImportance,omitempty"`
}
