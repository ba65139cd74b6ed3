package tuner

// Study is a hyperparameter search over a model architecture.
type Study struct {
	ID         string                 `json:"id,omitempty"`
	Objective  string                 `json:"objective,omitempty"`
	Direction  string                 `json:"direction,omitempty"`
	MaxTrials  int                    `json:"maxTrials,omitempty"`
	Space      map[string]interface{} `json:"space,omitempty"`
	State      string                 `json:"state,omitempty"`
	CreateTime string                 `json:"createTime,omitempty"`
}

// Trial is one hyperparameter combination evaluated by the study.
type Trial struct {
	ID              string                 `json:"id,omitempty"`
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`
	Score           float64                `json:"score,omitempty"`
	State           string                 `json:"state,omitempty"`
}

// StudyStatus aggregates study progress.
type StudyStatus struct {
	StudyID         string `json:"studyId,omitempty"`
	State           string `json:"state,omitempty"`
	CompletedTrials int    `json:"completedTrials,omitempty"`
	PendingTrials   int    `json:"pendingTrials,omitempty"`
	FailedTrials    int    `json:"failedTrials,omitempty"`
}
