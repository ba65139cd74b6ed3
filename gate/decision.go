package gate

// Outcome is the gate verdict.
type Outcome string

const (
	// OutcomeDeploy indicates every thresholded metric cleared its bar.
	OutcomeDeploy Outcome = "DEPLOY"
	// OutcomeHold indicates at least one metric violated its threshold.
	OutcomeHold Outcome = "HOLD"
)

// Boundary tokens consumed by orchestration-DSL conditional expressions. The
// stringly-typed form never drives internal logic; it is produced only at the
// serialization boundary.
const (
	TokenDeploy = "deploy"
	TokenHold   = "False"
)

// Decision is the evaluator output. ViolatedMetric, ViolatedValue and
// Threshold are populated only on HOLD, with the first violating metric in
// spec order.
type Decision struct {
	Outcome        Outcome  `json:"decision" yaml:"decision"`
	ViolatedMetric *string  `json:"violated_metric" yaml:"violated_metric"`
	ViolatedValue  *float64 `json:"violated_value" yaml:"violated_value"`
	Threshold      *float64 `json:"threshold" yaml:"threshold"`
}

// Deploy returns true when the decision clears deployment.
func (d *Decision) Deploy() bool {
	return d != nil && d.Outcome == OutcomeDeploy
}

// Token serialises the decision into the branch token expected by an external
// conditional-expression syntax.
func (d *Decision) Token() string {
	if d.Deploy() {
		return TokenDeploy
	}
	return TokenHold
}

func deployDecision() *Decision {
	return &Decision{Outcome: OutcomeDeploy}
}

func holdDecision(metric string, value, threshold float64) *Decision {
	return &Decision{
		Outcome:        OutcomeHold,
		ViolatedMetric: &metric,
		ViolatedValue:  &value,
		Threshold:      &threshold,
	}
}
