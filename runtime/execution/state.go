package execution

// StepState represents the current state of a step execution.
type StepState string

const (
	StepStatePending             StepState = "pending"
	StepStateScheduled           StepState = "scheduled"
	StepStateRunning             StepState = "running"
	StepStateWaitForDependencies StepState = "waitForDependencies"
	StepStateWaitForSubSteps     StepState = "waitForSubSteps"
	// StepStateWaitForApproval indicates the step needs explicit sign-off
	// before it can execute, e.g. a model deployment under an ask policy.
	StepStateWaitForApproval StepState = "waitForApproval"
	StepStateCompleted       StepState = "completed"
	StepStateFailed          StepState = "failed"
	StepStatePaused          StepState = "paused"
	StepStateSkipped         StepState = "skipped"
)

func (s StepState) IsWaitForApproval() bool {
	return s == StepStateWaitForApproval
}

// IsTerminal reports whether the state can no longer change.
func (s StepState) IsTerminal() bool {
	switch s {
	case StepStateCompleted, StepStateFailed, StepStateSkipped:
		return true
	}
	return false
}
