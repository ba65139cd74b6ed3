package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRunRemove verifies that removing an execution from the stack keeps the
// remaining order intact and removes exactly one element regardless of its
// position.
func TestRunRemove(t *testing.T) {
	newExec := func(id string) *Execution { return &Execution{ID: id} }
	stack := []*Execution{newExec("a"), newExec("b"), newExec("c")}

	run := &Run{Stack: append([]*Execution(nil), stack...)}
	run.Remove(stack[1])

	assert.Equal(t, 2, len(run.Stack))
	assert.Equal(t, "a", run.Stack[0].ID)
	assert.Equal(t, "c", run.Stack[1].ID)

	run.Remove(run.Stack[1])
	assert.Equal(t, 1, len(run.Stack))
	assert.Equal(t, "a", run.Stack[0].ID)
}

func TestSession_SetGetAppend(t *testing.T) {
	session := NewSession("run-1")
	session.Set("phase", "training")

	value, ok := session.Get("phase")
	assert.True(t, ok)
	assert.Equal(t, "training", value)

	session.Append("rmse", 2100.0)
	session.Append("rmse", []float64{1900.0, 1800.0})
	value, _ = session.Get("rmse")
	assert.Equal(t, []interface{}{2100.0, 1900.0, 1800.0}, value)
}

func TestSession_TaskSession(t *testing.T) {
	session := NewSession("run-1")
	session.Set("dataset", "housing")
	session.Set("threshold", 2000.0)

	scoped := session.TaskSession(map[string]interface{}{"threshold": 1500.0})
	value, _ := scoped.Get("threshold")
	assert.Equal(t, 1500.0, value, "step input shadows run state")
	value, _ = scoped.Get("dataset")
	assert.Equal(t, "housing", value, "run state visible")
}

func TestSession_Listeners(t *testing.T) {
	session := NewSession("run-1")
	var events []string
	session.RegisterListeners(func(s *Session, key string, oldVal, newVal interface{}) {
		events = append(events, key)
	})
	session.Set("a", 1)
	session.Set("b", 2)
	assert.Equal(t, []string{"a", "b"}, events)

	var whens []bool
	session.RegisterWhenListeners(func(s *Session, expr string, result bool) {
		whens = append(whens, result)
	})
	session.FireWhen("$decision == 'deploy'", true)
	assert.Equal(t, []bool{true}, whens)
}
