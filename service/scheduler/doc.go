// Package scheduler owns the execution queue and is the only service that
// mutates Run instances: it walks the execution stack, resolves when
// conditions, dependencies, template fan-out and goto transitions, and hands
// ready steps to the runner.
package scheduler
