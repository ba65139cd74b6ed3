// Package runner drains the execution queue with a worker pool, invokes the
// executor for each scheduled step and applies the retry policy on failure.
package runner
