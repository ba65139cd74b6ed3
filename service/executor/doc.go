// Package executor bridges executions scheduled by the engine with registered
// action services: it expands and type-converts inputs, invokes the method
// and records the typed output.
package executor
