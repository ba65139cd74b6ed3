package types

import "fmt"

// NewMethodNotFoundError reports an unknown action method.
func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v not found", name)
}

// NewInvalidInputError reports an unexpected input type.
func NewInvalidInputError(in interface{}) error {
	return fmt.Errorf("invalid input %T", in)
}

// NewInvalidOutputError reports an unexpected output type.
func NewInvalidOutputError(out interface{}) error {
	return fmt.Errorf("invalid output %T", out)
}
