package executor

import "errors"

var (
	ErrStepNotFound   = errors.New("step not found in pipeline")
	ErrMethodNotFound = errors.New("method not found in service")
)
