// Package idgen centralises unique identifier generation so tests can stub it.
package idgen

import "github.com/google/uuid"

// NewFunc produces a globally unique identifier.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new identifier using NewFunc.
func New() string { return NewFunc() }
