package types

import (
	"context"
	"reflect"
)

// Signature describes an action method and its reflect-typed input/output.
type Signature struct {
	Name        string
	Description string
	Internal    bool
	Input       reflect.Type
	Output      reflect.Type
}

// Signatures is a collection of method signatures.
type Signatures []Signature

// Lookup returns the signature with the given name or nil.
func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		if s[i].Name == name {
			return &s[i]
		}
	}
	return nil
}

// Executable invokes an action method with a typed input and output.
type Executable func(ctx context.Context, input, output interface{}) error
