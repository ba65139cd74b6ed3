// Package extension provides run-time registries for action services and
// the user-defined Go types their inputs and outputs use.
//
// The registries are normally populated through the public APIs of the root
// mlgate package, so most applications do not import this package directly.
package extension
