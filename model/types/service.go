package types

// Service is the contract every pipeline action service implements.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}

// Proxy decorates a service, e.g. to add tracing or policy checks.
type Proxy func(base Service) Service
