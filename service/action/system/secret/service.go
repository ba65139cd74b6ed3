// Package secret manages the encrypted credentials the pipeline actions use to
// reach external model services, backed by viant/scy.
package secret

import (
	"context"
	"reflect"
	"strings"

	"github.com/viant/scy"

	"github.com/mlgate/mlgate/model/types"
)

const Name = "system/secret"

// Service provides secret management operations
type Service struct {
	scyService *scy.Service
}

// New creates a secret service
func New() *Service {
	return &Service{scyService: scy.New()}
}

// Name returns the service Name
func (s *Service) Name() string {
	return Name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "secure",
			Description: "Encrypts a credential document and stores it at the destination URL.",
			Input:       reflect.TypeOf(&SecureInput{}),
			Output:      reflect.TypeOf(&SecureOutput{}),
		},
		{
			Name:        "reveal",
			Description: "Decrypts a stored credential document.",
			Input:       reflect.TypeOf(&RevealInput{}),
			Output:      reflect.TypeOf(&RevealOutput{}),
		},
		{
			Name:        "signJWT",
			Description: "Signs a service-account JWT for authenticating against model service APIs.",
			Input:       reflect.TypeOf(&SignJWTInput{}),
			Output:      reflect.TypeOf(&SignJWTOutput{}),
		},
		{
			Name:        "verifyJWT",
			Description: "Verifies a JWT and returns its claims.",
			Input:       reflect.TypeOf(&VerifyJWTInput{}),
			Output:      reflect.TypeOf(&VerifyJWTOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "secure":
		return s.secure, nil
	case "reveal":
		return s.reveal, nil
	case "signjwt":
		return s.signJWT, nil
	case "verifyjwt":
		return s.verifyJWT, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) secure(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*SecureInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*SecureOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Secure(ctx, input, output)
}

func (s *Service) reveal(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*RevealInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*RevealOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Reveal(ctx, input, output)
}

func (s *Service) signJWT(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*SignJWTInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*SignJWTOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.SignJWT(ctx, input, output)
}

func (s *Service) verifyJWT(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*VerifyJWTInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*VerifyJWTOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.VerifyJWT(ctx, input, output)
}
