package secret

import (
	"context"
	"fmt"

	"github.com/viant/scy"
	"github.com/viant/scy/cred"
	"github.com/viant/toolbox"
)

// RevealInput defines parameters for decrypting a credential document.
type RevealInput struct {
	SourceURL string `json:"sourceURL" required:"true" description:"URL of the encrypted document"`
	Target    string `json:"target,omitempty" description:"Credential type ('raw', 'basic', 'key', 'generic')"`
	Key       string `json:"key,omitempty" description:"Encryption key, e.g. 'blowfish://default'"`
}

// RevealOutput contains the decrypted credential.
type RevealOutput struct {
	PlainText string                 `json:"plainText,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Success   bool                   `json:"success"`
}

// Reveal decrypts a stored credential document. Typed credentials come back
// as a map, raw content as a string.
func (s *Service) Reveal(ctx context.Context, input *RevealInput, output *RevealOutput) error {
	var target interface{}
	if input.Target != "" && input.Target != "raw" {
		targetType, err := cred.TargetType(input.Target)
		if err != nil {
			return fmt.Errorf("invalid target type %q: %w", input.Target, err)
		}
		if targetType != nil {
			target = targetType
		}
	}
	resource := scy.NewResource(target, input.SourceURL, input.Key)
	secret, err := s.scyService.Load(ctx, resource)
	if err != nil {
		return fmt.Errorf("failed to load secret from %s: %w", input.SourceURL, err)
	}
	if !secret.IsPlain && secret.Target != nil {
		aMap := map[string]interface{}{}
		if err := toolbox.DefaultConverter.AssignConverted(&aMap, secret.Target); err != nil {
			return fmt.Errorf("failed to convert secret data: %w", err)
		}
		output.Data = toolbox.DeleteEmptyKeys(aMap)
	} else {
		output.PlainText = secret.String()
	}
	output.Success = true
	return nil
}
