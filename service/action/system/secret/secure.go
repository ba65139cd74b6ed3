package secret

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/viant/afs"
	"github.com/viant/scy"
	"github.com/viant/scy/cred"
)

// SecureInput defines parameters for encrypting a credential document.
type SecureInput struct {
	SourceURL string                 `json:"sourceURL,omitempty" description:"URL to read the plain document from"`
	Content   string                 `json:"content,omitempty" description:"Raw content to encrypt"`
	Data      map[string]interface{} `json:"data,omitempty" description:"Structured data to encrypt"`
	DestURL   string                 `json:"destURL" required:"true" description:"Destination URL for the encrypted document"`
	Target    string                 `json:"target,omitempty" description:"Credential type ('raw', 'basic', 'key', 'generic')"`
	Key       string                 `json:"key,omitempty" description:"Encryption key, e.g. 'blowfish://default'"`
}

// SecureOutput reports the encryption result.
type SecureOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Secure encrypts and stores a credential document.
func (s *Service) Secure(ctx context.Context, input *SecureInput, output *SecureOutput) error {
	var data []byte
	var err error
	switch {
	case input.Content != "":
		data = []byte(input.Content)
	case len(input.Data) > 0:
		if data, err = json.Marshal(input.Data); err != nil {
			return fmt.Errorf("failed to marshal data: %w", err)
		}
	case input.SourceURL != "":
		fs := afs.New()
		if data, err = fs.DownloadWithURL(ctx, input.SourceURL); err != nil {
			return fmt.Errorf("failed to download from %s: %w", input.SourceURL, err)
		}
	default:
		return fmt.Errorf("no content provided: specify sourceURL, content, or data")
	}

	var targetType reflect.Type
	if input.Target != "" && input.Target != "raw" {
		if targetType, err = cred.TargetType(input.Target); err != nil {
			return fmt.Errorf("invalid target type %q: %w", input.Target, err)
		}
	}

	var secret *scy.Secret
	if targetType != nil {
		instance := reflect.New(targetType).Interface()
		if err := json.Unmarshal(data, instance); err != nil {
			return fmt.Errorf("failed to unmarshal data to target type %s: %w", input.Target, err)
		}
		secret = scy.NewSecret(instance, scy.NewResource(targetType, input.DestURL, input.Key))
	} else {
		secret = scy.NewSecret(string(data), scy.NewResource(nil, input.DestURL, input.Key))
	}
	if err := s.scyService.Store(ctx, secret); err != nil {
		return fmt.Errorf("failed to store encrypted secret: %w", err)
	}
	output.Success = true
	output.Message = fmt.Sprintf("secret stored at %s", input.DestURL)
	return nil
}
