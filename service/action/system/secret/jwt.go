package secret

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/scy"
	sjwt "github.com/viant/scy/auth/jwt"
	"github.com/viant/scy/auth/jwt/signer"
	"github.com/viant/scy/auth/jwt/verifier"
)

// SignJWTInput defines parameters for signing a service-account token.
type SignJWTInput struct {
	Claims         map[string]interface{} `json:"claims,omitempty" description:"Claims to include in the JWT"`
	ClaimsURL      string                 `json:"claimsURL,omitempty" description:"URL to read claims JSON from"`
	RSAKeyURL      string                 `json:"rsaKeyURL,omitempty" description:"URL of RSA key to sign with"`
	HMACKeyURL     string                 `json:"hmacKeyURL,omitempty" description:"URL of HMAC key to sign with"`
	KeySecret      string                 `json:"keySecret,omitempty" description:"Secret to decrypt the key"`
	ExpiryDuration int                    `json:"expiryDuration,omitempty" description:"Token expiry in seconds (default 3600)"`
}

// SignJWTOutput contains the signed token.
type SignJWTOutput struct {
	Token   string `json:"token"`
	Success bool   `json:"success"`
}

// SignJWT creates a signed service-account token.
func (s *Service) SignJWT(ctx context.Context, input *SignJWTInput, output *SignJWTOutput) error {
	if input.RSAKeyURL == "" && input.HMACKeyURL == "" {
		return fmt.Errorf("either rsaKeyURL or hmacKeyURL must be provided")
	}
	config := &signer.Config{}
	if input.RSAKeyURL != "" {
		config.RSA = &scy.Resource{URL: input.RSAKeyURL, Key: input.KeySecret}
	} else {
		config.HMAC = &scy.Resource{URL: input.HMACKeyURL, Key: input.KeySecret}
	}
	jwtSigner := signer.New(config)
	if err := jwtSigner.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize JWT signer: %w", err)
	}

	claims := input.Claims
	if len(claims) == 0 {
		if input.ClaimsURL == "" {
			return fmt.Errorf("no claims provided: specify claims or claimsURL")
		}
		data, err := afs.New().DownloadWithURL(ctx, input.ClaimsURL)
		if err != nil {
			return fmt.Errorf("failed to download claims from %s: %w", input.ClaimsURL, err)
		}
		if err = json.Unmarshal(data, &claims); err != nil {
			return fmt.Errorf("invalid JSON claims: %w", err)
		}
	}

	expiry := time.Duration(input.ExpiryDuration) * time.Second
	if expiry == 0 {
		expiry = time.Hour
	}
	token, err := jwtSigner.Create(expiry, claims)
	if err != nil {
		return fmt.Errorf("failed to create JWT token: %w", err)
	}
	output.Token = token
	output.Success = true
	return nil
}

// VerifyJWTInput defines parameters for token verification.
type VerifyJWTInput struct {
	Token      string `json:"token,omitempty" description:"JWT token to verify"`
	TokenURL   string `json:"tokenURL,omitempty" description:"URL to read the token from"`
	RSAKeyURL  string `json:"rsaKeyURL,omitempty" description:"URL of RSA public key"`
	HMACKeyURL string `json:"hmacKeyURL,omitempty" description:"URL of HMAC key"`
	KeySecret  string `json:"keySecret,omitempty" description:"Secret to decrypt the key"`
}

// VerifyJWTOutput contains verification results; an invalid token is reported
// via Valid, not as an error.
type VerifyJWTOutput struct {
	Valid  bool         `json:"valid"`
	Claims *sjwt.Claims `json:"claims,omitempty"`
}

// VerifyJWT verifies a token and returns its claims.
func (s *Service) VerifyJWT(ctx context.Context, input *VerifyJWTInput, output *VerifyJWTOutput) error {
	if input.RSAKeyURL == "" && input.HMACKeyURL == "" {
		return fmt.Errorf("either rsaKeyURL or hmacKeyURL must be provided")
	}
	config := &verifier.Config{}
	if input.RSAKeyURL != "" {
		config.RSA = []*scy.Resource{{URL: input.RSAKeyURL, Key: input.KeySecret}}
	}
	if input.HMACKeyURL != "" {
		config.HMAC = &scy.Resource{URL: input.HMACKeyURL, Key: input.KeySecret}
	}
	jwtVerifier := verifier.New(config)
	if err := jwtVerifier.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize JWT verifier: %w", err)
	}

	tokenString := input.Token
	if tokenString == "" {
		if input.TokenURL == "" {
			return fmt.Errorf("no token provided: specify token or tokenURL")
		}
		data, err := afs.New().DownloadWithURL(ctx, input.TokenURL)
		if err != nil {
			return fmt.Errorf("failed to download token from %s: %w", input.TokenURL, err)
		}
		tokenString = string(data)
	}

	claims, err := jwtVerifier.VerifyClaims(ctx, tokenString)
	if err != nil {
		output.Valid = false
		return nil
	}
	output.Valid = true
	output.Claims = claims
	return nil
}
