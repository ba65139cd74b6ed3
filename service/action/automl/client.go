package automl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viant/scy"
	"github.com/viant/scy/cred"
)

// Client is a thin REST client for the managed AutoML service. All calls go
// through the service's request/response contract; nothing model-related runs
// locally.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	tokenFn    func(ctx context.Context) (string, error)
}

// ClientOption customises the client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets a static bearer token.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithCredentialsURL loads an API key secret from an scy resource and uses it
// as the bearer token.
func WithCredentialsURL(credentialsURL, key string) ClientOption {
	return func(c *Client) {
		c.tokenFn = func(ctx context.Context) (string, error) {
			resource := scy.NewResource(&cred.SecretKey{}, credentialsURL, key)
			secret, err := scy.New().Load(ctx, resource)
			if err != nil {
				return "", fmt.Errorf("failed to load automl credentials from %s: %w", credentialsURL, err)
			}
			if secretKey, ok := secret.Target.(*cred.SecretKey); ok && secretKey.Secret != "" {
				return secretKey.Secret, nil
			}
			return strings.TrimSpace(secret.String()), nil
		}
	}
}

// NewClient creates an AutoML REST client.
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.token != "" {
		return c.token, nil
	}
	if c.tokenFn != nil {
		return c.tokenFn(ctx)
	}
	return "", nil
}

// do issues a JSON request against path and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &APIError{StatusCode: response.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// APIError is a non-2xx response from the AutoML service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("automl: status %d: %s", e.StatusCode, e.Body)
}
