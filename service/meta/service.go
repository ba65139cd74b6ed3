// Package meta loads configuration assets (pipeline definitions, connector
// settings) from any afs-supported storage, expanding ${env.NAME}
// references before decoding.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service loads and decodes YAML or JSON assets relative to an optional
// base URL.
type Service struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// New creates a meta service; baseURL may be empty to resolve absolute URLs
// only. Options are passed through to every storage call, which is how an
// embedded filesystem gets attached.
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	return &Service{fs: fs, baseURL: baseURL, options: options}
}

// Exists checks whether an asset is present.
func (s *Service) Exists(ctx context.Context, URL string) (bool, error) {
	return s.fs.Exists(ctx, s.normalizeURL(URL), s.options...)
}

// Load downloads the asset, expands ${env.NAME} references and decodes it
// into target based on the file extension (JSON for .json, YAML otherwise).
func (s *Service) Load(ctx context.Context, URL string, target interface{}) error {
	located := s.normalizeURL(URL)
	data, err := s.fs.DownloadWithURL(ctx, located, s.options...)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", located, err)
	}
	expanded := expandEnvExpr(string(data))
	if strings.HasSuffix(located, ".json") {
		if err := json.Unmarshal([]byte(expanded), target); err != nil {
			return fmt.Errorf("failed to decode JSON %s: %w", located, err)
		}
		return nil
	}
	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to decode YAML %s: %w", located, err)
	}
	return nil
}

func (s *Service) normalizeURL(URL string) string {
	if s.baseURL == "" || !url.IsRelative(URL) {
		return URL
	}
	return url.Join(s.baseURL, URL)
}
