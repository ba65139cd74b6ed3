package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs/url"
)

// DownloadInput defines parameters for downloading assets
type DownloadInput struct {
	Assets      []string `json:"assets" required:"true" description:"URLs of assets to download"`
	IncludeData bool     `json:"includeData,omitempty" description:"Include asset data in the response"`
	Dest        string   `json:"dest,omitempty" description:"Destination URL to copy assets to"`
}

// DownloadOutput contains results from a download operation
type DownloadOutput struct {
	Assets []*Asset `json:"assets,omitempty"`
}

// Download fetches assets from their URLs, optionally copying them to Dest.
func (s *Service) Download(ctx context.Context, input *DownloadInput, output *DownloadOutput) error {
	if len(input.Assets) == 0 {
		return fmt.Errorf("at least one asset URL is required")
	}
	downloaded := make([]*Asset, 0, len(input.Assets))
	for _, assetURL := range input.Assets {
		if assetURL == "" {
			continue
		}
		exists, err := s.fs.Exists(ctx, assetURL)
		if err != nil {
			return fmt.Errorf("failed to check if %s exists: %w", assetURL, err)
		}
		if !exists {
			return fmt.Errorf("asset does not exist: %s", assetURL)
		}
		source, err := s.fs.Object(ctx, assetURL)
		if err != nil {
			return fmt.Errorf("failed to get source for %s: %w", assetURL, err)
		}
		if source.IsDir() {
			return fmt.Errorf("cannot download directory, use list first: %s", assetURL)
		}
		asset := &Asset{
			URL:         assetURL,
			Name:        filepath.Base(assetURL),
			Mode:        source.Mode().String(),
			Size:        source.Size(),
			ModTime:     source.ModTime(),
			ContentType: contentTypeOf(url.Path(assetURL)),
		}
		if input.IncludeData {
			data, err := s.fs.DownloadWithURL(ctx, assetURL)
			if err != nil {
				return fmt.Errorf("failed to download data from %s: %w", assetURL, err)
			}
			asset.Data = data
		}
		if input.Dest != "" {
			destURL := input.Dest
			if object, _ := s.fs.Object(ctx, destURL); object != nil && object.IsDir() {
				destURL = url.Join(destURL, filepath.Base(assetURL))
			}
			if err := s.fs.Copy(ctx, assetURL, destURL); err != nil {
				return fmt.Errorf("failed to copy %s to %s: %w", assetURL, destURL, err)
			}
		}
		downloaded = append(downloaded, asset)
	}
	output.Assets = downloaded
	return nil
}
