package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// ListInput defines parameters for listing assets
type ListInput struct {
	URL       string `json:"url" required:"true" description:"URL to list assets from"`
	Recursive bool   `json:"recursive,omitempty" description:"List assets recursively"`
	PageSize  int    `json:"pageSize,omitempty" description:"Maximum number of results"`
}

// ListOutput contains results from a list operation
type ListOutput struct {
	Assets []*Asset `json:"assets,omitempty"`
}

// List lists files and directories at the specified URL.
func (s *Service) List(ctx context.Context, input *ListInput, output *ListOutput) error {
	if input.URL == "" {
		return fmt.Errorf("URL is required")
	}
	var listOptions []storage.Option
	if input.Recursive {
		listOptions = append(listOptions, option.NewRecursive(true))
	}
	if input.PageSize > 0 {
		listOptions = append(listOptions, option.NewPage(0, input.PageSize))
	}
	objects, err := s.fs.List(ctx, input.URL, listOptions...)
	if err != nil {
		return fmt.Errorf("failed to list objects at %s: %w", input.URL, err)
	}
	assets := make([]*Asset, 0, len(objects))
	for _, object := range objects {
		assets = append(assets, &Asset{
			URL:         object.URL(),
			Name:        path.Base(object.URL()),
			IsDir:       object.IsDir(),
			Mode:        object.Mode().String(),
			Size:        object.Size(),
			ModTime:     object.ModTime(),
			ContentType: contentTypeOf(url.Path(object.URL())),
		})
	}
	output.Assets = assets
	return nil
}
