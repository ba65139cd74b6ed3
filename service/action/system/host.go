// Package system holds shared types for host-level pipeline actions.
package system

import "github.com/viant/afs/url"

// Host identifies where a system action runs, localhost by default. For
// remote hosts Credentials names an scy secret resource with SSH access.
type Host struct {
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Credentials string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// IsLocal reports whether the host refers to the local machine.
func (h *Host) IsLocal() bool {
	return h == nil || h.URL == "" || url.Host(h.URL) == "localhost"
}
