package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// A Resource wraps a streamable local file or remote http(s) resource.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Get the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns true if the Resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource. Locations with an http or https scheme are fetched with a
// GET request bound to ctx; everything else is treated as a local path.
//
// The caller must close the returned resource.
func OpenResource(ctx context.Context, location string) (*Resource, error) {
	// Windows paths use backslashes.
	u, err := url.Parse(strings.Replace(location, `\`, `/`, -1))
	if err != nil {
		return nil, fmt.Errorf("resource: invalid location %q: %w", location, err)
	}

	var reader io.ReadCloser
	switch u.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(u.Path))
		if err != nil {
			return nil, err
		}
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %w", u.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", u.String(), resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, fmt.Errorf("resource: unsupported scheme '%s'", u.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        u,
	}, nil
}

// Open a resource referenced by parent. Relative locations are resolved
// against the location of parent so local files and remote resources can
// include their siblings.
func OpenRelative(ctx context.Context, parent *Resource, location string) (*Resource, error) {
	ref, err := url.Parse(strings.Replace(location, `\`, `/`, -1))
	if err != nil {
		return nil, fmt.Errorf("resource: invalid location %q: %w", location, err)
	}
	if parent == nil || ref.IsAbs() || strings.HasPrefix(ref.Path, "/") {
		return OpenResource(ctx, location)
	}
	if parent.IsRemote() {
		return OpenResource(ctx, parent.url.ResolveReference(ref).String())
	}
	return OpenResource(ctx, path.Join(path.Dir(parent.url.Path), ref.Path))
}

// Create a resource from a reader.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	u, err := url.Parse(name)
	if err != nil {
		u = &url.URL{Path: name}
	}
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        u,
	}
}
