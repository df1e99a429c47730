// Package manifest defines the build manifest data model: which components a
// distribution build produced, where their artifacts live, and which checks
// verify them. Manifests are parsed fail-fast; nothing downstream runs from a
// document that did not fully validate.
package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComponentRef identifies one built component inside a distribution build
type ComponentRef struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// ArtifactPath is relative to the build's artifact root. It is untrusted
	// input; Locate rejects anything that escapes the root.
	ArtifactPath string `yaml:"artifactPath"`
}

// BuildManifest describes one build of a distribution. Component order is
// preserved from the document; it drives dispatch staggering only and carries
// no dependency meaning.
type BuildManifest struct {
	Distribution string         `yaml:"distribution"`
	BuildID      string         `yaml:"buildId"`
	Components   []ComponentRef `yaml:"components"`
}

// Load reads and validates a build manifest from a filesystem path or an
// http(s) URL. Any structural problem is returned as a ManifestError before
// the caller can dispatch work from it.
func Load(ctx context.Context, source string) (*BuildManifest, error) {
	data, err := fetchDocument(ctx, source)
	if err != nil {
		return nil, NewManifestError(source, err)
	}
	return Parse(data, source)
}

// Parse decodes and validates a build manifest document. source is used for
// error attribution only.
func Parse(data []byte, source string) (*BuildManifest, error) {
	var m BuildManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, NewManifestError(source, fmt.Errorf("parsing manifest: %w", err))
	}
	if err := m.Validate(); err != nil {
		return nil, NewManifestError(source, err)
	}
	return &m, nil
}

// Validate checks the manifest for completeness. It fails on the first
// problem found; a partially valid manifest is not dispatchable.
func (m *BuildManifest) Validate() error {
	if m.Distribution == "" {
		return fmt.Errorf("distribution is required")
	}
	if m.BuildID == "" {
		return fmt.Errorf("buildId is required")
	}
	if len(m.Components) == 0 {
		return fmt.Errorf("manifest lists no components")
	}
	seen := make(map[string]bool, len(m.Components))
	for i, c := range m.Components {
		if c.Name == "" {
			return fmt.Errorf("component %d: name is required", i)
		}
		if c.Version == "" {
			return fmt.Errorf("component %q: version is required", c.Name)
		}
		if c.ArtifactPath == "" {
			return fmt.Errorf("component %q: artifactPath is required", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("component %q listed more than once", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// ComponentNames returns the component names in manifest order.
func (m *BuildManifest) ComponentNames() []string {
	names := make([]string, len(m.Components))
	for i, c := range m.Components {
		names[i] = c.Name
	}
	return names
}

// ArtifactRoot computes the storage root for a build's artifacts from the
// producing job's name and the build identifier. Pure computation, no I/O.
func ArtifactRoot(jobName, buildID string) string {
	return path.Join(jobName, buildID)
}

// ArtifactRootFor returns the artifact root for this manifest's build under
// the given job name.
func (m *BuildManifest) ArtifactRootFor(jobName string) string {
	return ArtifactRoot(jobName, m.BuildID)
}

// IsRemote reports whether a document source is an http(s) URL rather than
// a filesystem path.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// fetchDocument reads a document from a local path or an http(s) URL.
func fetchDocument(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("document source is required")
	}
	if IsRemote(source) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching document: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching document: status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return data, nil
}
