package manifest

import (
	"fmt"
	"path"
	"strings"
)

// Locate resolves the storage path of a component's artifact below the
// build's artifact root. The component's path is manifest input and therefore
// untrusted: absolute paths and any traversal above the root are rejected
// with a ManifestError.
func Locate(c ComponentRef, artifactRoot string) (string, error) {
	if artifactRoot == "" {
		return "", NewManifestError("", fmt.Errorf("artifact root is required"))
	}
	if c.ArtifactPath == "" {
		return "", NewManifestError("", fmt.Errorf("component %q: artifactPath is required", c.Name))
	}
	if path.IsAbs(c.ArtifactPath) {
		return "", NewManifestError("", fmt.Errorf("component %q: artifact path %q must be relative to the artifact root", c.Name, c.ArtifactPath))
	}
	rel := path.Clean(c.ArtifactPath)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", NewManifestError("", fmt.Errorf("component %q: artifact path %q escapes the artifact root", c.Name, c.ArtifactPath))
	}
	return path.Join(artifactRoot, rel), nil
}
