package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `
distribution: acme-platform
buildId: "2024.06.1234"
components:
  - name: alpha
    version: 1.4.7
    artifactPath: alpha/alpha-1.4.7.tar.gz
  - name: beta
    version: 2.0.1
    artifactPath: beta/beta-2.0.1.tar.gz
  - name: gamma
    version: 1.4.7
    artifactPath: gamma/gamma-1.4.7.tar.gz
`

func TestParseValidManifest(t *testing.T) {
	m, err := Parse([]byte(validManifest), "test")
	require.NoError(t, err)

	assert.Equal(t, "acme-platform", m.Distribution)
	assert.Equal(t, "2024.06.1234", m.BuildID)
	require.Len(t, m.Components, 3)
	assert.Equal(t, "alpha", m.Components[0].Name)
	assert.Equal(t, "1.4.7", m.Components[0].Version)
	assert.Equal(t, "alpha/alpha-1.4.7.tar.gz", m.Components[0].ArtifactPath)
}

func TestParseRejectsIncompleteManifest(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		errMsg   string
	}{
		{
			name:     "missing distribution",
			manifest: "buildId: \"1\"\ncomponents:\n  - name: a\n    version: 1.0.0\n    artifactPath: a.tgz\n",
			errMsg:   "distribution is required",
		},
		{
			name:     "missing buildId",
			manifest: "distribution: d\ncomponents:\n  - name: a\n    version: 1.0.0\n    artifactPath: a.tgz\n",
			errMsg:   "buildId is required",
		},
		{
			name:     "no components",
			manifest: "distribution: d\nbuildId: \"1\"\ncomponents: []\n",
			errMsg:   "no components",
		},
		{
			name:     "component without name",
			manifest: "distribution: d\nbuildId: \"1\"\ncomponents:\n  - version: 1.0.0\n    artifactPath: a.tgz\n",
			errMsg:   "name is required",
		},
		{
			name:     "component without version",
			manifest: "distribution: d\nbuildId: \"1\"\ncomponents:\n  - name: a\n    artifactPath: a.tgz\n",
			errMsg:   "version is required",
		},
		{
			name:     "component without artifactPath",
			manifest: "distribution: d\nbuildId: \"1\"\ncomponents:\n  - name: a\n    version: 1.0.0\n",
			errMsg:   "artifactPath is required",
		},
		{
			name:     "duplicate component names",
			manifest: "distribution: d\nbuildId: \"1\"\ncomponents:\n  - name: a\n    version: 1.0.0\n    artifactPath: a.tgz\n  - name: a\n    version: 1.0.1\n    artifactPath: b.tgz\n",
			errMsg:   "listed more than once",
		},
		{
			name:     "malformed yaml",
			manifest: "distribution: [unclosed\n",
			errMsg:   "parsing manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.manifest), "test")
			require.Error(t, err, "expected manifest to be rejected")
			assert.Nil(t, m)
			assert.True(t, IsManifestError(err), "expected a ManifestError, got %v", err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestComponentNamesPreserveOrder(t *testing.T) {
	m, err := Parse([]byte(validManifest), "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, m.ComponentNames())
}

func TestArtifactRoot(t *testing.T) {
	assert.Equal(t, "nightly-build/2024.06.1234", ArtifactRoot("nightly-build", "2024.06.1234"))

	m, err := Parse([]byte(validManifest), "test")
	require.NoError(t, err)
	assert.Equal(t, "nightly-build/2024.06.1234", m.ArtifactRootFor("nightly-build"))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validManifest), 0o644))

	m, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "acme-platform", m.Distribution)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, IsManifestError(err))
}

func TestLoadFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(validManifest))
	}))
	defer srv.Close()

	m, err := Load(context.Background(), srv.URL+"/manifest.yaml")
	require.NoError(t, err)
	assert.Equal(t, "acme-platform", m.Distribution)
}

func TestLoadFromURLWithErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/manifest.yaml")
	require.Error(t, err)
	assert.True(t, IsManifestError(err))
}
