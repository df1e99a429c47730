package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validTestManifest = `
defaults:
  - name: smoke
    command: ["./smoke.sh"]
lines:
  - line: "1.4"
    checks:
      - name: integration
        command: ["./run-tests.sh", "--suite", "integration"]
        timeout: 45m
      - name: upgrade
        command: ["./run-tests.sh", "--suite", "upgrade"]
  - line: "2"
    image: acme/test-harness:2
    checks:
      - name: integration
        command: ["./run-tests.sh"]
`

func TestLoadTestManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validTestManifest), 0o644))

	tm, err := LoadTests(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, tm.Lines, 2)
	require.Len(t, tm.Lines[0].Checks, 2)
	require.NotNil(t, tm.Lines[0].Checks[0].Timeout)
	assert.Equal(t, 45*time.Minute, *tm.Lines[0].Checks[0].Timeout)
	assert.Equal(t, "acme/test-harness:2", tm.Lines[1].Image)
}

func TestPlanForSelectsVersionLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validTestManifest), 0o644))
	tm, err := LoadTests(context.Background(), path)
	require.NoError(t, err)

	tests := []struct {
		name      string
		version   string
		want      []string
		wantImage string
	}{
		{name: "major.minor match", version: "1.4.7", want: []string{"integration", "upgrade"}},
		{name: "major match", version: "2.3.1", want: []string{"integration"}, wantImage: "acme/test-harness:2"},
		{name: "v-prefixed version", version: "v1.4.0", want: []string{"integration", "upgrade"}},
		{name: "no line matches falls back to defaults", version: "3.0.0", want: []string{"smoke"}},
		{name: "unparseable version falls back to defaults", version: "not-a-version", want: []string{"smoke"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := tm.PlanFor(tt.version)
			got := make([]string, len(plan.Checks))
			for i, c := range plan.Checks {
				got[i] = c.Name
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantImage, plan.Image)
		})
	}
}

func TestPlanForWithoutManifestUsesBuiltIn(t *testing.T) {
	var tm *TestManifest
	plan := tm.PlanFor("1.0.0")
	require.Len(t, plan.Checks, 1)
	assert.Equal(t, "component-tests", plan.Checks[0].Name)
	assert.Equal(t, []string{"./run-tests.sh"}, plan.Checks[0].Command)
	assert.Empty(t, plan.Image)
}

func TestTestManifestValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		errMsg   string
	}{
		{
			name:     "line without selector",
			manifest: "lines:\n  - checks:\n      - name: a\n        command: [\"x\"]\n",
			errMsg:   "without a line selector",
		},
		{
			name:     "invalid version prefix",
			manifest: "lines:\n  - line: banana\n    checks:\n      - name: a\n        command: [\"x\"]\n",
			errMsg:   "not a valid version prefix",
		},
		{
			name:     "line without checks",
			manifest: "lines:\n  - line: \"1.4\"\n    checks: []\n",
			errMsg:   "has no checks",
		},
		{
			name:     "check without command",
			manifest: "lines:\n  - line: \"1.4\"\n    checks:\n      - name: a\n",
			errMsg:   "command is required",
		},
		{
			name:     "duplicate check names",
			manifest: "defaults:\n  - name: a\n    command: [\"x\"]\n  - name: a\n    command: [\"y\"]\n",
			errMsg:   "listed more than once",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tests.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.manifest), 0o644))
			_, err := LoadTests(context.Background(), path)
			require.Error(t, err)
			assert.True(t, IsManifestError(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
