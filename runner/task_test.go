package runner

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-verifier/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartDelay(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		interval time.Duration
		want     time.Duration
	}{
		{
			name:     "first component starts immediately",
			index:    0,
			interval: 20 * time.Second,
			want:     0,
		},
		{
			name:     "second component waits one interval",
			index:    1,
			interval: 20 * time.Second,
			want:     20 * time.Second,
		},
		{
			name:     "fifth component waits four intervals",
			index:    4,
			interval: 20 * time.Second,
			want:     80 * time.Second,
		},
		{
			name:     "zero interval disables staggering",
			index:    7,
			interval: 0,
			want:     0,
		},
		{
			name:     "negative interval disables staggering",
			index:    3,
			interval: -time.Second,
			want:     0,
		},
		{
			name:     "negative index starts immediately",
			index:    -1,
			interval: 20 * time.Second,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartDelay(tt.index, tt.interval)
			assert.Equal(t, tt.want, got, "Start delay should match expected")
		})
	}
}

func TestStartDelay_Monotonic(t *testing.T) {
	interval := 5 * time.Second
	prev := StartDelay(0, interval)
	require.Equal(t, time.Duration(0), prev, "First delay should be zero")

	for i := 1; i < 10; i++ {
		d := StartDelay(i, interval)
		assert.Greater(t, d, prev, "Delays should strictly increase with manifest index")
		prev = d
	}
}

func TestBuildTasks(t *testing.T) {
	components := []manifest.ComponentRef{
		{Name: "alpha", Version: "1.4.7", ArtifactPath: "components/alpha.tgz"},
		{Name: "beta", Version: "2.0.1", ArtifactPath: "components/beta.tgz"},
		{Name: "gamma", Version: "1.4.7", ArtifactPath: "components/gamma.tgz"},
	}

	tasks := BuildTasks(components, 10*time.Second, "/tmp/work")
	require.Len(t, tasks, 3, "Should build one task per component")

	for i, task := range tasks {
		assert.Equal(t, components[i].Name, task.Component.Name, "Tasks should preserve manifest order")
		assert.Equal(t, i, task.Index, "Task index should match manifest position")
		assert.Equal(t, StartDelay(i, 10*time.Second), task.StartDelay, "Task delay should follow the stagger schedule")
		assert.Equal(t, filepath.Join("/tmp/work", components[i].Name), task.Workspace, "Workspace should be component-scoped")
	}
}

func TestBuildTasks_SnapshotsComponents(t *testing.T) {
	components := []manifest.ComponentRef{
		{Name: "alpha", Version: "1.4.7", ArtifactPath: "components/alpha.tgz"},
	}

	tasks := BuildTasks(components, 0, "/tmp/work")
	require.Len(t, tasks, 1)

	// mutating the source slice must not reach the dispatched task
	components[0].Version = "9.9.9"
	assert.Equal(t, "1.4.7", tasks[0].Component.Version, "Task should hold a snapshot of the component reference")
}

func TestBuildTasks_Empty(t *testing.T) {
	tasks := BuildTasks(nil, time.Second, "/tmp/work")
	assert.Empty(t, tasks, "No components should produce no tasks")
}
