package runner

import (
	"path/filepath"
	"time"

	"github.com/ethereum-optimism/infra/op-verifier/manifest"
)

// Task is one component's unit of verification work. Tasks are immutable
// snapshots taken at dispatch time: the component reference is copied and the
// start delay bound at creation, so later manifest mutations or loop
// variables cannot bleed into a running task.
type Task struct {
	Component  manifest.ComponentRef
	Index      int
	StartDelay time.Duration
	// Workspace is this task's exclusive scratch directory. Nothing else
	// reads or writes it while the task is live.
	Workspace string
}

// StartDelay computes the dispatch delay for the component at the given
// manifest index. Pure function of its inputs: delays never depend on
// runtime state, so the schedule is reproducible for a given manifest.
func StartDelay(index int, interval time.Duration) time.Duration {
	if index <= 0 || interval <= 0 {
		return 0
	}
	return time.Duration(index) * interval
}

// BuildTasks snapshots every manifest component into a Task, in manifest
// order, with workspaces under workRoot.
func BuildTasks(components []manifest.ComponentRef, interval time.Duration, workRoot string) []*Task {
	tasks := make([]*Task, len(components))
	for i, c := range components {
		tasks[i] = &Task{
			Component:  c,
			Index:      i,
			StartDelay: StartDelay(i, interval),
			Workspace:  filepath.Join(workRoot, c.Name),
		}
	}
	return tasks
}
