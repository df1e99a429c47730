package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedResult struct {
	output string
	code   int
	err    error
}

// stubDockerCLI replays scripted results and records every invocation.
type stubDockerCLI struct {
	lookPathErr error
	results     []scriptedResult
	calls       [][]string
}

func (s *stubDockerCLI) LookPath(file string) (string, error) {
	if s.lookPathErr != nil {
		return "", s.lookPathErr
	}
	return "/usr/bin/" + file, nil
}

func (s *stubDockerCLI) Run(ctx context.Context, args ...string) (string, int, error) {
	s.calls = append(s.calls, args)
	if len(s.results) == 0 {
		return "", 0, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.output, r.code, r.err
}

func TestBuildRunArgs(t *testing.T) {
	spec := Spec{
		Name:    "alpha",
		Image:   "acme/harness:1",
		WorkDir: "/work",
		Env:     map[string]string{"B_VAR": "2", "A_VAR": "1"},
		Mounts: []Mount{
			{Host: "/tmp/artifact", Container: "/work/artifact", ReadOnly: true},
			{Host: "/tmp/out", Container: "/work/out"},
		},
	}

	args := buildRunArgs(spec, "op-verifier-alpha-12345678")
	assert.Equal(t, []string{
		"run", "--pull=missing", "-d",
		"--name", "op-verifier-alpha-12345678",
		"--label", managedLabel,
		"-w", "/work",
		"-e", "A_VAR=1",
		"-e", "B_VAR=2",
		"-v", "/tmp/artifact:/work/artifact:ro",
		"-v", "/tmp/out:/work/out",
		"acme/harness:1", "sleep", "infinity",
	}, args, "env vars must be emitted in sorted order")
}

func TestContainerName(t *testing.T) {
	tests := []struct {
		name string
		hint string
		want string
	}{
		{name: "plain hint", hint: "alpha", want: "op-verifier-alpha-"},
		{name: "slashes replaced", hint: "acme/alpha", want: "op-verifier-acme-alpha-"},
		{name: "empty hint", hint: "", want: "op-verifier-sandbox-"},
		{name: "only invalid runes", hint: "///", want: "op-verifier-sandbox-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := containerName(tt.hint)
			assert.True(t, strings.HasPrefix(got, tt.want), "name %q should start with %q", got, tt.want)
			assert.NotEqual(t, containerName(tt.hint), got, "names must be unique per call")
		})
	}
}

func TestDockerRuntimeCreate(t *testing.T) {
	cli := &stubDockerCLI{results: []scriptedResult{{output: "container-id\n"}}}
	rt := &DockerRuntime{cli: cli}

	h, err := rt.Create(context.Background(), Spec{Name: "alpha", Image: "img"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h.ID, "op-verifier-alpha-"))
	require.Len(t, cli.calls, 1)
	assert.Equal(t, "run", cli.calls[0][0])
}

func TestDockerRuntimeCreateRequiresImage(t *testing.T) {
	rt := &DockerRuntime{cli: &stubDockerCLI{}}
	_, err := rt.Create(context.Background(), Spec{Name: "alpha"})
	require.Error(t, err)
}

func TestDockerRuntimeCreateSurfacesDockerFailure(t *testing.T) {
	cli := &stubDockerCLI{results: []scriptedResult{{output: "no such image\n", code: 125}}}
	rt := &DockerRuntime{cli: cli}

	_, err := rt.Create(context.Background(), Spec{Name: "alpha", Image: "img"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such image")
}

func TestDockerRuntimeRunReturnsHarnessVerdict(t *testing.T) {
	cli := &stubDockerCLI{results: []scriptedResult{{output: "FAIL: TestThing\n", code: 1}}}
	rt := &DockerRuntime{cli: cli}

	res, err := rt.Run(context.Background(), Handle{ID: "sbx"}, []string{"./run-tests.sh"})
	require.NoError(t, err, "a failing harness is a verdict, not an execution error")
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "FAIL: TestThing\n", res.Output)
	assert.Equal(t, []string{"exec", "sbx", "./run-tests.sh"}, cli.calls[0])
}

func TestDockerRuntimeRunInfrastructureFailure(t *testing.T) {
	cli := &stubDockerCLI{results: []scriptedResult{{err: errors.New("daemon unavailable")}}}
	rt := &DockerRuntime{cli: cli}

	_, err := rt.Run(context.Background(), Handle{ID: "sbx"}, []string{"./run-tests.sh"})
	require.Error(t, err)
}

func TestDockerRuntimeDestroy(t *testing.T) {
	cli := &stubDockerCLI{}
	rt := &DockerRuntime{cli: cli}

	require.NoError(t, rt.Destroy(context.Background(), Handle{ID: "sbx"}))
	require.Len(t, cli.calls, 1)
	assert.Equal(t, []string{"rm", "-f", "sbx"}, cli.calls[0])
}

func TestDockerRuntimeCheck(t *testing.T) {
	rt := &DockerRuntime{cli: &stubDockerCLI{}}
	assert.NoError(t, rt.Check())

	rt = &DockerRuntime{cli: &stubDockerCLI{lookPathErr: errors.New("not found")}}
	assert.Error(t, rt.Check())
}
