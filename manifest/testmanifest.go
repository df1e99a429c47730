package manifest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Check is one verification command to run against a component's artifact
// inside its sandbox.
type Check struct {
	Name    string         `yaml:"name"`
	Command []string       `yaml:"command"`
	Timeout *time.Duration `yaml:"timeout,omitempty"` // overrides the run's component timeout
}

// VersionLine groups the checks that apply to one release line of a
// component, e.g. "1.4" covers every 1.4.x version. A component runs all of
// its line's checks inside one sandbox, so the harness image is a property
// of the line, not of individual checks.
type VersionLine struct {
	Line   string  `yaml:"line"`
	Image  string  `yaml:"image,omitempty"` // overrides the run's default sandbox image
	Checks []Check `yaml:"checks"`
}

// TestManifest selects which checks verify a component, by version line.
// It is read once at startup and read-only for the rest of the run.
type TestManifest struct {
	Defaults []Check       `yaml:"defaults,omitempty"`
	Lines    []VersionLine `yaml:"lines,omitempty"`
}

// LoadTests reads and validates a test manifest from a filesystem path or an
// http(s) URL.
func LoadTests(ctx context.Context, source string) (*TestManifest, error) {
	data, err := fetchDocument(ctx, source)
	if err != nil {
		return nil, NewManifestError(source, err)
	}
	var t TestManifest
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, NewManifestError(source, fmt.Errorf("parsing test manifest: %w", err))
	}
	if err := t.Validate(); err != nil {
		return nil, NewManifestError(source, err)
	}
	return &t, nil
}

// Validate checks the test manifest for completeness, failing on the first
// problem found.
func (t *TestManifest) Validate() error {
	if err := validateChecks(t.Defaults, "defaults"); err != nil {
		return err
	}
	for _, line := range t.Lines {
		if line.Line == "" {
			return fmt.Errorf("version line without a line selector")
		}
		if !semver.IsValid(canonVersion(line.Line)) {
			return fmt.Errorf("version line %q is not a valid version prefix", line.Line)
		}
		if len(line.Checks) == 0 {
			return fmt.Errorf("version line %q has no checks", line.Line)
		}
		if err := validateChecks(line.Checks, fmt.Sprintf("line %q", line.Line)); err != nil {
			return err
		}
	}
	return nil
}

func validateChecks(checks []Check, where string) error {
	seen := make(map[string]bool, len(checks))
	for i, c := range checks {
		if c.Name == "" {
			return fmt.Errorf("%s: check %d: name is required", where, i)
		}
		if len(c.Command) == 0 {
			return fmt.Errorf("%s: check %q: command is required", where, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%s: check %q listed more than once", where, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Plan is the verification selected for one component: the checks to run
// and, optionally, a harness image overriding the run's default.
type Plan struct {
	Image  string
	Checks []Check
}

// PlanFor returns the verification plan for the given component version. The
// most specific matching version line wins (major.minor before major); when
// nothing matches, the manifest defaults apply, and failing those the
// built-in default check.
func (t *TestManifest) PlanFor(version string) Plan {
	v := canonVersion(version)
	if t != nil && semver.IsValid(v) {
		for _, line := range t.Lines {
			if canonVersion(line.Line) == semver.MajorMinor(v) {
				return Plan{Image: line.Image, Checks: line.Checks}
			}
		}
		for _, line := range t.Lines {
			if canonVersion(line.Line) == semver.Major(v) {
				return Plan{Image: line.Image, Checks: line.Checks}
			}
		}
	}
	if t != nil && len(t.Defaults) > 0 {
		return Plan{Checks: t.Defaults}
	}
	return Plan{Checks: DefaultChecks()}
}

// DefaultChecks is the built-in verification used when no test manifest
// entry covers a component: run the test entrypoint the artifact ships.
func DefaultChecks() []Check {
	return []Check{{
		Name:    "component-tests",
		Command: []string{"./run-tests.sh"},
	}}
}

// canonVersion normalizes a version or version prefix to the canonical
// v-prefixed form used for comparisons.
func canonVersion(v string) string {
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
