package runner

import (
	"fmt"
	"sync"

	"github.com/ethereum-optimism/infra/op-verifier/types"
)

// Collector gathers component results as tasks finish. It is the only
// mutable state shared between task goroutines; all access is serialized.
// Each component gets exactly one terminal result per run: the first record
// wins and later ones are rejected.
type Collector struct {
	mu       sync.Mutex
	expected []string
	known    map[string]bool
	results  map[string]*types.ComponentResult
}

// NewCollector creates a collector expecting exactly the given components.
func NewCollector(components []string) *Collector {
	known := make(map[string]bool, len(components))
	for _, name := range components {
		known[name] = true
	}
	return &Collector{
		expected: append([]string(nil), components...),
		known:    known,
		results:  make(map[string]*types.ComponentResult, len(components)),
	}
}

// Record stores a component's terminal result. A second record for the same
// component returns a DuplicateResultError and leaves the first result
// untouched; a component outside the expected set is rejected outright.
func (c *Collector) Record(component string, result *types.ComponentResult) error {
	if result == nil {
		return fmt.Errorf("nil result for component %q", component)
	}
	if !result.Outcome.Terminal() {
		return fmt.Errorf("non-terminal outcome %q for component %q", result.Outcome, component)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.known[component] {
		return fmt.Errorf("component %q is not part of this run", component)
	}
	if _, ok := c.results[component]; ok {
		return NewDuplicateResultError(component)
	}
	c.results[component] = result
	return nil
}

// Results returns a snapshot of the recorded results.
func (c *Collector) Results() map[string]*types.ComponentResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*types.ComponentResult, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// Missing returns the expected components without a recorded result, in
// dispatch order.
func (c *Collector) Missing() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var missing []string
	for _, name := range c.expected {
		if _, ok := c.results[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Count returns how many results have been recorded.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}
