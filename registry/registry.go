// Package registry collects many independent Runner environments under
// names, mirroring DataFlock's own environment_create/get/delete surface in
// the reference implementation.
package registry

import (
	"sync"

	dataflock "github.com/luciotorre/dataflock"
	"github.com/luciotorre/dataflock/runner"
)

// Registry is a named collection of Runner environments.
type Registry struct {
	mu   sync.Mutex
	envs map[string]*runner.Runner
}

// Option configures the Runner built by one Create call.
type Option = runner.Option

// New returns an empty Registry.
func New() *Registry {
	return &Registry{envs: make(map[string]*runner.Runner)}
}

// Create registers a new, empty Runner under name. It fails if name is
// already registered.
func (reg *Registry) Create(name string, opts ...Option) (*runner.Runner, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.envs[name]; exists {
		return nil, &dataflock.DuplicateEnvironmentError{Name: name}
	}
	env := runner.New(opts...)
	reg.envs[name] = env
	return env, nil
}

// Get returns the Runner registered under name.
func (reg *Registry) Get(name string) (*runner.Runner, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	env, ok := reg.envs[name]
	if !ok {
		return nil, &dataflock.UnknownEnvironmentError{Name: name}
	}
	return env, nil
}

// List returns every registered environment name, in no particular order.
func (reg *Registry) List() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]string, 0, len(reg.envs))
	for name := range reg.envs {
		out = append(out, name)
	}
	return out
}

// Delete removes name. Unlike the reference implementation's plain `del`,
// removing a name that was never registered is not an error — matching
// Python dict.pop(name, None) semantics, which is what a caller that just
// wants "make sure this environment is gone" actually needs.
func (reg *Registry) Delete(name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.envs, name)
}
