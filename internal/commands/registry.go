package commands

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry maps command names and aliases to commands.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

// Register adds c under its name and aliases. Nothing is added if any of
// them is already taken.
func (r *Registry) Register(c Command) error {
	if c.Name() == "" {
		return errors.New("command has no name")
	}
	keys := append([]string{c.Name()}, c.Aliases()...)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		if _, exists := r.cmds[k]; exists {
			return fmt.Errorf("command already registered: %s", k)
		}
	}
	for _, k := range keys {
		r.cmds[k] = c
	}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[name]
	return cmd, ok
}

// All returns each command once, sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Command
	for k, cmd := range r.cmds {
		if k == cmd.Name() {
			out = append(out, cmd)
		}
	}
	slices.SortFunc(out, func(a, b Command) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		}
		return 0
	})
	return out
}

// DefaultRegistry holds the commands registered from init functions.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry and panics on a name clash.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
