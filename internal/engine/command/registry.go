package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/transform"
)

// Func is a command. It adds steps to tx or returns an error, usually a
// *Refusal. A failing command may leave steps behind; callers discard the
// transaction.
type Func func(tx *transform.Transaction, p Params) error

type entry struct {
	fn   Func
	core bool
}

// Registry maps command names to commands.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]entry)}
}

// Register adds a command contributed by catalog types. A later
// registration under the same name replaces the earlier one.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = entry{fn: fn}
}

// RegisterCore adds a command available with every catalog.
func (r *Registry) RegisterCore(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = entry{fn: fn, core: true}
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.commands[name]
	return e.fn, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered commands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Bind returns a registry holding the core commands plus the commands the
// catalog's types contribute. A contributed name with no registered
// command is a configuration error.
func (r *Registry) Bind(cat *catalog.Catalog) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry()
	for name, e := range r.commands {
		if e.core {
			out.commands[name] = e
		}
	}
	var missing []string
	for _, name := range cat.Commands() {
		e, ok := r.commands[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out.commands[name] = e
	}
	if len(missing) > 0 {
		return nil, &catalog.ConfigError{
			Field:   "commands",
			Message: fmt.Sprintf("%v: %s", ErrUnknownCommand, strings.Join(missing, ", ")),
		}
	}
	return out, nil
}

// Apply runs one invocation on tx. Step failures come back as refusals.
func (r *Registry) Apply(tx *transform.Transaction, inv Invocation) (err error) {
	fn, ok := r.Get(inv.Name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, inv.Name)
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrCommandPanic, inv.Name, p)
		}
	}()
	err = fn(tx, inv.Params)
	if err == nil {
		return nil
	}
	var ref *Refusal
	switch {
	case errors.As(err, &ref):
		if ref.Command == "" {
			ref.Command = inv.Name
		}
		return ref
	case errors.Is(err, transform.ErrStepFailed):
		return &Refusal{Command: inv.Name, Reason: err.Error(), Err: err}
	}
	return err
}

// Chain runs invocations in order on tx and stops at the first failure.
func (r *Registry) Chain(tx *transform.Transaction, invs ...Invocation) error {
	for _, inv := range invs {
		if err := r.Apply(tx, inv); err != nil {
			return err
		}
	}
	return nil
}

var (
	builtinsOnce sync.Once
	builtins     *Registry
)

// Builtins returns a registry with every built-in command. The returned
// registry is shared; use Bind to derive a per-catalog one.
func Builtins() *Registry {
	builtinsOnce.Do(func() {
		r := NewRegistry()
		registerCore(r)
		registerMarks(r)
		registerBlocks(r)
		registerAlign(r)
		registerTables(r)
		builtins = r
	})
	return builtins
}
