package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/slekup/big-brain/internal/engine"
	"github.com/slekup/big-brain/internal/engine/command"
	"github.com/slekup/big-brain/internal/logging"
)

// Defaults.
const (
	DefaultTimeout     = 2 * time.Second
	DefaultMaxCommands = 1000
)

// Result is what a macro did.
type Result struct {
	// Commands is the chain the macro queued, in order.
	Commands []command.Invocation
	// Output holds the lines the macro printed.
	Output []string
	// Committed reports whether the chain was applied.
	Committed bool
}

// Runner runs macros.
type Runner struct {
	timeout     time.Duration
	maxCommands int
	logger      *logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds how long one macro may run.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxCommands bounds how many commands one macro may queue.
func WithMaxCommands(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxCommands = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		timeout:     DefaultTimeout,
		maxCommands: DefaultMaxCommands,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("script")
	return r
}

// Run executes source against ed and commits the queued chain.
func (r *Runner) Run(ctx context.Context, ed *engine.Editor, name, source string) (*Result, error) {
	return r.exec(ctx, ed, name, source, true)
}

// DryRun executes source and reports the chain without committing it.
func (r *Runner) DryRun(ctx context.Context, ed *engine.Editor, name, source string) (*Result, error) {
	return r.exec(ctx, ed, name, source, false)
}

// RunFile reads a macro from path and runs it.
func (r *Runner) RunFile(ctx context.Context, ed *engine.Editor, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read macro: %w", err)
	}
	return r.Run(ctx, ed, filepath.Base(path), string(data))
}

func (r *Runner) exec(ctx context.Context, ed *engine.Editor, name, source string, commit bool) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := &Result{}
	L := newState(ctx, &res.Output)
	defer L.Close()

	m := &macro{runner: r, editor: ed, result: res, known: make(map[string]bool)}
	for _, c := range ed.Commands() {
		m.known[c] = true
	}
	L.SetGlobal("bb", L.SetFuncs(L.NewTable(), m.funcs()))

	if err := doString(L, name, source); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if m.err != nil {
			err = m.err
		}
		r.logger.Debug("macro failed", "macro", name, "error", err)
		return res, &Error{Name: name, Err: err}
	}
	if !commit || len(res.Commands) == 0 {
		return res, nil
	}
	if err := ed.Run(res.Commands...); err != nil {
		return res, err
	}
	res.Committed = true
	r.logger.Debug("macro committed", "macro", name, "commands", len(res.Commands))
	return res, nil
}

// macro is the Go side of the bb module for one run.
type macro struct {
	runner *Runner
	editor *engine.Editor
	result *Result
	known  map[string]bool
	err    error
}

func (m *macro) funcs() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"run":       m.run,
		"can":       m.can,
		"active":    m.active,
		"text":      m.text,
		"count":     m.count,
		"limit":     m.limit,
		"selection": m.selection,
		"commands":  m.commands,
	}
}

// invocation reads a command name and optional parameter table.
func (m *macro) invocation(L *lua.LState) command.Invocation {
	name := L.CheckString(1)
	if !m.known[name] {
		L.ArgError(1, fmt.Sprintf("unknown command %q", name))
	}
	var params command.Params
	if t, ok := L.Get(2).(*lua.LTable); ok {
		if p, ok := toGo(t).(map[string]any); ok {
			params = p
		}
	}
	return command.Invoke(name, params)
}

func (m *macro) run(L *lua.LState) int {
	inv := m.invocation(L)
	if inv.Name == engine.CommandUndo || inv.Name == engine.CommandRedo {
		L.ArgError(1, "undo and redo cannot be part of a macro")
	}
	if len(m.result.Commands) >= m.runner.maxCommands {
		m.err = fmt.Errorf("%w (%d)", ErrTooManyCommands, m.runner.maxCommands)
		L.RaiseError("%s", m.err.Error())
	}
	m.result.Commands = append(m.result.Commands, inv)
	return 0
}

func (m *macro) can(L *lua.LState) int {
	inv := m.invocation(L)
	chain := append(append([]command.Invocation(nil), m.result.Commands...), inv)
	L.Push(lua.LBool(m.editor.Can(chain...)))
	return 1
}

func (m *macro) active(L *lua.LState) int {
	name := L.CheckString(1)
	var attrs map[string]any
	if t, ok := L.Get(2).(*lua.LTable); ok {
		attrs, _ = toGo(t).(map[string]any)
	}
	L.Push(lua.LBool(m.editor.IsActive(name, attrs)))
	return 1
}

func (m *macro) text(L *lua.LState) int {
	L.Push(lua.LString(m.editor.Document().TextContent()))
	return 1
}

func (m *macro) count(L *lua.LState) int {
	L.Push(lua.LNumber(m.editor.CharacterCount()))
	return 1
}

func (m *macro) limit(L *lua.LState) int {
	L.Push(lua.LNumber(m.editor.Limit()))
	return 1
}

func (m *macro) selection(L *lua.LState) int {
	sel := m.editor.Selection()
	L.Push(toLua(L, map[string]any{
		"anchor": sel.Anchor,
		"head":   sel.Head,
		"from":   sel.From(),
		"to":     sel.To(),
		"empty":  sel.IsEmpty(),
	}))
	return 1
}

func (m *macro) commands(L *lua.LState) int {
	names := m.editor.Commands()
	list := make([]any, len(names))
	for i, n := range names {
		list[i] = n
	}
	L.Push(toLua(L, list))
	return 1
}

// IsTimeout reports whether err came from a macro running out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
