// Package app hosts Big Brain's rich-text fields. It composes configuration,
// logging and the node catalog, then opens sessions that bind a document
// field of a stored record to either an editor or a read-only preview.
package app

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slekup/big-brain/internal/config"
	"github.com/slekup/big-brain/internal/engine"
	"github.com/slekup/big-brain/internal/engine/catalog"
	"github.com/slekup/big-brain/internal/engine/command"
	"github.com/slekup/big-brain/internal/logging"
	"github.com/slekup/big-brain/internal/preview"
	"github.com/slekup/big-brain/internal/record"
	"github.com/slekup/big-brain/internal/script"
)

// Application is the central coordinator for records, sessions and their
// editors.
type Application struct {
	mu sync.RWMutex

	config   *config.Config
	logger   *logging.Logger
	catalog  *catalog.Catalog
	commands *command.Registry
	records  *record.Store
	scripts  *script.Runner
	watcher  *watcher

	sessions map[string]*Session
	files    map[string]string // record ID -> file path

	closed atomic.Bool
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty uses
	// config.DefaultPath.
	ConfigPath string

	// Config, when set, is used instead of loading ConfigPath.
	Config *config.Config

	// LogLevel overrides the configured logging level.
	LogLevel string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer

	// Commands is the command registry editors are built with. Defaults to
	// the built-in commands.
	Commands *command.Registry
}

// New creates an Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{
		records:  record.NewStore(),
		sessions: make(map[string]*Session),
		files:    make(map[string]string),
		commands: opts.Commands,
	}
	if err := app.bootstrap(opts); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap(opts Options) error {
	// 1. Config
	cfg := opts.Config
	if cfg == nil {
		path := opts.ConfigPath
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		if cfg, err = config.Load(path); err != nil {
			return &InitError{Component: "config", Err: err}
		}
	} else if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.config = cfg

	// 2. Logger
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
	if opts.LogLevel != "" {
		logCfg.Level = logging.ParseLevel(opts.LogLevel)
	}
	if opts.LogOutput != nil {
		logCfg.Output = opts.LogOutput
	}
	app.logger = logging.New(logCfg).WithComponent("app")

	// 3. Catalog
	var err error
	if cfg.Catalog.Path != "" {
		app.catalog, err = catalog.LoadYAML(cfg.Catalog.Path)
	} else {
		app.catalog, err = catalog.Default()
	}
	if err != nil {
		return &InitError{Component: "catalog", Err: err}
	}

	// 4. Commands must cover everything the catalog's menus name.
	if app.commands == nil {
		app.commands = command.Builtins()
	}
	if _, err := app.commands.Bind(app.catalog); err != nil {
		return &InitError{Component: "commands", Err: err}
	}

	// 5. Macros
	app.scripts = script.New(
		script.WithTimeout(time.Duration(cfg.Script.Timeout)),
		script.WithMaxCommands(cfg.Script.MaxCommands),
		script.WithLogger(app.logger),
	)

	// 6. File watching
	if cfg.Watch.Enabled {
		app.watcher, err = newWatcher(time.Duration(cfg.Watch.Debounce), app.fileChanged, app.logger)
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
	}

	app.logger.Info("started",
		"catalog", catalogSource(cfg),
		"limit", cfg.Editor.Limit,
		"watch", cfg.Watch.Enabled,
	)
	return nil
}

func catalogSource(cfg *config.Config) string {
	if cfg.Catalog.Path == "" {
		return "builtin"
	}
	return cfg.Catalog.Path
}

// NewEditor creates an editor configured for the named field. content may
// be nil for an empty document. Read-only fields fail with ErrNotEditable.
func (app *Application) NewEditor(field string, content []byte) (*engine.Editor, error) {
	if !app.config.Field(field).Editable {
		return nil, &OperationError{Op: "edit", Target: field, Err: ErrNotEditable}
	}
	return engine.New(app.catalog, app.editorOptions(field, content)...)
}

func (app *Application) editorOptions(field string, content []byte) []engine.Option {
	cfg := app.config
	opts := []engine.Option{
		engine.WithLimit(cfg.Field(field).Limit),
		engine.WithCharCounting(cfg.Counting()),
		engine.WithHistoryDepth(cfg.Editor.HistoryDepth),
		engine.WithCoalesceWindow(time.Duration(cfg.Editor.CoalesceWindow), cfg.Editor.CoalesceMaxOps),
		engine.WithCommands(app.commands),
		engine.WithLogger(app.logger.WithField("field", field)),
	}
	if content != nil {
		opts = append(opts, engine.WithContent(content))
	}
	return opts
}

// NewPreview creates a read-only renderer for the named field.
func (app *Application) NewPreview(field string) *preview.Preview {
	return preview.New(app.catalog,
		preview.WithLogger(app.logger.WithField("field", field)),
		preview.WithCharCounting(app.config.Counting()),
		preview.WithLoadPolicy(app.config.PreviewPolicy()),
	)
}

// Config returns the configuration.
func (app *Application) Config() *config.Config { return app.config }

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger { return app.logger }

// Catalog returns the node catalog.
func (app *Application) Catalog() *catalog.Catalog { return app.catalog }

// Records returns the record store.
func (app *Application) Records() *record.Store { return app.records }

// Scripts returns the macro runner.
func (app *Application) Scripts() *script.Runner { return app.scripts }

// IsClosed reports whether Shutdown has run.
func (app *Application) IsClosed() bool { return app.closed.Load() }

// Shutdown closes every session and stops watching files. It is safe to
// call more than once.
func (app *Application) Shutdown() {
	if !app.closed.CompareAndSwap(false, true) {
		return
	}

	app.mu.Lock()
	sessions := make([]*Session, 0, len(app.sessions))
	for _, s := range app.sessions {
		sessions = append(sessions, s)
	}
	app.sessions = make(map[string]*Session)
	w := app.watcher
	app.watcher = nil
	app.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	if w != nil {
		if err := w.Close(); err != nil {
			app.logger.Warn("closing watcher", "error", err)
		}
	}
	app.logger.Info("stopped", "sessions", len(sessions))
}
