package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/slekup/big-brain/internal/config/loader"
	"github.com/slekup/big-brain/internal/engine/guard"
	"github.com/slekup/big-brain/internal/engine/history"
	"github.com/slekup/big-brain/internal/engine/schema"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "BIGBRAIN_"

// maxIncludeDepth bounds "@include" nesting.
const maxIncludeDepth = 8

// Duration is a time.Duration written as a string such as "500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the complete host configuration.
type Config struct {
	Editor  EditorConfig           `toml:"editor"`
	Catalog CatalogConfig          `toml:"catalog"`
	Logging LoggingConfig          `toml:"logging"`
	Preview PreviewConfig          `toml:"preview"`
	Script  ScriptConfig           `toml:"script"`
	Watch   WatchConfig            `toml:"watch"`
	Fields  map[string]FieldConfig `toml:"fields"`
}

// EditorConfig holds the defaults for every editor instance.
type EditorConfig struct {
	Limit          int      `toml:"limit"`
	HistoryDepth   int      `toml:"history_depth"`
	CoalesceWindow Duration `toml:"coalesce_window"`
	CoalesceMaxOps int      `toml:"coalesce_max_ops"`
	CharCounting   string   `toml:"char_counting"`
}

// CatalogConfig locates the node and mark catalog. An empty path uses the
// built-in catalog.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// PreviewConfig configures read-only instances.
type PreviewConfig struct {
	// Policy is "drop" (warn and keep the rest) or "reject".
	Policy string `toml:"policy"`
}

// ScriptConfig bounds Lua macros.
type ScriptConfig struct {
	Timeout     Duration `toml:"timeout"`
	MaxCommands int      `toml:"max_commands"`
}

// WatchConfig configures watching record files for external changes.
type WatchConfig struct {
	Enabled  bool     `toml:"enabled"`
	Debounce Duration `toml:"debounce"`
}

// FieldConfig overrides editor settings for one named field of a record.
// Nil values inherit the editor settings.
type FieldConfig struct {
	Limit    *int  `toml:"limit,omitempty"`
	Editable *bool `toml:"editable,omitempty"`
}

// FieldSettings are the resolved settings of one field.
type FieldSettings struct {
	Limit    int
	Editable bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			Limit:          guard.DefaultLimit,
			HistoryDepth:   history.DefaultMaxEntries,
			CoalesceWindow: Duration(history.DefaultCoalesceWindow),
			CoalesceMaxOps: history.DefaultCoalesceMaxOps,
			CharCounting:   guard.Runes.String(),
		},
		Logging: LoggingConfig{Level: "info"},
		Preview: PreviewConfig{Policy: schema.PolicyDrop.String()},
		Script: ScriptConfig{
			Timeout:     Duration(2 * time.Second),
			MaxCommands: 1000,
		},
		Watch: WatchConfig{Debounce: Duration(100 * time.Millisecond)},
		Fields: map[string]FieldConfig{
			"question": {Limit: intPtr(10000)},
			"answer":   {Limit: intPtr(2000)},
		},
	}
}

func intPtr(n int) *int { return &n }

// Field returns the settings for the named field. Unknown fields and
// unset values inherit the editor defaults. Fields are editable unless
// configured otherwise.
func (c *Config) Field(name string) FieldSettings {
	f := c.Fields[name]
	s := FieldSettings{Limit: c.Editor.Limit, Editable: true}
	if f.Limit != nil {
		s.Limit = *f.Limit
	}
	if f.Editable != nil {
		s.Editable = *f.Editable
	}
	return s
}

// FieldNames returns the configured field names in sorted order.
func (c *Config) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Counting returns the parsed character counting mode.
func (c *Config) Counting() guard.Counting {
	n, _ := guard.ParseCounting(c.Editor.CharCounting)
	return n
}

// PreviewPolicy returns the parsed preview load policy.
func (c *Config) PreviewPolicy() schema.Policy {
	p, _ := schema.ParsePolicy(c.Preview.Policy)
	return p
}

// Validate checks every setting and returns the first problem.
func (c *Config) Validate() error {
	if c.Editor.Limit < 0 {
		return &ValidationError{Path: "editor.limit", Message: "must not be negative", Value: c.Editor.Limit}
	}
	if c.Editor.HistoryDepth < 0 {
		return &ValidationError{Path: "editor.history_depth", Message: "must not be negative", Value: c.Editor.HistoryDepth}
	}
	if c.Editor.CoalesceWindow < 0 {
		return &ValidationError{Path: "editor.coalesce_window", Message: "must not be negative", Value: time.Duration(c.Editor.CoalesceWindow)}
	}
	if c.Editor.CoalesceMaxOps < 0 {
		return &ValidationError{Path: "editor.coalesce_max_ops", Message: "must not be negative", Value: c.Editor.CoalesceMaxOps}
	}
	if _, err := guard.ParseCounting(c.Editor.CharCounting); err != nil {
		return &ValidationError{Path: "editor.char_counting", Message: "must be runes or graphemes", Value: c.Editor.CharCounting}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Message: "unknown level", Value: c.Logging.Level}
	}
	if _, err := schema.ParsePolicy(c.Preview.Policy); err != nil {
		return &ValidationError{Path: "preview.policy", Message: "must be drop or reject", Value: c.Preview.Policy}
	}
	if c.Script.Timeout <= 0 {
		return &ValidationError{Path: "script.timeout", Message: "must be positive", Value: time.Duration(c.Script.Timeout)}
	}
	if c.Script.MaxCommands <= 0 {
		return &ValidationError{Path: "script.max_commands", Message: "must be positive", Value: c.Script.MaxCommands}
	}
	for _, name := range c.FieldNames() {
		if f := c.Fields[name]; f.Limit != nil && *f.Limit < 0 {
			return &ValidationError{Path: "fields." + name + ".limit", Message: "must not be negative", Value: *f.Limit}
		}
	}
	return nil
}

// Load reads the file at path over the defaults, applies BIGBRAIN_
// environment overrides and validates the result. A missing file is not an
// error; path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	return load(loader.DefaultFS(), path, loader.NewEnvLoader(EnvPrefix, "fields"))
}

func load(fsys loader.FileSystem, path string, env *loader.EnvLoader) (*Config, error) {
	merged, err := defaults()
	if err != nil {
		return nil, err
	}
	if path != "" {
		fromFile, err := loader.NewTOMLLoaderWithFS(fsys, path).LoadWithIncludes(path, maxIncludeDepth)
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, fromFile)
	}

	env.AddMapping(EnvPrefix+"LIMIT", "editor.limit")
	env.AddMapping(EnvPrefix+"CATALOG", "catalog.path")
	env.AddMapping(EnvPrefix+"LOG_LEVEL", "logging.level")
	fromEnv, err := env.Load()
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	merged = loader.DeepMerge(merged, fromEnv)

	cfg := &Config{}
	if err := decode(merged, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Catalog.Path != "" && path != "" && !filepath.IsAbs(cfg.Catalog.Path) {
		cfg.Catalog.Path = filepath.Join(filepath.Dir(path), cfg.Catalog.Path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaults returns Default as the bottom layer of the merge.
func defaults() (map[string]any, error) {
	data, err := toml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// decode re-encodes the merged layers and strictly decodes them onto cfg,
// so unknown keys are reported.
func decode(merged map[string]any, cfg *Config) error {
	data, err := toml.Marshal(merged)
	if err != nil {
		return err
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// DefaultPath returns the user configuration file location, honoring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bigbrain", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bigbrain", "config.toml")
}
