package config

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/slekup/big-brain/internal/config/loader"
	"github.com/slekup/big-brain/internal/engine/guard"
	"github.com/slekup/big-brain/internal/engine/schema"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(s), nil
}

func (m memFS) Stat(path string) (fs.FileInfo, error) {
	return nil, fs.ErrNotExist
}

func loadFS(t *testing.T, files memFS, path string) (*Config, error) {
	t.Helper()
	return load(files, path, loader.NewEnvLoader(EnvPrefix, "fields"))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Editor.Limit != 2000 {
		t.Errorf("Editor.Limit = %d", cfg.Editor.Limit)
	}
	if got := cfg.Field("question").Limit; got != 10000 {
		t.Errorf("question limit = %d", got)
	}
	if got := cfg.Field("other").Limit; got != 2000 {
		t.Errorf("unknown field limit = %d", got)
	}
	if !cfg.Field("answer").Editable {
		t.Error("answer not editable by default")
	}
	if cfg.PreviewPolicy() != schema.PolicyDrop {
		t.Errorf("PreviewPolicy = %v", cfg.PreviewPolicy())
	}
}

func TestLoadFile(t *testing.T) {
	files := memFS{
		"/etc/bigbrain/config.toml": `
[editor]
limit = 500
coalesce_window = "250ms"
char_counting = "graphemes"

[catalog]
path = "catalog.yaml"

[fields.answer]
editable = false
`,
	}
	cfg, err := loadFS(t, files, "/etc/bigbrain/config.toml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Editor.Limit != 500 {
		t.Errorf("Editor.Limit = %d", cfg.Editor.Limit)
	}
	if time.Duration(cfg.Editor.CoalesceWindow) != 250*time.Millisecond {
		t.Errorf("CoalesceWindow = %v", time.Duration(cfg.Editor.CoalesceWindow))
	}
	if cfg.Counting() != guard.Graphemes {
		t.Errorf("Counting = %v", cfg.Counting())
	}
	if cfg.Catalog.Path != "/etc/bigbrain/catalog.yaml" {
		t.Errorf("Catalog.Path = %q", cfg.Catalog.Path)
	}
	answer := cfg.Field("answer")
	if answer.Editable || answer.Limit != 2000 {
		t.Errorf("answer = %+v", answer)
	}
	if got := cfg.Field("question").Limit; got != 10000 {
		t.Errorf("question limit = %d", got)
	}
	if cfg.Editor.HistoryDepth != Default().Editor.HistoryDepth {
		t.Errorf("HistoryDepth = %d", cfg.Editor.HistoryDepth)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := loadFS(t, memFS{}, "/nowhere.toml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Editor.Limit != Default().Editor.Limit {
		t.Errorf("Editor.Limit = %d", cfg.Editor.Limit)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BIGBRAIN_LIMIT", "5")
	t.Setenv("BIGBRAIN_LOG_LEVEL", "debug")
	t.Setenv("BIGBRAIN_FIELDS_QUESTION_LIMIT", "42")
	t.Setenv("BIGBRAIN_SCRIPT_TIMEOUT", "3s")

	files := memFS{"/c.toml": "[editor]\nlimit = 500\n"}
	cfg, err := loadFS(t, files, "/c.toml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Editor.Limit != 5 {
		t.Errorf("Editor.Limit = %d, want env value 5", cfg.Editor.Limit)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if got := cfg.Field("question").Limit; got != 42 {
		t.Errorf("question limit = %d", got)
	}
	if time.Duration(cfg.Script.Timeout) != 3*time.Second {
		t.Errorf("Script.Timeout = %v", time.Duration(cfg.Script.Timeout))
	}
}

func TestFieldLimitZero(t *testing.T) {
	files := memFS{"/c.toml": "[editor]\nlimit = 300\n\n[fields.note]\nlimit = 0\n\n[fields.hint]\neditable = false\n"}
	cfg, err := loadFS(t, files, "/c.toml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Field("note").Limit; got != 0 {
		t.Errorf("note limit = %d, want 0", got)
	}
	hint := cfg.Field("hint")
	if hint.Limit != 300 || hint.Editable {
		t.Errorf("hint = %+v, want inherited limit 300 and read-only", hint)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
	}{
		{"negative limit", "[editor]\nlimit = -1\n", "editor.limit"},
		{"counting", "[editor]\nchar_counting = \"words\"\n", "editor.char_counting"},
		{"level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"policy", "[preview]\npolicy = \"ignore\"\n", "preview.policy"},
		{"field limit", "[fields.answer]\nlimit = -3\n", "fields.answer.limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFS(t, memFS{"/c.toml": tt.content}, "/c.toml")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Path != tt.path || !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want path %s", err, tt.path)
			}
		})
	}
}

func TestLoadUnknownKey(t *testing.T) {
	_, err := loadFS(t, memFS{"/c.toml": "[editor]\ntab_size = 4\n"}, "/c.toml")
	if err == nil {
		t.Fatal("unknown key accepted")
	}
}

func TestLoadParseError(t *testing.T) {
	_, err := loadFS(t, memFS{"/c.toml": "[editor\n"}, "/c.toml")
	var pe *loader.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *loader.ParseError", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultPath(); got != "/xdg/bigbrain/config.toml" {
		t.Errorf("DefaultPath = %q", got)
	}
}
