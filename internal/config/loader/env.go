package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
//
// BIGBRAIN_EDITOR_HISTORY_DEPTH=50 becomes editor.history_depth = 50. Under
// a keyed section the second part is the key: BIGBRAIN_FIELDS_ANSWER_LIMIT
// becomes fields.answer.limit.
type EnvLoader struct {
	prefix  string
	keyed   map[string]bool
	mapping map[string]string
	environ func() []string
}

// NewEnvLoader creates a loader for variables starting with prefix, which
// should include the trailing underscore.
func NewEnvLoader(prefix string, keyedSections ...string) *EnvLoader {
	l := &EnvLoader{
		prefix:  prefix,
		keyed:   make(map[string]bool),
		mapping: make(map[string]string),
		environ: os.Environ,
	}
	for _, s := range keyedSections {
		l.keyed[s] = true
	}
	return l
}

// AddMapping maps one variable to a config path, overriding the derived
// path.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// Load reads the environment. Empty values count as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)
	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		setByPath(config, path, parseValue(value))
	}
	return config, nil
}

func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.ToLower(strings.TrimPrefix(env, l.prefix)), "_")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	section := parts[0]
	rest := parts[1:]
	if len(rest) == 0 {
		return section
	}
	if l.keyed[section] {
		if len(rest) < 2 {
			return ""
		}
		return section + "." + rest[0] + "." + strings.Join(rest[1:], "_")
	}
	return section + "." + strings.Join(rest, "_")
}

// parseValue converts a variable to bool, integer, float or JSON where it
// parses as one; durations and everything else stay strings.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "":
		return s
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// getByPath reads a value from a nested map using a dot-separated path.
func getByPath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}
