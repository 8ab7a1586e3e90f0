package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// includeKey names the top-level key that pulls other files in.
const includeKey = "@include"

// ErrIncludeDepth is returned when includes nest deeper than allowed, which
// is also how include cycles end.
var ErrIncludeDepth = errors.New("include depth exceeded")

// TOMLLoader reads one TOML file.
type TOMLLoader struct {
	fs   FileSystem
	path string
}

// NewTOMLLoader reads path from the OS file system.
func NewTOMLLoader(path string) *TOMLLoader {
	return NewTOMLLoaderWithFS(DefaultFS(), path)
}

// NewTOMLLoaderWithFS reads path from fsys.
func NewTOMLLoaderWithFS(fsys FileSystem, path string) *TOMLLoader {
	return &TOMLLoader{fs: fsys, path: path}
}

// Load reads the configured file. A missing file yields nil, nil.
func (l *TOMLLoader) Load() (map[string]any, error) {
	return l.LoadFrom(l.path)
}

// LoadFrom reads the file at path. A missing file yields nil, nil.
func (l *TOMLLoader) LoadFrom(path string) (map[string]any, error) {
	data, err := l.fs.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return decodeTOML(path, data)
}

// LoadFromReader decodes TOML from r.
func (l *TOMLLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return decodeTOML("<reader>", data)
}

func decodeTOML(source string, data []byte) (map[string]any, error) {
	var out map[string]any
	err := toml.Unmarshal(data, &out)
	if err == nil {
		return out, nil
	}
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}
	var de *toml.DecodeError
	if errors.As(err, &de) {
		pe.Line, pe.Column = de.Position()
	}
	return nil, pe
}

// LoadWithIncludes reads path and the files its "@include" key names,
// relative to its directory. The including file wins over what it
// includes; later includes win over earlier ones.
func (l *TOMLLoader) LoadWithIncludes(path string, maxDepth int) (map[string]any, error) {
	if maxDepth <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncludeDepth, path)
	}
	own, err := l.LoadFrom(path)
	if err != nil || own == nil {
		return own, err
	}
	raw, ok := own[includeKey]
	if !ok {
		return own, nil
	}
	delete(own, includeKey)

	paths, err := includePaths(filepath.Dir(path), raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	merged := map[string]any{}
	for _, inc := range paths {
		sub, err := l.LoadWithIncludes(inc, maxDepth-1)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", inc, err)
		}
		merged = DeepMerge(merged, sub)
	}
	return DeepMerge(merged, own), nil
}

// includePaths accepts a single path or an array of paths.
func includePaths(dir string, raw any) ([]string, error) {
	var names []string
	switch v := raw.(type) {
	case string:
		names = []string{v}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s entries must be strings, got %T", includeKey, item)
			}
			names = append(names, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings, got %T", includeKey, raw)
	}
	for i, n := range names {
		if !filepath.IsAbs(n) {
			names[i] = filepath.Join(dir, n)
		}
	}
	return names, nil
}

// ParseError reports malformed TOML. Line and Column are 1-based and zero
// when unknown.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DeepMerge merges src into dst and returns dst. Nested tables merge key by
// key; any other value in src replaces the one in dst.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, sv := range src {
		sm, srcTable := sv.(map[string]any)
		dm, dstTable := dst[k].(map[string]any)
		if srcTable && dstTable {
			dst[k] = DeepMerge(dm, sm)
			continue
		}
		dst[k] = sv
	}
	return dst
}
