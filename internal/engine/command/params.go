package command

import (
	"fmt"
	"sort"
	"strings"
)

// Params holds command arguments. Values usually come from decoded JSON,
// so numbers may arrive as float64.
type Params map[string]any

// Get returns a raw value.
func (p Params) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	return v, ok
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// String returns a string value or "".
func (p Params) String(key string) string {
	if v, ok := p.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Int returns an integer value or def.
func (p Params) Int(key string, def int) int {
	if v, ok := p.Get(key); ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

// Bool returns a boolean value or def.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Map returns a nested object value.
func (p Params) Map(key string) map[string]any {
	if v, ok := p.Get(key); ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// Invocation names a command and its parameters.
type Invocation struct {
	Name   string `json:"name"`
	Params Params `json:"params,omitempty"`
}

// Invoke builds an invocation.
func Invoke(name string, params Params) Invocation {
	return Invocation{Name: name, Params: params}
}

func (inv Invocation) String() string {
	if len(inv.Params) == 0 {
		return inv.Name
	}
	keys := make([]string, 0, len(inv.Params))
	for k := range inv.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, inv.Params[k])
	}
	return inv.Name + "(" + strings.Join(parts, ",") + ")"
}
