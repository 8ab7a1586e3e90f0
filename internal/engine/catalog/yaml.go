package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the YAML layout of a catalog definition.
type File struct {
	Nodes []Descriptor `yaml:"nodes"`
	Marks []Descriptor `yaml:"marks"`
}

// ParseYAML decodes a catalog definition and registers its descriptors on b.
func ParseYAML(b *Builder, data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return configErr("", "", "parse yaml: %v", err)
	}
	for _, d := range f.Nodes {
		d.Kind = KindNode
		if err := b.Register(d); err != nil {
			return err
		}
	}
	for _, d := range f.Marks {
		d.Kind = KindMark
		if err := b.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// LoadYAML builds a catalog from a YAML file.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	b := NewBuilder()
	if err := ParseYAML(b, data); err != nil {
		return nil, err
	}
	return b.Build()
}

// DefaultYAML returns the embedded default definition.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the shared default catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		b := NewBuilder()
		if defaultErr = ParseYAML(b, defaultYAML); defaultErr != nil {
			return
		}
		defaultCat, defaultErr = b.Build()
	})
	return defaultCat, defaultErr
}

// MustDefault returns the default catalog and panics if the embedded
// definition is broken.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}
