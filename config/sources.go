package config

import (
	"fmt"

	"github.com/magiconair/properties"

	"github.com/yoloz/kska/errors"
)

// LoadSourceFile reads one source definition from a .properties file. Values are
// returned verbatim; ${} references are not expanded.
func LoadSourceFile(path string) (map[string]string, error) {
	if err := checkFile(path, sourceExtensions); err != nil {
		return nil, errors.WrapInvalid(err, "config", "LoadSourceFile", "check "+path)
	}

	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "LoadSourceFile", "parse "+path)
	}
	return p.Map(), nil
}

// SourceProperties returns every configured source as a properties map: inline
// sources first, then source files in order.
func (c *Config) SourceProperties() ([]map[string]string, error) {
	out := make([]map[string]string, 0, len(c.Sources)+len(c.SourceFiles))
	for _, src := range c.Sources {
		props := make(map[string]string, len(src))
		for k, v := range src {
			props[k] = v
		}
		out = append(out, props)
	}
	for i, path := range c.SourceFiles {
		props, err := LoadSourceFile(path)
		if err != nil {
			return nil, fmt.Errorf("source_files[%d]: %w", i, err)
		}
		out = append(out, props)
	}
	return out, nil
}
